// Package sanitizer cleans text that arrives from outside the process before
// it is shown to a crew member.
//
// All functions are idempotent. Invalid input never produces an error; the
// worst case is an empty string.
//
// Normalization includes:
//   - Whitespace: collapse runs, trim leading/trailing spaces
//   - Markup: strip every HTML element and attribute, keeping the text
//   - Backend messages: both of the above, bounded in length
package sanitizer
