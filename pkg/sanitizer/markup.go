package sanitizer

import (
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

func strict() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// StripMarkup removes all HTML from s and returns plain text. Entities that
// bluemonday escapes on the way out are decoded again so the result can be
// handed to an autoescaping template without double escaping.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(strict().Sanitize(s))
}

// BackendMessage prepares a message written by the voucher backend for
// display: markup removed, whitespace collapsed, length bounded.
func BackendMessage(s string) string {
	return truncate(TrimAndNormalize(StripMarkup(s)), MaxMessageLength)
}
