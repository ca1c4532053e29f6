package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedResponse marks a response that arrived but could not be
// understood: not JSON, or not the shape the endpoint promises.
var ErrMalformedResponse = errors.New("malformed backend response")

const checkResponseSchema = `{
	"type": "object",
	"required": ["exists"],
	"properties": {
		"exists": {"type": "boolean"}
	}
}`

const generateResponseSchema = `{
	"type": "object",
	"oneOf": [
		{
			"required": ["success", "seats"],
			"properties": {
				"success": {"enum": [true]},
				"seats": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
			}
		},
		{
			"required": ["success"],
			"properties": {
				"success": {"enum": [false]},
				"error": {"type": ["string", "null"]}
			}
		}
	]
}`

var (
	checkSchema    = mustSchema(checkResponseSchema)
	generateSchema = mustSchema(generateResponseSchema)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("client: invalid response schema: %v", err))
	}
	return schema
}

func validateBody(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		problems = append(problems, resultErr.String())
	}
	return fmt.Errorf("%w: %s", ErrMalformedResponse, strings.Join(problems, "; "))
}
