// Package schema validates flight request bodies against the embedded JSON
// Schema before they are decoded.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	dErrors "flighttracker/pkg/domain-errors"
)

const schemaURL = "https://flighttracker.local/schemas/flight.schema.json"

//go:embed flight.schema.json
var flightSchema string

// Validator checks raw flight JSON.
type Validator struct {
	schema *jsonschema.Schema
}

// New compiles the embedded flight schema.
func New() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	if err := c.AddResource(schemaURL, strings.NewReader(flightSchema)); err != nil {
		return nil, fmt.Errorf("flight schema load failed: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("flight schema compile failed: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// MustNew is New for process start-up, where a broken embedded schema is a
// programming error.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate returns a CodeValidation error naming the first failing location.
func (v *Validator) Validate(body []byte) error {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return dErrors.New(dErrors.CodeValidation, "body is not valid JSON")
	}
	if err := v.schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return dErrors.New(dErrors.CodeValidation, describe(ve))
		}
		return dErrors.Wrap(err, dErrors.CodeValidation, "flight failed schema validation")
	}
	return nil
}

func describe(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		loc = "body"
	}
	return loc + ": " + ve.Message
}
