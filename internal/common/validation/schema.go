// Package validation applies JSON-schema checks to worker inputs before
// they are decoded into typed structs.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema names registered by default.
const (
	SchemaScoreRequest  = "score-request"
	SchemaLoanRequest   = "loan-request"
	SchemaLenderRequest = "lender-request"
	SchemaRetrain       = "retrain-request"
)

const scoreRequestSchema = `{
	"type": "object",
	"required": ["userId"],
	"properties": {
		"userId": {"type": "string", "minLength": 1}
	}
}`

const loanRequestSchema = `{
	"type": "object",
	"required": ["userId", "loanRequest"],
	"properties": {
		"userId": {"type": "string", "minLength": 1},
		"loanRequest": {
			"type": "object",
			"required": ["amount", "loanType", "termMonths"],
			"properties": {
				"amount": {"type": "number", "exclusiveMinimum": 0},
				"loanType": {
					"type": "string",
					"enum": ["personal", "business", "auto", "mortgage", "student"]
				},
				"termMonths": {"type": "integer", "minimum": 1}
			}
		}
	}
}`

const lenderRequestSchema = `{
	"type": "object",
	"required": ["lenderId"],
	"properties": {
		"lenderId": {"type": "string", "minLength": 1}
	}
}`

const retrainRequestSchema = `{
	"type": "object",
	"properties": {
		"allowSynthetic": {"type": "boolean"}
	}
}`

// Validator holds compiled schemas keyed by name.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidator compiles the built-in worker input schemas.
func NewValidator() (*Validator, error) {
	sources := map[string]string{
		SchemaScoreRequest:  scoreRequestSchema,
		SchemaLoanRequest:   loanRequestSchema,
		SchemaLenderRequest: lenderRequestSchema,
		SchemaRetrain:       retrainRequestSchema,
	}

	compiled := make(map[string]*gojsonschema.Schema, len(sources))
	for name, src := range sources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		compiled[name] = schema
	}

	return &Validator{schemas: compiled}, nil
}

// ValidateJSON checks a raw JSON document against a named schema and returns
// a single error describing every violation.
func (v *Validator) ValidateJSON(schemaName, document string) error {
	schema, ok := v.schemas[schemaName]
	if !ok {
		return fmt.Errorf("unknown schema %q", schemaName)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(document))
	if err != nil {
		return fmt.Errorf("validate against %s: %w", schemaName, err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema %s: %s", schemaName, strings.Join(msgs, "; "))
}

// ValidateMap checks an already-decoded variables map against a named schema.
func (v *Validator) ValidateMap(schemaName string, document map[string]interface{}) error {
	schema, ok := v.schemas[schemaName]
	if !ok {
		return fmt.Errorf("unknown schema %q", schemaName)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return fmt.Errorf("validate against %s: %w", schemaName, err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema %s: %s", schemaName, strings.Join(msgs, "; "))
}
