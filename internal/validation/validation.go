// Package validation checks request bodies against JSON Schemas and
// requests against the embedded OpenAPI document.
package validation

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const (
	policySchemaURL = "https://dcm-project.io/schemas/policy.schema.json"
	ruleSchemaURL   = "https://dcm-project.io/schemas/rule.schema.json"
)

// Error describes why a request was rejected. Causes holds one entry per
// failing location when the validator reports them.
type Error struct {
	Summary string
	Causes  []string
}

func (e *Error) Error() string {
	if len(e.Causes) == 0 {
		return e.Summary
	}
	return fmt.Sprintf("%s: %s", e.Summary, strings.Join(e.Causes, "; "))
}

// Validator holds the compiled body schemas.
type Validator struct {
	policy *jsonschema.Schema
	rule   *jsonschema.Schema
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	c := jsonschema.NewCompiler()
	for url, file := range map[string]string{
		policySchemaURL: "schemas/policy.schema.json",
		ruleSchemaURL:   "schemas/rule.schema.json",
	} {
		raw, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, err
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add %s: %w", file, err)
		}
	}

	policy, err := c.Compile(policySchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile policy schema: %w", err)
	}
	rule, err := c.Compile(ruleSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile rule schema: %w", err)
	}
	return &Validator{policy: policy, rule: rule}, nil
}

// ValidatePolicy checks a policy body.
func (v *Validator) ValidatePolicy(body []byte) error {
	return validate(v.policy, "Invalid policy", body)
}

// ValidateRule checks a policy rule body.
func (v *Validator) ValidateRule(body []byte) error {
	return validate(v.rule, "Invalid policy rule", body)
}

func validate(schema *jsonschema.Schema, summary string, body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return &Error{Summary: "Malformed JSON body", Causes: []string{err.Error()}}
	}
	err = schema.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &Error{Summary: summary, Causes: []string{err.Error()}}
	}
	return &Error{Summary: summary, Causes: causes(ve)}
}

// causes turns the indented error tree into one line per failing location.
func causes(ve *jsonschema.ValidationError) []string {
	lines := strings.Split(ve.Error(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		out = append(out, lines[0])
	}
	return out
}
