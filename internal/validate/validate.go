// Package validate checks tool arguments against their declared input schemas.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/wsyeabsera/v5-mcp-server-sub001/internal/protocol"
)

// Schema is a compiled input schema ready to check argument payloads.
type Schema struct {
	compiled *jsonschema.Schema
}

// Compile turns a tool input descriptor into a reusable validator.
// A nil descriptor compiles to a validator that accepts anything.
func Compile(desc *protocol.JSONSchema) (*Schema, error) {
	if desc == nil {
		return &Schema{}, nil
	}

	raw, err := json.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse input schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile input schema: %w", err)
	}

	return &Schema{compiled: compiled}, nil
}

// Check validates a raw argument object. Empty input is treated as an
// empty object so tools with no required fields accept omitted arguments.
func (s *Schema) Check(raw json.RawMessage) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	payload, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	return s.compiled.Validate(payload)
}
