package rules

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrInvalidShape is returned when a rules file does not match the rules
// file schema (unknown keys, wrong value types).
var ErrInvalidShape = errors.New("rules file does not match schema")

const schemaURL = "https://field-mapper.local/schemas/rules.schema.json"

//go:embed rules.schema.json
var rulesSchema []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	if err := c.AddResource(schemaURL, bytes.NewReader(rulesSchema)); err != nil {
		return nil, fmt.Errorf("rules schema load failed: %w", err)
	}

	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("rules schema compile failed: %w", err)
	}

	return s, nil
})

// checkShape validates the raw YAML document against the rules schema.
// The document goes through JSON so the validator sees JSON value types.
func checkShape(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	return nil
}
