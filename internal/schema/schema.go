// Package schema decouples the two jobs a schema does in this system: a
// serializable description handed to the language model when prompting for
// structured output, and a validator applied to every value that crosses a
// capability boundary.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema describes and validates one JSON shape.
type Schema interface {
	// Name is a short identifier used in error messages and prompts.
	Name() string
	// Description is a human-readable summary of the shape, used when
	// asking the model to produce a matching value.
	Description() string
	// Document returns the raw JSON Schema document.
	Document() map[string]any
	// Validate checks a decoded JSON value against the schema.
	Validate(v any) error
}

type jsonSchema struct {
	name        string
	description string
	doc         map[string]any
	compiled    *jsonschema.Schema
}

// New compiles a JSON Schema document into a Schema.
func New(name, description string, doc map[string]any) (Schema, error) {
	compiler := jsonschema.NewCompiler()
	url := fmt.Sprintf("mem://%s.json", name)
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &jsonSchema{
		name:        name,
		description: description,
		doc:         doc,
		compiled:    compiled,
	}, nil
}

// MustNew is New for package-level schema declarations; it panics on a
// malformed document.
func MustNew(name, description string, doc map[string]any) Schema {
	s, err := New(name, description, doc)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *jsonSchema) Name() string             { return s.name }
func (s *jsonSchema) Description() string      { return s.description }
func (s *jsonSchema) Document() map[string]any { return s.doc }

// Validate checks v against the compiled schema. The value is round-tripped
// through JSON first so Go structs and mixed number representations validate
// the same way a decoded response body would.
func (s *jsonSchema) Validate(v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("schema %s: value not JSON-encodable: %w", s.name, err)
	}
	decoded, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("schema %s: decode value: %w", s.name, err)
	}
	if err := s.compiled.Validate(decoded); err != nil {
		return fmt.Errorf("schema %s: %w", s.name, err)
	}
	return nil
}

// PromptDescription renders a schema as text suitable for inclusion in a
// generation prompt: the description followed by the pretty-printed document.
func PromptDescription(s Schema) string {
	doc, err := json.MarshalIndent(s.Document(), "", "  ")
	if err != nil {
		return s.Description()
	}
	return fmt.Sprintf("%s\n\nJSON Schema:\n%s", s.Description(), string(doc))
}
