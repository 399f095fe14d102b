package schema

import (
	"strings"
	"testing"
)

var personDoc = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name": map[string]any{"type": "string"},
		"age":  map[string]any{"type": "integer", "minimum": 0},
	},
	"required":             []any{"name"},
	"additionalProperties": false,
}

func TestNewAndValidate(t *testing.T) {
	s, err := New("person", "A person record.", personDoc)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	if err := s.Validate(map[string]any{"name": "ada", "age": 36}); err != nil {
		t.Errorf("valid value rejected: %v", err)
	}
	if err := s.Validate(map[string]any{"age": 36}); err == nil {
		t.Error("missing required field accepted")
	}
	if err := s.Validate(map[string]any{"name": "ada", "extra": true}); err == nil {
		t.Error("additional property accepted")
	}
	if err := s.Validate(map[string]any{"name": "ada", "age": -1}); err == nil {
		t.Error("out-of-range value accepted")
	}
}

func TestValidateStructValue(t *testing.T) {
	s, err := New("person", "A person record.", personDoc)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	// Go structs validate through their JSON encoding.
	value := struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}{Name: "ada", Age: 36}

	if err := s.Validate(value); err != nil {
		t.Errorf("struct value rejected: %v", err)
	}
}

func TestNewRejectsMalformedDocument(t *testing.T) {
	_, err := New("bad", "broken", map[string]any{"type": 42})
	if err == nil {
		t.Error("malformed schema document accepted")
	}
}

func TestPromptDescription(t *testing.T) {
	s, err := New("person", "A person record.", personDoc)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	text := PromptDescription(s)
	if !strings.Contains(text, "A person record.") {
		t.Error("prompt description should contain the schema description")
	}
	if !strings.Contains(text, "\"name\"") {
		t.Error("prompt description should contain the schema document")
	}
}
