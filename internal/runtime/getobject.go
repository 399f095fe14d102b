package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ShayCichocki/plexus/internal/capability"
	"github.com/ShayCichocki/plexus/internal/schema"
)

// defaultMaxRetries is how many attempts GetObject makes before giving up.
const defaultMaxRetries = 3

// ObjectClient obtains schema-conforming JSON values from a text-generation
// capability, tolerating model non-determinism with bounded self-correcting
// retries.
type ObjectClient struct {
	resolver   *capability.Resolver
	maxRetries int
}

// NewObjectClient creates an ObjectClient over a resolver. maxRetries <= 0
// selects the default of 3 attempts.
func NewObjectClient(resolver *capability.Resolver, maxRetries int) *ObjectClient {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &ObjectClient{resolver: resolver, maxRetries: maxRetries}
}

// GetObject asks the text-generation capability for a JSON value matching s.
// The first attempt uses the generate prompt; later attempts include the
// previous raw response and the previous error so the model can correct
// itself. Capability execution failures and parse/validation failures both
// consume an attempt. The validated raw JSON is returned on success; the
// last error is returned after the final attempt fails.
func (c *ObjectClient) GetObject(ctx context.Context, s schema.Schema, prompt string, opts ...capability.ExecuteOption) (json.RawMessage, error) {
	schemaText := schema.PromptDescription(s)

	var lastResponse string
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		var full string
		if attempt == 0 {
			full = fmt.Sprintf(generateObjectPrompt, schemaText, prompt)
		} else {
			full = fmt.Sprintf(retryObjectPrompt, schemaText, prompt, lastResponse, lastErr)
		}

		input := map[string]any{"prompt": full}
		raw, err := c.resolver.ExecuteCapability(ctx, capability.TextGeneration, input, opts...)
		if err != nil {
			lastErr = err
			lastResponse = ""
			continue
		}

		text, err := textFromResult(raw)
		if err != nil {
			lastErr = err
			lastResponse = ""
			continue
		}

		extracted, err := extractJSON(text)
		if err != nil {
			lastResponse = text
			lastErr = err
			continue
		}

		var decoded any
		if err := json.Unmarshal([]byte(extracted), &decoded); err != nil {
			lastResponse = text
			lastErr = fmt.Errorf("parse JSON: %w", err)
			continue
		}

		if err := s.Validate(decoded); err != nil {
			lastResponse = text
			lastErr = err
			continue
		}

		return json.RawMessage(extracted), nil
	}

	return nil, fmt.Errorf("get object %s: %d attempts exhausted: %w", s.Name(), c.maxRetries, lastErr)
}

// textFromResult pulls the generated text out of a text-generation result.
// The canonical output shape is {"text": "..."}; a bare string is accepted
// for transformed shapes.
func textFromResult(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return text, nil
		}
	}
	return "", fmt.Errorf("text-generation result has no text field")
}

// extractJSON isolates the JSON value inside a model response, stripping
// markdown code fences and surrounding prose.
func extractJSON(response string) (string, error) {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
		if idx := strings.LastIndex(response, "```"); idx != -1 {
			response = response[:idx]
		}
		response = strings.TrimSpace(response)
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		if idx := strings.LastIndex(response, "```"); idx != -1 {
			response = response[:idx]
		}
		response = strings.TrimSpace(response)
	}

	objStart := strings.Index(response, "{")
	objEnd := strings.LastIndex(response, "}")
	if objStart != -1 && objEnd > objStart {
		return response[objStart : objEnd+1], nil
	}

	arrStart := strings.Index(response, "[")
	arrEnd := strings.LastIndex(response, "]")
	if arrStart != -1 && arrEnd > arrStart {
		return response[arrStart : arrEnd+1], nil
	}

	return "", fmt.Errorf("no JSON value found in response")
}
