// Package capability implements the resolution and transform layer that lets
// independently-authored plugins and model providers call each other through
// aliased, schema-validated interfaces.
package capability

import (
	"context"

	"github.com/ShayCichocki/plexus/internal/schema"
)

// TextGeneration is the capability id used for plain text generation. It is
// the capability the structured-output client is built on.
const TextGeneration = "text-generation"

// Descriptor is the typed contract a provider implements for one capability.
type Descriptor struct {
	// ID is the capability identifier, e.g. "text-generation".
	ID string
	// Input validates values passed to the capability.
	Input schema.Schema
	// Output validates values the capability produces.
	Output schema.Schema
	// Config validates the optional per-call configuration. Nil means the
	// capability takes no configuration.
	Config schema.Schema
}

// Provider is a registered model provider exposing one or more capabilities.
// Providers are registered once at startup and treated as immutable while
// tasks are being processed.
type Provider interface {
	// ID is the provider identifier used for explicit model selection.
	ID() string
	// Capabilities lists every capability the provider implements.
	Capabilities() []Descriptor
	// Capability returns the descriptor for one capability id.
	Capability(id string) (Descriptor, bool)
	// Execute runs the capability with input and config already validated
	// against the descriptor's provider-side schemas.
	Execute(ctx context.Context, capabilityID string, input any, config map[string]any) (any, error)
}

// TransformFunc converts a value between a plugin-side and a provider-side
// shape.
type TransformFunc func(v any) (any, error)

// TransformPair binds the two schemas on either side of a capability
// boundary to the function that converts between them. For input and config
// the transform runs plugin shape to provider shape; for output it runs
// provider shape to plugin shape.
type TransformPair struct {
	// Plugin is the schema of the value on the plugin side.
	Plugin schema.Schema
	// Provider is the schema of the value on the provider side.
	Provider schema.Schema
	// Transform converts between the two shapes. Nil passes the value
	// through unchanged.
	Transform TransformFunc
}

// TransformEntry declares how one plugin-side shape maps onto one
// provider-side shape. Any of the three pairs may be nil, meaning that part
// of the call is passed through untouched.
type TransformEntry struct {
	// Input converts call input from plugin shape to provider shape.
	Input *TransformPair
	// Output converts results from provider shape back to plugin shape.
	Output *TransformPair
	// Config converts per-call configuration to provider shape.
	Config *TransformPair
}

// AliasGroup declares that several capability ids are interchangeable. The
// first id in IDs is the canonical one used for provider lookup; the rest
// are aliases. Transforms, when present, describe how values shaped for the
// alias ids convert to and from the canonical provider shape.
type AliasGroup struct {
	// IDs lists the interchangeable capability ids, canonical id first.
	IDs []string
	// Transforms holds the shape conversions for the alias ids.
	Transforms []TransformEntry
}

func (p *TransformPair) apply(v any) (any, error) {
	if p == nil || p.Transform == nil {
		return v, nil
	}
	return p.Transform(v)
}
