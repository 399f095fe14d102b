package capability

import "errors"

// Protocol errors. Each one is fatal to the call that produced it; callers
// degrade or propagate depending on whether pipeline progress is still
// possible.
var (
	// ErrNoDefaultModel indicates no default provider is registered for the
	// requested capability and no explicit model was given.
	ErrNoDefaultModel = errors.New("no default model registered for capability")
	// ErrModelNotFound indicates an explicitly requested provider id is not
	// registered.
	ErrModelNotFound = errors.New("model not registered")
	// ErrCapabilityNotFound indicates the selected provider does not
	// implement the resolved capability.
	ErrCapabilityNotFound = errors.New("capability not implemented by provider")
	// ErrInvalidConfig indicates the (possibly transformed) config failed
	// validation against the provider-side config schema.
	ErrInvalidConfig = errors.New("capability config failed validation")
	// ErrInvalidInput indicates the (possibly transformed) input failed
	// validation against the provider-side input schema.
	ErrInvalidInput = errors.New("capability input failed validation")
	// ErrInvalidProviderOutput indicates the provider returned a value that
	// does not match its own declared output schema.
	ErrInvalidProviderOutput = errors.New("provider output failed validation")
	// ErrInvalidPluginOutput indicates the transformed result does not
	// match the plugin-side output schema.
	ErrInvalidPluginOutput = errors.New("transformed output failed validation")
)
