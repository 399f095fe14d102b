package capability

import (
	"context"
	"fmt"
	"sync"
)

// transformBinding records which canonical capability an aliased id resolves
// to and the shape conversions registered for it.
type transformBinding struct {
	canonical string
	entries   []TransformEntry
}

// Resolver routes capability calls to providers. It owns the alias map, the
// default-provider mapping, and the transform metadata, and enforces the
// validation protocol on every call: no value crosses the plugin/provider
// boundary in either direction without being validated against a schema.
type Resolver struct {
	mu         sync.RWMutex
	providers  map[string]Provider
	defaults   map[string]string
	aliases    map[string]string
	transforms map[string]transformBinding
}

// NewResolver creates an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		providers:  make(map[string]Provider),
		defaults:   make(map[string]string),
		aliases:    make(map[string]string),
		transforms: make(map[string]transformBinding),
	}
}

// RegisterProvider adds a provider. Registration happens at startup, before
// any task is processed.
func (r *Resolver) RegisterProvider(p Provider) error {
	if p == nil || p.ID() == "" {
		return fmt.Errorf("provider must have a non-empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.ID()]; exists {
		return fmt.Errorf("provider %q already registered", p.ID())
	}
	r.providers[p.ID()] = p
	return nil
}

// SetDefault marks a provider as the default for a capability id.
func (r *Resolver) SetDefault(capabilityID, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[providerID]; !ok {
		return fmt.Errorf("set default for %s: %w: %s", capabilityID, ErrModelNotFound, providerID)
	}
	r.defaults[capabilityID] = providerID
	return nil
}

// RegisterAliasGroup declares a set of interchangeable capability ids. The
// first id is canonical; every other id becomes an alias of it and, when the
// group carries transforms, gets them as its shape conversions.
func (r *Resolver) RegisterAliasGroup(group AliasGroup) error {
	if len(group.IDs) == 0 {
		return fmt.Errorf("alias group must contain at least one capability id")
	}
	canonical := group.IDs[0]
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range group.IDs[1:] {
		r.aliases[id] = canonical
		if len(group.Transforms) > 0 {
			r.transforms[id] = transformBinding{canonical: canonical, entries: group.Transforms}
		}
	}
	return nil
}

// ExecuteOption configures one ExecuteCapability call.
type ExecuteOption func(*executeOptions)

type executeOptions struct {
	config  map[string]any
	modelID string
}

// WithConfig passes per-call configuration to the capability.
func WithConfig(cfg map[string]any) ExecuteOption {
	return func(o *executeOptions) { o.config = cfg }
}

// WithModel selects an explicit provider instead of the registered default.
func WithModel(providerID string) ExecuteOption {
	return func(o *executeOptions) { o.modelID = providerID }
}

// ExecuteCapability resolves a capability id to a provider implementation,
// applies any registered shape transforms, and executes the call with
// validation at every hand-off:
//
//	plugin input -> [transform] -> validate -> provider
//	provider output -> validate -> [transform] -> validate -> plugin
//
// The protocol assumes plugins and providers are independently versioned and
// may disagree about shape.
func (r *Resolver) ExecuteCapability(ctx context.Context, capabilityID string, input any, opts ...ExecuteOption) (any, error) {
	var o executeOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.RLock()
	canonical := capabilityID
	var entries []TransformEntry
	if binding, ok := r.transforms[capabilityID]; ok {
		canonical = binding.canonical
		entries = binding.entries
	} else if target, ok := r.aliases[capabilityID]; ok {
		canonical = target
	}

	providerID := o.modelID
	if providerID == "" {
		providerID = r.defaults[canonical]
	}
	provider, providerOK := r.providers[providerID]
	r.mu.RUnlock()

	if providerID == "" {
		return nil, fmt.Errorf("execute %s: %w", canonical, ErrNoDefaultModel)
	}
	if !providerOK {
		return nil, fmt.Errorf("execute %s: %w: %s", canonical, ErrModelNotFound, providerID)
	}

	desc, ok := provider.Capability(canonical)
	if !ok {
		return nil, fmt.Errorf("execute %s on provider %s: %w", canonical, providerID, ErrCapabilityNotFound)
	}

	entry := selectEntry(entries, input, o.config)

	providerInput := input
	providerConfig := o.config
	if entry != nil {
		transformed, err := entry.Input.apply(providerInput)
		if err != nil {
			return nil, fmt.Errorf("execute %s: input transform: %w", canonical, err)
		}
		providerInput = transformed
		if providerConfig != nil {
			transformedCfg, err := entry.Config.apply(any(providerConfig))
			if err != nil {
				return nil, fmt.Errorf("execute %s: config transform: %w", canonical, err)
			}
			if cfg, ok := transformedCfg.(map[string]any); ok {
				providerConfig = cfg
			}
		}
	}

	if providerConfig != nil && desc.Config != nil {
		if err := desc.Config.Validate(providerConfig); err != nil {
			return nil, fmt.Errorf("execute %s: %w: %v", canonical, ErrInvalidConfig, err)
		}
	}
	if desc.Input != nil {
		if err := desc.Input.Validate(providerInput); err != nil {
			return nil, fmt.Errorf("execute %s: %w: %v", canonical, ErrInvalidInput, err)
		}
	}

	raw, err := provider.Execute(ctx, canonical, providerInput, providerConfig)
	if err != nil {
		return nil, fmt.Errorf("execute %s on provider %s: %w", canonical, providerID, err)
	}

	if desc.Output != nil {
		if err := desc.Output.Validate(raw); err != nil {
			return nil, fmt.Errorf("execute %s: %w: %v", canonical, ErrInvalidProviderOutput, err)
		}
	}

	result := raw
	if entry != nil && entry.Output != nil {
		transformed, err := entry.Output.apply(raw)
		if err != nil {
			return nil, fmt.Errorf("execute %s: output transform: %w", canonical, err)
		}
		result = transformed
		if entry.Output.Plugin != nil {
			if err := entry.Output.Plugin.Validate(result); err != nil {
				return nil, fmt.Errorf("execute %s: %w: %v", canonical, ErrInvalidPluginOutput, err)
			}
		}
	}

	return result, nil
}

// selectEntry picks the transform entry whose plugin-side schemas accept the
// supplied values: the first entry whose input schema validates the input
// and, when config is given, whose config schema validates the config. When
// nothing matches structurally the first entry is used as a fallback.
func selectEntry(entries []TransformEntry, input any, config map[string]any) *TransformEntry {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		entry := &entries[i]
		if entry.Input != nil && entry.Input.Plugin != nil {
			if err := entry.Input.Plugin.Validate(input); err != nil {
				continue
			}
		}
		if config != nil && entry.Config != nil && entry.Config.Plugin != nil {
			if err := entry.Config.Plugin.Validate(config); err != nil {
				continue
			}
		}
		return entry
	}
	return &entries[0]
}
