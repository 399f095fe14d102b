// Package plugin defines the plugin contract and the registry the processor
// resolves pipeline steps against. Steps reference executors by
// (pluginID, action) string pair, so binding happens at execution time.
package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/ShayCichocki/plexus/pkg/models"
)

// ExecutorFunc runs one plugin action against the current task. The task's
// context chain is read-only from the executor's point of view; results flow
// back through the returned PluginResult.
type ExecutorFunc func(ctx context.Context, task *models.AgentTask) (models.PluginResult, error)

// Executor is one named action a plugin exposes to the planner.
type Executor struct {
	// Name is the action name referenced by pipeline steps.
	Name string
	// Description tells the planner what the action does.
	Description string
	// Fn performs the action.
	Fn ExecutorFunc
}

// Trigger describes an event source a plugin listens on. Trigger wiring is
// owned by the hosting process; the registry only carries the metadata.
type Trigger struct {
	// ID names the trigger.
	ID string
	// Description tells operators what starts it.
	Description string
}

// Plugin is a registered unit of business logic.
type Plugin struct {
	// ID is the unique plugin identifier referenced by pipeline steps.
	ID string
	// Name is the human-readable plugin name.
	Name string
	// Description tells the planner what the plugin is for.
	Description string
	// Executors are the actions the plugin exposes.
	Executors []Executor
	// Triggers are the event sources the plugin listens on.
	Triggers []Trigger
}

// Executor returns the named executor, if the plugin has one.
func (p *Plugin) Executor(action string) (*Executor, bool) {
	for i := range p.Executors {
		if p.Executors[i].Name == action {
			return &p.Executors[i], true
		}
	}
	return nil, false
}

// Registry holds the registered plugins. It is populated at startup and
// read-mostly afterwards.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*Plugin
	order   []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]*Plugin)}
}

// Register adds a plugin. Plugin ids must be unique.
func (r *Registry) Register(p *Plugin) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("plugin must have a non-empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[p.ID]; exists {
		return fmt.Errorf("plugin %q already registered", p.ID)
	}
	r.plugins[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

// Plugins returns the registered plugins in registration order.
func (r *Registry) Plugins() []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Plugin, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.plugins[id])
	}
	return out
}

// Resolve looks up the executor for a pipeline step. A missing plugin or
// action is returned as an error so the caller decides whether it is fatal.
func (r *Registry) Resolve(pluginID, action string) (*Executor, error) {
	r.mu.RLock()
	p, ok := r.plugins[pluginID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("plugin not found: %s", pluginID)
	}
	exec, ok := p.Executor(action)
	if !ok {
		return nil, fmt.Errorf("executor not found: %s:%s", pluginID, action)
	}
	return exec, nil
}
