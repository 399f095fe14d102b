package plugin

import (
	"context"
	"testing"

	"github.com/ShayCichocki/plexus/pkg/models"
)

func noopExecutor(name string) Executor {
	return Executor{
		Name:        name,
		Description: "test executor",
		Fn: func(ctx context.Context, task *models.AgentTask) (models.PluginResult, error) {
			return models.PluginResult{Success: true}, nil
		},
	}
}

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&Plugin{
		ID:        "search",
		Name:      "Search",
		Executors: []Executor{noopExecutor("query")},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	exec, err := r.Resolve("search", "query")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if exec.Name != "query" {
		t.Errorf("expected executor query, got %s", exec.Name)
	}
}

func TestResolveMissingPlugin(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve("nope", "query"); err == nil {
		t.Error("expected error for missing plugin")
	}
}

func TestResolveMissingExecutor(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Plugin{ID: "search", Executors: []Executor{noopExecutor("query")}}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.Resolve("search", "absent"); err == nil {
		t.Error("expected error for missing executor")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Plugin{ID: "dup"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&Plugin{ID: "dup"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestPluginsPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		if err := r.Register(&Plugin{ID: id}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	plugins := r.Plugins()
	if len(plugins) != 3 {
		t.Fatalf("expected 3 plugins, got %d", len(plugins))
	}
	for i, want := range []string{"c", "a", "b"} {
		if plugins[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, plugins[i].ID)
		}
	}
}
