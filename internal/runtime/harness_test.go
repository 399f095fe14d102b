package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/ShayCichocki/plexus/internal/capability"
	"github.com/ShayCichocki/plexus/internal/memory"
	"github.com/ShayCichocki/plexus/internal/plugin"
	"github.com/ShayCichocki/plexus/internal/schema"
	"github.com/ShayCichocki/plexus/pkg/models"
)

var stubInputSchema = schema.MustNew("stub-text-input", "stub input", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"prompt": map[string]any{"type": "string"},
	},
	"required":             []any{"prompt"},
	"additionalProperties": false,
})

var stubOutputSchema = schema.MustNew("stub-text-output", "stub output", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"text": map[string]any{"type": "string"},
	},
	"required":             []any{"text"},
	"additionalProperties": false,
})

var stubConfigSchema = schema.MustNew("stub-text-config", "stub config", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"temperature": map[string]any{"type": "number"},
	},
	"additionalProperties": false,
})

// stubReply is one scripted text-generation response.
type stubReply struct {
	text string
	err  error
}

// stubTextProvider serves scripted responses for the text-generation
// capability and records every prompt it saw.
type stubTextProvider struct {
	mu      sync.Mutex
	replies []stubReply
	// defaultText is returned once the scripted replies run out; empty
	// means run-out calls fail.
	defaultText string
	prompts     []string
}

func (p *stubTextProvider) ID() string { return "stub" }

func (p *stubTextProvider) Capabilities() []capability.Descriptor {
	d, _ := p.Capability(capability.TextGeneration)
	return []capability.Descriptor{d}
}

func (p *stubTextProvider) Capability(id string) (capability.Descriptor, bool) {
	if id != capability.TextGeneration {
		return capability.Descriptor{}, false
	}
	return capability.Descriptor{
		ID:     capability.TextGeneration,
		Input:  stubInputSchema,
		Output: stubOutputSchema,
		Config: stubConfigSchema,
	}, true
}

func (p *stubTextProvider) Execute(ctx context.Context, capabilityID string, input any, config map[string]any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, input.(map[string]any)["prompt"].(string))

	if len(p.replies) == 0 {
		if p.defaultText != "" {
			return map[string]any{"text": p.defaultText}, nil
		}
		return nil, fmt.Errorf("no scripted reply left")
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	if reply.err != nil {
		return nil, reply.err
	}
	return map[string]any{"text": reply.text}, nil
}

func (p *stubTextProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

// storedMemory is one StoreMemory call recorded by fakeMemory.
type storedMemory struct {
	id      string
	trigger string
	spaceID string
}

// fakeMemory is an in-memory Manager that records calls and tracks how many
// tasks are inside the store/update span at once.
type fakeMemory struct {
	mu        sync.Mutex
	stored    []storedMemory
	updates   map[string]memory.Patch
	history   []memory.ConversationMessage
	nextID    int
	active    int
	maxSeen   int
	storeGate chan struct{}
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{updates: make(map[string]memory.Patch)}
}

func (m *fakeMemory) StoreMemory(ctx context.Context, task *models.AgentTask) (string, error) {
	if m.storeGate != nil {
		<-m.storeGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active++
	if m.active > m.maxSeen {
		m.maxSeen = m.active
	}
	m.nextID++
	id := fmt.Sprintf("mem-%d", m.nextID)
	m.stored = append(m.stored, storedMemory{id: id, trigger: task.Trigger.Content, spaceID: task.Space.ID})
	return id, nil
}

func (m *fakeMemory) UpdateMemory(ctx context.Context, id string, patch memory.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
	m.updates[id] = patch
	return nil
}

func (m *fakeMemory) QueryMemory(ctx context.Context, opts memory.QueryOptions) ([]memory.Memory, error) {
	return nil, nil
}

func (m *fakeMemory) GetRecentConversationHistory(ctx context.Context, user, platform string) ([]memory.ConversationMessage, error) {
	return m.history, nil
}

func (m *fakeMemory) storedOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.stored))
	for _, s := range m.stored {
		out = append(out, s.trigger)
	}
	return out
}

func (m *fakeMemory) updatedChain(t *testing.T, id string) []models.Context {
	t.Helper()
	m.mu.Lock()
	patch, ok := m.updates[id]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("memory %s was never updated", id)
	}
	if patch.Context == nil {
		t.Fatalf("memory %s update carried no context", id)
	}
	var chain []models.Context
	if err := json.Unmarshal([]byte(*patch.Context), &chain); err != nil {
		t.Fatalf("decode persisted chain: %v", err)
	}
	return chain
}

// recordingPlugin builds a plugin whose executors append "pluginID:action"
// to a shared execution log.
type executionLog struct {
	mu    sync.Mutex
	order []string
}

func (l *executionLog) add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, entry)
}

func (l *executionLog) entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

func recordingPlugin(id string, log *executionLog, actions ...string) *plugin.Plugin {
	p := &plugin.Plugin{ID: id, Name: id, Description: "test plugin"}
	for _, action := range actions {
		action := action
		p.Executors = append(p.Executors, plugin.Executor{
			Name:        action,
			Description: "records execution",
			Fn: func(ctx context.Context, task *models.AgentTask) (models.PluginResult, error) {
				log.add(id + ":" + action)
				return models.PluginResult{Success: true, Data: map[string]any{"ran": id + ":" + action}}, nil
			},
		})
	}
	return p
}

// newHarness wires a processor and scheduler over the stub provider and fake
// memory.
func newHarness(t *testing.T, provider *stubTextProvider, plugins ...*plugin.Plugin) (*Scheduler, *Processor, *fakeMemory) {
	t.Helper()
	resolver := capability.NewResolver()
	if err := resolver.RegisterProvider(provider); err != nil {
		t.Fatalf("register provider: %v", err)
	}
	if err := resolver.SetDefault(capability.TextGeneration, provider.ID()); err != nil {
		t.Fatalf("set default: %v", err)
	}

	registry := plugin.NewRegistry()
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			t.Fatalf("register plugin %s: %v", p.ID, err)
		}
	}

	mem := newFakeMemory()
	processor := NewProcessor(registry, mem, NewObjectClient(resolver, 0))
	scheduler := NewScheduler(context.Background(), processor, mem)
	return scheduler, processor, mem
}

func pipelineJSON(steps ...models.PipelineStep) string {
	if steps == nil {
		steps = []models.PipelineStep{}
	}
	encoded, _ := json.Marshal(models.Pipeline{Steps: steps, RelatedMemories: "none"})
	return string(encoded)
}

func modificationJSON(modify bool, steps []models.PipelineStep) string {
	encoded, _ := json.Marshal(models.PipelineModification{
		ShouldModify:  modify,
		Explanation:   "test decision",
		ModifiedSteps: steps,
	})
	return string(encoded)
}

const noChange = `{"should_modify": false, "explanation": "keep going", "modified_steps": null}`
