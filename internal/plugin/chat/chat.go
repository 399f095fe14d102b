// Package chat provides the built-in conversational reply plugin. It is the
// minimal executor the planner can always fall back on: generate a text
// reply from the context chain.
package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/plexus/internal/capability"
	"github.com/ShayCichocki/plexus/internal/plugin"
	"github.com/ShayCichocki/plexus/pkg/models"
)

// Generator is the slice of the runtime surface this plugin needs. The
// runtime is injected at construction; the plugin holds no mutable
// back-reference.
type Generator interface {
	ExecuteCapability(ctx context.Context, capabilityID string, input any, opts ...capability.ExecuteOption) (any, error)
}

const replyPrompt = `You are a helpful assistant replying inside a plugin pipeline. Here is the context chain for the current task, newest last:

%s

Write the reply to send back to the user. Respond with the reply text only.`

// New builds the chat plugin over a generator.
func New(gen Generator) *plugin.Plugin {
	return &plugin.Plugin{
		ID:          "chat",
		Name:        "Chat",
		Description: "Generates conversational replies from the task context.",
		Executors: []plugin.Executor{
			{
				Name:        "reply",
				Description: "Generate a text reply to the user from the context chain.",
				Fn: func(ctx context.Context, task *models.AgentTask) (models.PluginResult, error) {
					return reply(ctx, gen, task)
				},
			},
		},
	}
}

func reply(ctx context.Context, gen Generator, task *models.AgentTask) (models.PluginResult, error) {
	chain, err := json.MarshalIndent(task.ContextChain, "", "  ")
	if err != nil {
		return models.PluginResult{Success: false, Error: fmt.Sprintf("encode context chain: %v", err)}, nil
	}

	raw, err := gen.ExecuteCapability(ctx, capability.TextGeneration,
		map[string]any{"prompt": fmt.Sprintf(replyPrompt, string(chain))})
	if err != nil {
		return models.PluginResult{Success: false, Error: err.Error()}, nil
	}

	text := ""
	if m, ok := raw.(map[string]any); ok {
		text, _ = m["text"].(string)
	}
	if text == "" {
		return models.PluginResult{Success: false, Error: "empty reply from text generation"}, nil
	}

	return models.PluginResult{
		Success: true,
		Data:    map[string]any{"message": text},
	}, nil
}
