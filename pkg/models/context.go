package models

import (
	"time"

	"github.com/google/uuid"
)

// ContextTypeError marks a context item recording a failed pipeline step.
const ContextTypeError = "error"

// Context is the atomic unit of data exchanged between plugins. Once appended
// to a task's context chain it is never mutated.
type Context struct {
	// ID is the unique identifier for this context item.
	ID string `json:"id"`
	// PluginID identifies the plugin that produced this item.
	PluginID string `json:"plugin_id"`
	// Type classifies the item: the executed action name for step results,
	// ContextTypeError for failures, or a trigger-specific type such as
	// "user_input" for the initiating item.
	Type string `json:"type"`
	// Action is the executor action that produced this item, if any.
	Action string `json:"action,omitempty"`
	// Content is the textual payload of the item. For step results this is
	// the JSON encoding of the result data; for error items it is the error
	// message.
	Content string `json:"content"`
	// Timestamp is when the item was created.
	Timestamp time.Time `json:"timestamp"`
	// HelpfulInstruction is optional guidance for the model about how to use
	// the content of this item.
	HelpfulInstruction string `json:"helpful_instruction,omitempty"`
	// Metadata carries arbitrary trigger- or plugin-specific fields, such as
	// the originating user and platform.
	Metadata map[string]any `json:"metadata,omitempty"`
	// Data holds the step result fields merged into the item so downstream
	// steps can consume them directly.
	Data map[string]any `json:"data,omitempty"`
	// Error is the failure message for error items.
	Error string `json:"error,omitempty"`
	// FailedStep is the pipeline step that produced an error item.
	FailedStep *PipelineStep `json:"failed_step,omitempty"`
}

// NewContext creates a context item with a fresh ID and the current time.
func NewContext(pluginID, typ, content string) Context {
	return Context{
		ID:        uuid.NewString(),
		PluginID:  pluginID,
		Type:      typ,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// IsUserInput reports whether this context item represents direct user input,
// meaning conversation history for its user and platform is worth fetching.
func (c Context) IsUserInput() bool {
	if c.Type == "user_input" {
		return true
	}
	_, hasUser := c.Metadata["user"]
	_, hasPlatform := c.Metadata["platform"]
	return hasUser && hasPlatform
}

// RelatedSpaces describes how to match memory spaces related to a task's own
// space. Prefix matches space IDs sharing a leading string; Pattern is a SQL
// LIKE pattern applied to the space ID.
type RelatedSpaces struct {
	// Prefix matches space IDs beginning with this string.
	Prefix string `json:"prefix,omitempty"`
	// Pattern is a LIKE pattern matched against space IDs.
	Pattern string `json:"pattern,omitempty"`
}

// Space is a conversation or memory partition key.
type Space struct {
	// ID is the partition key, e.g. "discord-general-12345".
	ID string `json:"id"`
	// RelatedSpaces optionally widens memory queries to related partitions.
	RelatedSpaces *RelatedSpaces `json:"related_spaces,omitempty"`
}

// AgentTask is one queued unit of work: a trigger plus the context chain that
// grows as pipeline steps execute.
type AgentTask struct {
	// Trigger is the context item that initiated this task.
	Trigger Context `json:"trigger"`
	// ContextChain is the append-only sequence of context items produced so
	// far, starting with the trigger.
	ContextChain []Context `json:"context_chain"`
	// Space is the memory partition this task belongs to.
	Space Space `json:"space"`
	// Metadata carries task-scoped key/value state.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewAgentTask constructs a task whose context chain contains only the
// trigger.
func NewAgentTask(trigger Context, space Space) *AgentTask {
	return &AgentTask{
		Trigger:      trigger,
		ContextChain: []Context{trigger},
		Space:        space,
		Metadata:     map[string]any{},
	}
}
