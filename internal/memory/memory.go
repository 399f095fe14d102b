// Package memory defines the durable record of processed tasks and the
// conversation history the planner grounds itself on. The core only depends
// on the Manager interface; the SQLite store in this package is the provided
// implementation.
package memory

import (
	"context"
	"time"

	"github.com/ShayCichocki/plexus/pkg/models"
)

// Memory is one stored task record.
type Memory struct {
	// ID is the unique identifier for this record.
	ID string `json:"id"`
	// SpaceID is the partition the task belonged to.
	SpaceID string `json:"space_id"`
	// User is the originating user, when the trigger carried one.
	User string `json:"user,omitempty"`
	// Platform is the originating platform, when the trigger carried one.
	Platform string `json:"platform,omitempty"`
	// Trigger is the textual content of the trigger context item.
	Trigger string `json:"trigger"`
	// Context is the serialized final context chain, set once the task
	// finishes.
	Context string `json:"context,omitempty"`
	// Metadata carries record-level key/value state.
	Metadata map[string]any `json:"metadata,omitempty"`
	// CreatedAt is when the record was stored.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the record was last patched.
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch is a partial update applied to a stored memory. Nil fields are left
// untouched.
type Patch struct {
	// Context replaces the serialized context chain.
	Context *string
	// Metadata replaces the record metadata.
	Metadata map[string]any
}

// QueryOptions narrows a memory query. SpaceID and RelatedSpaces are
// mutually exclusive; when both are set SpaceID wins.
type QueryOptions struct {
	// SpaceID matches records in exactly one space.
	SpaceID string
	// RelatedSpaces matches records whose space id shares a prefix or
	// matches a LIKE pattern.
	RelatedSpaces *models.RelatedSpaces
	// Before keeps records created strictly before this time.
	Before time.Time
	// After keeps records created strictly after this time.
	After time.Time
	// Limit caps the number of returned records; 0 means the store default.
	Limit int
	// Offset skips that many records.
	Offset int
}

// ConversationMessage is one turn of recent conversation history, in the
// shape the planner prompt consumes.
type ConversationMessage struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// Timestamp is when the message was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// Manager is the contract the scheduler and processor consume. A slow or
// remote implementation delays the worker cycle; the core awaits each call
// sequentially.
type Manager interface {
	// StoreMemory creates the durable record for a task and returns its id.
	StoreMemory(ctx context.Context, task *models.AgentTask) (string, error)
	// UpdateMemory applies a partial update to a stored record.
	UpdateMemory(ctx context.Context, id string, patch Patch) error
	// QueryMemory returns stored records matching the options, newest
	// first.
	QueryMemory(ctx context.Context, opts QueryOptions) ([]Memory, error)
	// GetRecentConversationHistory returns the recent turns for a
	// (user, platform) pair, oldest first.
	GetRecentConversationHistory(ctx context.Context, user, platform string) ([]ConversationMessage, error)
}
