package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/plexus/pkg/models"
)

// defaultQueryLimit caps QueryMemory results when the caller gives no limit.
const defaultQueryLimit = 100

// historyLimit is how many recent exchanges conversation history returns.
const historyLimit = 10

// SQLiteStore is the Manager implementation backed by a local SQLite
// database. The connection tolerates sequential reuse across many tasks; the
// single-flight scheduler means there is no concurrent writer.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// Open opens (and if needed creates) the memory database at path. Parent
// directories are created, WAL mode is enabled for concurrent reads.
func Open(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	store := &SQLiteStore{conn: conn, path: path}
	if err := store.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id         TEXT PRIMARY KEY,
		space_id   TEXT NOT NULL,
		user_id    TEXT NOT NULL DEFAULT '',
		platform   TEXT NOT NULL DEFAULT '',
		trigger_content TEXT NOT NULL,
		context    TEXT NOT NULL DEFAULT '',
		metadata   TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_space ON memories(space_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_memories_conversation ON memories(user_id, platform, created_at);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate memory schema: %w", err)
	}
	return nil
}

// StoreMemory creates the durable record for a task before its pipeline
// runs. The user and platform columns come from the trigger metadata so
// conversation history can be queried later.
func (s *SQLiteStore) StoreMemory(ctx context.Context, task *models.AgentTask) (string, error) {
	if task == nil {
		return "", fmt.Errorf("store memory: nil task")
	}
	id := uuid.NewString()
	now := time.Now().UnixMilli()

	metadata, err := json.Marshal(task.Metadata)
	if err != nil {
		return "", fmt.Errorf("store memory: encode metadata: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO memories (id, space_id, user_id, platform, trigger_content, context, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, '', ?, ?, ?)`,
		id,
		task.Space.ID,
		metaString(task.Trigger.Metadata, "user"),
		metaString(task.Trigger.Metadata, "platform"),
		task.Trigger.Content,
		string(metadata),
		now,
		now,
	)
	if err != nil {
		return "", fmt.Errorf("store memory: %w", err)
	}
	return id, nil
}

// UpdateMemory applies a partial update to a stored record.
func (s *SQLiteStore) UpdateMemory(ctx context.Context, id string, patch Patch) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UnixMilli()}

	if patch.Context != nil {
		sets = append(sets, "context = ?")
		args = append(args, *patch.Context)
	}
	if patch.Metadata != nil {
		encoded, err := json.Marshal(patch.Metadata)
		if err != nil {
			return fmt.Errorf("update memory %s: encode metadata: %w", id, err)
		}
		sets = append(sets, "metadata = ?")
		args = append(args, string(encoded))
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE memories SET %s WHERE id = ?", strings.Join(sets, ", "))
	result, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update memory %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("update memory %s: not found", id)
	}
	return nil
}

// QueryMemory returns stored records matching the options, newest first.
func (s *SQLiteStore) QueryMemory(ctx context.Context, opts QueryOptions) ([]Memory, error) {
	var where []string
	var args []any

	switch {
	case opts.SpaceID != "":
		where = append(where, "space_id = ?")
		args = append(args, opts.SpaceID)
	case opts.RelatedSpaces != nil && opts.RelatedSpaces.Prefix != "":
		where = append(where, "space_id LIKE ?")
		args = append(args, opts.RelatedSpaces.Prefix+"%")
	case opts.RelatedSpaces != nil && opts.RelatedSpaces.Pattern != "":
		where = append(where, "space_id LIKE ?")
		args = append(args, opts.RelatedSpaces.Pattern)
	}

	if !opts.Before.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, opts.Before.UnixMilli())
	}
	if !opts.After.IsZero() {
		where = append(where, "created_at > ?")
		args = append(args, opts.After.UnixMilli())
	}

	query := "SELECT id, space_id, user_id, platform, trigger_content, context, metadata, created_at, updated_at FROM memories"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	args = append(args, limit, opts.Offset)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		var m Memory
		var metadata string
		var createdAt, updatedAt int64
		if err := rows.Scan(&m.ID, &m.SpaceID, &m.User, &m.Platform, &m.Trigger, &m.Context, &metadata, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &m.Metadata); err != nil {
				return nil, fmt.Errorf("decode memory %s metadata: %w", m.ID, err)
			}
		}
		m.CreatedAt = time.UnixMilli(createdAt)
		m.UpdatedAt = time.UnixMilli(updatedAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetRecentConversationHistory returns the recent exchanges for a user on a
// platform, oldest first. Each stored memory contributes the trigger as a
// user turn and, when a final context chain was persisted, the last step's
// content as the assistant turn.
func (s *SQLiteStore) GetRecentConversationHistory(ctx context.Context, user, platform string) ([]ConversationMessage, error) {
	if user == "" || platform == "" {
		return nil, nil
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT trigger_content, context, created_at FROM memories
		WHERE user_id = ? AND platform = ?
		ORDER BY created_at DESC LIMIT ?`,
		user, platform, historyLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversation history: %w", err)
	}
	defer rows.Close()

	var history []ConversationMessage
	for rows.Next() {
		var trigger, contextJSON string
		var createdAt int64
		if err := rows.Scan(&trigger, &contextJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		at := time.UnixMilli(createdAt)

		turns := []ConversationMessage{{Role: "user", Content: trigger, Timestamp: at}}
		if reply, ok := finalReply(contextJSON); ok {
			turns = append(turns, ConversationMessage{Role: "assistant", Content: reply, Timestamp: at})
		}
		// Rows arrive newest first; prepend to end up oldest first.
		history = append(turns, history...)
	}
	return history, rows.Err()
}

// finalReply extracts the content of the last non-trigger context item from
// a serialized chain.
func finalReply(contextJSON string) (string, bool) {
	if contextJSON == "" {
		return "", false
	}
	var chain []models.Context
	if err := json.Unmarshal([]byte(contextJSON), &chain); err != nil {
		return "", false
	}
	if len(chain) < 2 {
		return "", false
	}
	last := chain[len(chain)-1]
	if last.Content == "" {
		return "", false
	}
	return last.Content, true
}

func metaString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}
