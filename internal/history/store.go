// Package history persists per-conversation message transcripts and
// serves the bounded context window that each turn replays to the model.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mimibot/mimi/internal/llm"
)

// Row is one persisted message in a conversation transcript. Assistant
// rows carry the turn's complete tool transcript (calls plus results)
// so the window can replay tool-bearing turns faithfully.
type Row struct {
	ID             int64            `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Role           string           `json:"role"` // user or assistant
	Content        string           `json:"content"`
	ToolCalls      []llm.ToolResult `json:"tool_calls,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Store manages transcript persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a history store using the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// NewStoreWithDB creates a history store using an existing database connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tool_calls TEXT,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, created_at, id);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores a message at the end of a conversation and returns its row ID.
// An empty toolCalls slice is stored as NULL so that empty and absent are
// indistinguishable on read.
func (s *Store) Append(conversationID, role, content string, toolCalls []llm.ToolResult) (int64, error) {
	now := time.Now().UTC()

	var toolJSON sql.NullString
	if len(toolCalls) > 0 {
		data, err := json.Marshal(toolCalls)
		if err != nil {
			return 0, fmt.Errorf("marshal tool calls: %w", err)
		}
		toolJSON = sql.NullString{String: string(data), Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO messages (conversation_id, role, content, tool_calls, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, conversationID, role, content, toolJSON, now.Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns the most recent limit messages of a conversation in
// chronological order. Ties on created_at are broken by row ID, so
// messages appended in the same instant keep their insertion order.
func (s *Store) Recent(conversationID string, limit int) ([]Row, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT id, conversation_id, role, content, tool_calls, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; reverse to chronological.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

// Count returns the number of messages in a conversation.
func (s *Store) Count(conversationID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Trim deletes all but the newest keepLast messages of a conversation.
// It returns the number of deleted rows. A conversation at or under the
// limit is left untouched.
func (s *Store) Trim(conversationID string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, fmt.Errorf("keepLast must be positive, got %d", keepLast)
	}

	result, err := s.db.Exec(`
		DELETE FROM messages
		WHERE conversation_id = ?
		AND id NOT IN (
			SELECT id FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
	`, conversationID, conversationID, keepLast)
	if err != nil {
		return 0, fmt.Errorf("trim: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// Clear deletes the entire transcript of a conversation.
func (s *Store) Clear(conversationID string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

func scanRow(rows *sql.Rows) (Row, error) {
	var r Row
	var toolJSON sql.NullString
	var createdStr string

	if err := rows.Scan(&r.ID, &r.ConversationID, &r.Role, &r.Content, &toolJSON, &createdStr); err != nil {
		return Row{}, err
	}

	if toolJSON.Valid && toolJSON.String != "" && toolJSON.String != "null" {
		if err := json.Unmarshal([]byte(toolJSON.String), &r.ToolCalls); err != nil {
			// A corrupt tool_calls column degrades to a plain message
			// rather than poisoning the whole window.
			r.ToolCalls = nil
		}
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)

	return r, nil
}
