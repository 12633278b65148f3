// Package tasks provides a per-conversation task list the agent can
// manage on the user's behalf.
package tasks

import (
	"database/sql"
	"fmt"
	"time"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusTodo, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Priority ranks tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch Priority(p) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is one tracked item. Tasks are never deleted; they move through
// the status lifecycle instead.
type Task struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Status         Status    `json:"status"`
	Priority       Priority  `json:"priority"`
	DueDate        string    `json:"due_date,omitempty"` // ISO 8601 date, free-form from the model
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Updates carries the optional fields of an update. Empty fields are
// left unchanged.
type Updates struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
	DueDate     string
}

// Store manages task persistence.
type Store struct {
	db *sql.DB
}

// NewStore creates a task store using the given database path.
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

// NewStoreWithDB creates a task store using an existing database connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'todo'
				CHECK(status IN ('todo', 'in_progress', 'done', 'cancelled')),
			priority TEXT NOT NULL DEFAULT 'medium'
				CHECK(priority IN ('low', 'medium', 'high')),
			due_date TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_conversation
			ON tasks(conversation_id, status);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create adds a new todo task to a conversation. Priority defaults to
// medium; description and due date may be empty.
func (s *Store) Create(conversationID, title, description string, priority Priority, dueDate string) (*Task, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	now := time.Now().UTC()

	result, err := s.db.Exec(`
		INSERT INTO tasks (conversation_id, title, description, status, priority, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, conversationID, title, nullable(description), StatusTodo, priority, nullable(dueDate),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return &Task{
		ID:             id,
		ConversationID: conversationID,
		Title:          title,
		Description:    description,
		Status:         StatusTodo,
		Priority:       priority,
		DueDate:        dueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// List returns a conversation's tasks, high priority first, then newest.
// An empty status returns everything.
func (s *Store) List(conversationID string, status Status) ([]*Task, error) {
	query := `
		SELECT id, conversation_id, title, description, status, priority, due_date, created_at, updated_at
		FROM tasks WHERE conversation_id = ?`
	args := []any{conversationID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += `
		ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
		created_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update applies the non-empty fields of u to a task within a
// conversation. It reports whether a matching task existed; updating an
// unknown ID changes nothing. Tasks from other conversations are
// invisible here, so the model cannot reach across chats.
func (s *Store) Update(conversationID string, id int64, u Updates) (bool, error) {
	now := time.Now().UTC()

	sets := "updated_at = ?"
	args := []any{now.Format(time.RFC3339)}
	if u.Title != "" {
		sets += ", title = ?"
		args = append(args, u.Title)
	}
	if u.Description != "" {
		sets += ", description = ?"
		args = append(args, u.Description)
	}
	if u.Status != "" {
		sets += ", status = ?"
		args = append(args, u.Status)
	}
	if u.Priority != "" {
		sets += ", priority = ?"
		args = append(args, u.Priority)
	}
	if u.DueDate != "" {
		sets += ", due_date = ?"
		args = append(args, u.DueDate)
	}
	args = append(args, id, conversationID)

	result, err := s.db.Exec(`UPDATE tasks SET `+sets+` WHERE id = ? AND conversation_id = ?`, args...)
	if err != nil {
		return false, fmt.Errorf("update: %w", err)
	}

	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

func scanTask(rows *sql.Rows) (*Task, error) {
	var t Task
	var description, dueDate sql.NullString
	var createdStr, updatedStr string

	err := rows.Scan(&t.ID, &t.ConversationID, &t.Title, &description, &t.Status, &t.Priority, &dueDate, &createdStr, &updatedStr)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		t.Description = description.String
	}
	if dueDate.Valid {
		t.DueDate = dueDate.String
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)

	return &t, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
