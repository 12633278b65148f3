package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/mimibot/mimi/internal/tools"
)

// RegisterTools adds the task tools to a registry. Handlers scope every
// operation to the conversation carried on the context, never to a
// model-supplied chat identifier.
func RegisterTools(r *tools.Registry, store *Store) {
	r.Register(&tools.Tool{
		Name:        "list_tasks",
		Description: "List the user's tasks. Can filter by status; omit to see all tasks.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type":        "string",
					"description": "Filter by status. Omit to see all tasks.",
					"enum":        []string{"todo", "in_progress", "done", "cancelled"},
				},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return handleList(ctx, store, args)
		},
	})

	r.Register(&tools.Tool{
		Name:        "add_task",
		Description: "Create a new task for the user.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Short task title",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Detailed description (optional)",
				},
				"priority": map[string]any{
					"type":        "string",
					"description": "Task priority (default medium)",
					"enum":        []string{"low", "medium", "high"},
				},
				"due_date": map[string]any{
					"type":        "string",
					"description": "Due date in ISO 8601 format, e.g. 2026-12-31 (optional)",
				},
			},
			"required": []string{"title"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return handleAdd(ctx, store, args)
		},
	})

	r.Register(&tools.Tool{
		Name:        "update_task",
		Description: "Update the status, priority, or details of an existing task. Use list_tasks to find task IDs.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{
					"type":        "integer",
					"description": "Task ID to update",
				},
				"status": map[string]any{
					"type":        "string",
					"description": "New status",
					"enum":        []string{"todo", "in_progress", "done", "cancelled"},
				},
				"priority": map[string]any{
					"type":        "string",
					"description": "New priority",
					"enum":        []string{"low", "medium", "high"},
				},
				"title": map[string]any{
					"type":        "string",
					"description": "New title",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "New description",
				},
				"due_date": map[string]any{
					"type":        "string",
					"description": "New due date",
				},
			},
			"required": []string{"id"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return handleUpdate(ctx, store, args)
		},
	})
}

func handleList(ctx context.Context, store *Store, args map[string]any) (string, error) {
	conversationID := tools.ConversationIDFromContext(ctx)

	status, _ := args["status"].(string)
	list, err := store.List(conversationID, Status(status))
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "No tasks found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d task(s):\n", len(list))
	for _, t := range list {
		fmt.Fprintf(&b, "- #%d [%s/%s] %s", t.ID, t.Status, t.Priority, t.Title)
		if t.DueDate != "" {
			fmt.Fprintf(&b, " (due %s)", t.DueDate)
		}
		if t.Description != "" {
			fmt.Fprintf(&b, " — %s", t.Description)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func handleAdd(ctx context.Context, store *Store, args map[string]any) (string, error) {
	conversationID := tools.ConversationIDFromContext(ctx)

	title, _ := args["title"].(string)
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("title is required")
	}
	description, _ := args["description"].(string)
	priority, _ := args["priority"].(string)
	if priority != "" && !ValidPriority(priority) {
		return "", fmt.Errorf("invalid priority %q", priority)
	}
	dueDate, _ := args["due_date"].(string)

	task, err := store.Create(conversationID, title, description, Priority(priority), dueDate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Task #%d created: %q", task.ID, task.Title), nil
}

func handleUpdate(ctx context.Context, store *Store, args map[string]any) (string, error) {
	conversationID := tools.ConversationIDFromContext(ctx)

	id := int64(0)
	switch v := args["id"].(type) {
	case float64:
		id = int64(v)
	case int:
		id = int64(v)
	}
	if id <= 0 {
		return "", fmt.Errorf("id is required")
	}

	var u Updates
	if s, _ := args["status"].(string); s != "" {
		if !ValidStatus(s) {
			return "", fmt.Errorf("invalid status %q", s)
		}
		u.Status = Status(s)
	}
	if p, _ := args["priority"].(string); p != "" {
		if !ValidPriority(p) {
			return "", fmt.Errorf("invalid priority %q", p)
		}
		u.Priority = Priority(p)
	}
	u.Title, _ = args["title"].(string)
	u.Description, _ = args["description"].(string)
	u.DueDate, _ = args["due_date"].(string)

	if u == (Updates{}) {
		return "", fmt.Errorf("nothing to update")
	}

	found, err := store.Update(conversationID, id, u)
	if err != nil {
		return "", err
	}
	if !found {
		// Unknown IDs are a no-op, reported so the model can recover.
		return fmt.Sprintf("No task #%d in this conversation; nothing changed.", id), nil
	}
	return fmt.Sprintf("Task #%d updated.", id), nil
}
