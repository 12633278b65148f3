package tasks

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/mimibot/mimi/internal/tools"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := NewStoreWithDB(db)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCreateDefaults(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Create("chat-1", "pay rent", "", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Status != StatusTodo {
		t.Errorf("status = %q, want todo", task.Status)
	}
	if task.Priority != PriorityMedium {
		t.Errorf("priority = %q, want medium", task.Priority)
	}
}

func TestCreateWithFields(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Create("chat-1", "pay rent", "before the 1st", PriorityHigh, "2026-09-01")
	if err != nil {
		t.Fatal(err)
	}

	list, err := s.List("chat-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("list = %d tasks", len(list))
	}
	got := list[0]
	if got.ID != task.ID || got.Title != "pay rent" || got.Description != "before the 1st" {
		t.Errorf("task = %+v", got)
	}
	if got.Priority != PriorityHigh || got.DueDate != "2026-09-01" {
		t.Errorf("priority/due = %q/%q", got.Priority, got.DueDate)
	}
}

func TestListOrdersByPriority(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create("chat-1", "low one", "", PriorityLow, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("chat-1", "high one", "", PriorityHigh, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("chat-1", "medium one", "", PriorityMedium, ""); err != nil {
		t.Fatal(err)
	}

	list, err := s.List("chat-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if list[0].Title != "high one" || list[2].Title != "low one" {
		t.Errorf("order = %q, %q, %q", list[0].Title, list[1].Title, list[2].Title)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Create("chat-1", "a", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("chat-1", "b", "", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Update("chat-1", task.ID, Updates{Status: StatusDone}); err != nil {
		t.Fatal(err)
	}

	done, err := s.List("chat-1", StatusDone)
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 1 || done[0].Title != "a" {
		t.Errorf("done = %+v", done)
	}

	todo, err := s.List("chat-1", StatusTodo)
	if err != nil {
		t.Fatal(err)
	}
	if len(todo) != 1 || todo[0].Title != "b" {
		t.Errorf("todo = %+v", todo)
	}
}

func TestListScopedToConversation(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create("chat-1", "a", "", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create("chat-2", "b", "", "", ""); err != nil {
		t.Fatal(err)
	}

	list, err := s.List("chat-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("chat-1 sees %d tasks, want 1", len(list))
	}
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	s := newTestStore(t)

	found, err := s.Update("chat-1", 999, Updates{Status: StatusDone})
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("unknown ID should not match anything")
	}
}

func TestUpdateCannotCrossConversations(t *testing.T) {
	s := newTestStore(t)

	task, err := s.Create("chat-1", "private", "", "", "")
	if err != nil {
		t.Fatal(err)
	}

	found, err := s.Update("chat-2", task.ID, Updates{Status: StatusCancelled})
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("task from another conversation should be invisible")
	}

	list, err := s.List("chat-1", StatusTodo)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Error("original task should be unchanged")
	}
}

func TestToolHandlers(t *testing.T) {
	s := newTestStore(t)
	r := tools.NewRegistry()
	RegisterTools(r, s)

	b, err := r.Bundle("general")
	if err != nil {
		t.Fatal(err)
	}
	ctx := tools.WithConversationID(context.Background(), "chat-1")

	out, err := b.Execute(ctx, "add_task", map[string]any{"title": "pay rent", "priority": "high"})
	if err != nil {
		t.Fatalf("add_task: %v", err)
	}
	if !strings.Contains(out, "pay rent") {
		t.Errorf("add output = %q", out)
	}

	// Created row carries todo status and the requested priority.
	list, err := s.List("chat-1", StatusTodo)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Priority != PriorityHigh {
		t.Errorf("stored task = %+v", list)
	}

	out, err = b.Execute(ctx, "list_tasks", map[string]any{})
	if err != nil {
		t.Fatalf("list_tasks: %v", err)
	}
	if !strings.Contains(out, "#1") || !strings.Contains(out, "todo/high") {
		t.Errorf("list output = %q", out)
	}

	out, err = b.Execute(ctx, "update_task", map[string]any{"id": float64(1), "status": "done"})
	if err != nil {
		t.Fatalf("update_task: %v", err)
	}
	if !strings.Contains(out, "updated") {
		t.Errorf("update output = %q", out)
	}

	// Unknown ID: handled as data, not an error.
	out, err = b.Execute(ctx, "update_task", map[string]any{"id": float64(42), "status": "done"})
	if err != nil {
		t.Fatalf("update_task unknown: %v", err)
	}
	if !strings.Contains(out, "nothing changed") {
		t.Errorf("unknown-id output = %q", out)
	}

	// Bad enum value is rejected by schema validation before the handler.
	if _, err := b.Execute(ctx, "update_task", map[string]any{"id": float64(1), "status": "paused"}); err == nil {
		t.Error("expected validation error for bad status")
	}

	// Another conversation sees its own empty list.
	other := tools.WithConversationID(context.Background(), "chat-2")
	out, err = b.Execute(other, "list_tasks", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No tasks found") {
		t.Errorf("other conversation output = %q", out)
	}
}
