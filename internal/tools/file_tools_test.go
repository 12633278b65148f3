package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newWorkspace(t *testing.T) *FileTools {
	t.Helper()
	return NewFileTools(t.TempDir())
}

func TestFileWriteRead(t *testing.T) {
	ft := newWorkspace(t)
	ctx := context.Background()

	if err := ft.Write(ctx, "notes/today.md", "hello world"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	content, err := ft.Read(ctx, "notes/today.md", 0, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if content != "hello world" {
		t.Errorf("content = %q", content)
	}
}

func TestFileReadWindow(t *testing.T) {
	ft := newWorkspace(t)
	ctx := context.Background()

	if err := ft.Write(ctx, "long.txt", "l1\nl2\nl3\nl4\nl5"); err != nil {
		t.Fatal(err)
	}

	content, err := ft.Read(ctx, "long.txt", 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(content, "l2\nl3") {
		t.Errorf("windowed content = %q", content)
	}
	if !strings.Contains(content, "[Lines 2-3 of 5]") {
		t.Errorf("missing window header: %q", content)
	}
}

func TestPathEscapeRejected(t *testing.T) {
	ft := newWorkspace(t)
	ctx := context.Background()

	escapes := []string{
		"../outside.txt",
		"../../etc/passwd",
		"a/../../outside.txt",
		"/etc/passwd",
	}
	for _, p := range escapes {
		if _, err := ft.Read(ctx, p, 0, 0); err == nil || !strings.Contains(err.Error(), "escapes workspace") {
			t.Errorf("Read(%q) err = %v, want escape error", p, err)
		}
		if err := ft.Write(ctx, p, "x"); err == nil {
			t.Errorf("Write(%q) should be rejected", p)
		}
	}
}

func TestSiblingPrefixNotTreatedAsInside(t *testing.T) {
	dir := t.TempDir()
	ws := filepath.Join(dir, "work")
	if err := os.MkdirAll(ws, 0755); err != nil {
		t.Fatal(err)
	}
	// A sibling that shares the workspace path as a string prefix.
	if err := os.MkdirAll(ws+"-evil", 0755); err != nil {
		t.Fatal(err)
	}

	ft := NewFileTools(ws)
	if err := ft.Write(context.Background(), ws+"-evil/x.txt", "x"); err == nil {
		t.Error("absolute sibling path should be rejected")
	}
}

func TestMoveAndCopy(t *testing.T) {
	ft := newWorkspace(t)
	ctx := context.Background()

	if err := ft.Write(ctx, "a.txt", "data"); err != nil {
		t.Fatal(err)
	}

	if err := ft.Copy(ctx, "a.txt", "b/copy.txt"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if content, _ := ft.Read(ctx, "b/copy.txt", 0, 0); content != "data" {
		t.Errorf("copy content = %q", content)
	}

	if err := ft.Move(ctx, "a.txt", "c/moved.txt"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := ft.Read(ctx, "a.txt", 0, 0); err == nil {
		t.Error("source should be gone after move")
	}
	if content, _ := ft.Read(ctx, "c/moved.txt", 0, 0); content != "data" {
		t.Errorf("moved content = %q", content)
	}
}

func TestDelete(t *testing.T) {
	ft := newWorkspace(t)
	ctx := context.Background()

	if err := ft.Write(ctx, "dir/f.txt", "x"); err != nil {
		t.Fatal(err)
	}
	if err := ft.Delete(ctx, "dir"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := ft.Read(ctx, "dir/f.txt", 0, 0); err == nil {
		t.Error("deleted file still readable")
	}

	if err := ft.Delete(ctx, "."); err == nil {
		t.Error("deleting workspace root should be refused")
	}
	if err := ft.Delete(ctx, "missing"); err == nil {
		t.Error("deleting a missing path should error")
	}
}

func TestFind(t *testing.T) {
	ft := newWorkspace(t)
	ctx := context.Background()

	for _, p := range []string{"a.md", "sub/b.md", "sub/c.txt"} {
		if err := ft.Write(ctx, p, "x"); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := ft.Find(ctx, "*.md", 0)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("matches = %v, want 2 entries", matches)
	}

	matches, err = ft.Find(ctx, "*.md", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("limited matches = %v, want 1 entry", matches)
	}
}

func TestRegisteredToolNames(t *testing.T) {
	r := NewRegistry()
	newWorkspace(t).RegisterTools(r)

	for _, name := range []string{"read_file", "write_file", "move_path", "copy_path", "delete_path", "find_files"} {
		if r.Get(name) == nil {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestDisabledWorkspace(t *testing.T) {
	ft := NewFileTools("")
	if ft.Enabled() {
		t.Error("empty workspace should be disabled")
	}
	if _, err := ft.Read(context.Background(), "x", 0, 0); err == nil {
		t.Error("expected error with no workspace configured")
	}
}
