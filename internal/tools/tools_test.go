package tools

import (
	"context"
	"errors"
	"testing"
)

func staticTool(name string, params map[string]any, invoked *bool) *Tool {
	return &Tool{
		Name:        name,
		Description: name,
		Parameters:  params,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			if invoked != nil {
				*invoked = true
			}
			return "ok", nil
		},
	}
}

func TestGeneralBundleIncludesEverything(t *testing.T) {
	r := NewRegistry()
	r.Register(staticTool("web_search", nil, nil))
	r.Register(staticTool("fetch_page", nil, nil))
	r.Register(staticTool("add_task", nil, nil))

	b, err := r.Bundle("general")
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if len(b.List()) != 3 {
		t.Errorf("general bundle has %d tools, want 3", len(b.List()))
	}
}

func TestBundleScopesExecution(t *testing.T) {
	r := NewRegistry()
	searched := false
	tasked := false
	r.Register(staticTool("web_search", nil, &searched))
	r.Register(staticTool("fetch_page", nil, nil))
	r.Register(staticTool("add_task", nil, &tasked))
	r.DefineBundle("research", "web_search", "fetch_page")

	b, err := r.Bundle("research")
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}

	if _, err := b.Execute(context.Background(), "web_search", nil); err != nil {
		t.Errorf("in-bundle tool failed: %v", err)
	}
	if !searched {
		t.Error("web_search handler not invoked")
	}

	// A tool outside the bundle behaves exactly like a nonexistent one.
	_, err = b.Execute(context.Background(), "add_task", nil)
	var unavailable *ErrToolUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("out-of-bundle call error = %v, want ErrToolUnavailable", err)
	}
	if tasked {
		t.Error("out-of-bundle handler must never run")
	}
}

func TestUnknownBundle(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Bundle("mystery"); err == nil {
		t.Fatal("expected error for unknown bundle")
	}
}

func TestBundleWithUnregisteredTool(t *testing.T) {
	r := NewRegistry()
	r.DefineBundle("research", "web_search")
	if _, err := r.Bundle("research"); err == nil {
		t.Fatal("expected error for bundle referencing unregistered tool")
	}
}

func TestValidationFailureNeverInvokesHandler(t *testing.T) {
	r := NewRegistry()
	invoked := false
	r.Register(staticTool("web_search", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []string{"query"},
	}, &invoked))

	b, err := r.Bundle("general")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := b.Execute(context.Background(), "web_search", map[string]any{}); err == nil {
		t.Fatal("expected validation error for missing required argument")
	}
	if invoked {
		t.Error("handler ran despite failed validation")
	}
}

func TestListIsStableAndOpenAIShaped(t *testing.T) {
	r := NewRegistry()
	r.Register(staticTool("b_tool", nil, nil))
	r.Register(staticTool("a_tool", nil, nil))

	b, err := r.Bundle("general")
	if err != nil {
		t.Fatal(err)
	}

	list := b.List()
	if len(list) != 2 {
		t.Fatalf("list = %d entries", len(list))
	}
	fn := list[0]["function"].(map[string]any)
	if fn["name"] != "a_tool" {
		t.Errorf("first tool = %v, want a_tool (sorted)", fn["name"])
	}
	if list[0]["type"] != "function" {
		t.Errorf("type = %v, want function", list[0]["type"])
	}
}
