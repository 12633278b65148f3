package forge

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/mimibot/mimi/internal/tools"
)

func newToolBundle(t *testing.T, ft *Tools) *tools.Bundle {
	t.Helper()
	r := tools.NewRegistry()
	ft.RegisterTools(r)
	b, err := r.Bundle("general")
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestToolsFailWithoutToken(t *testing.T) {
	b := newToolBundle(t, NewTools(nil, "acme/widgets"))

	for _, call := range []struct {
		name string
		args map[string]any
	}{
		{"create_pull_request", map[string]any{"title": "t", "head": "h", "base": "b"}},
		{"list_pull_requests", map[string]any{}},
		{"get_pull_request_diff", map[string]any{"number": float64(1)}},
		{"review_pull_request", map[string]any{"number": float64(1), "event": "COMMENT"}},
	} {
		_, err := b.Execute(context.Background(), call.name, call.args)
		if err == nil || !strings.Contains(err.Error(), "not configured") {
			t.Errorf("%s without token: err = %v", call.name, err)
		}
	}
}

func TestResolveRepoFallsBackToDefault(t *testing.T) {
	ft := NewTools(nil, "acme/widgets")

	repo, err := ft.resolveRepo(map[string]any{})
	if err != nil || repo != "acme/widgets" {
		t.Errorf("repo = %q, err = %v", repo, err)
	}

	repo, err = ft.resolveRepo(map[string]any{"repo": "other/project"})
	if err != nil || repo != "other/project" {
		t.Errorf("repo = %q, err = %v", repo, err)
	}

	ft = NewTools(nil, "")
	if _, err := ft.resolveRepo(map[string]any{}); err == nil {
		t.Error("expected error with no repo and no default")
	}
}

func TestListToolFormatsResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v3/repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"number": 3, "title": "Fix parser", "state": "open",
				"user": map[string]any{"login": "alice"},
				"head": map[string]any{"ref": "fix-parser"},
				"base": map[string]any{"ref": "main"},
			},
		})
	})
	gh := newTestGitHub(t, mux)
	b := newToolBundle(t, NewTools(gh, "acme/widgets"))

	out, err := b.Execute(context.Background(), "list_pull_requests", map[string]any{})
	if err != nil {
		t.Fatalf("list_pull_requests: %v", err)
	}
	if !strings.Contains(out, "#3 [open] Fix parser (fix-parser → main) by alice") {
		t.Errorf("output = %q", out)
	}
}

func TestReviewToolRejectsUnknownEvent(t *testing.T) {
	b := newToolBundle(t, NewTools(nil, "acme/widgets"))

	_, err := b.Execute(context.Background(), "review_pull_request", map[string]any{
		"number": float64(1),
		"event":  "SHRUG",
	})
	if err == nil || !strings.Contains(err.Error(), "event") {
		t.Errorf("err = %v", err)
	}
}
