// Package search provides web search for the research tools. Tavily is
// the primary provider when a key is configured; DuckDuckGo's keyless
// JSON API is the fallback.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mimibot/mimi/internal/tools"
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Response is a provider's answer to a query.
type Response struct {
	Source  string   `json:"source"`
	Answer  string   `json:"answer,omitempty"`
	Results []Result `json:"results"`
}

// Provider executes a search query.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) (*Response, error)
}

// Manager tries the primary provider and falls back to the secondary on
// failure. A nil primary (no Tavily key configured) goes straight to the
// fallback.
type Manager struct {
	primary  Provider
	fallback Provider
	logger   *slog.Logger
}

// NewManager creates a search manager.
func NewManager(primary, fallback Provider, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("component", "search"),
	}
}

// Search runs the query against the primary provider, falling back on error.
func (m *Manager) Search(ctx context.Context, query string, maxResults int) (*Response, error) {
	if maxResults <= 0 {
		maxResults = 8
	}

	if m.primary != nil {
		resp, err := m.primary.Search(ctx, query, maxResults)
		if err == nil {
			return resp, nil
		}
		m.logger.Warn("primary search failed, falling back", "error", err)
	}

	if m.fallback == nil {
		return nil, fmt.Errorf("no search provider available")
	}
	return m.fallback.Search(ctx, query, maxResults)
}

// RegisterTools adds the web_search tool to a registry.
func (m *Manager) RegisterTools(r *tools.Registry) {
	r.Register(&tools.Tool{
		Name:        "web_search",
		Description: "Search the web for current information. Returns results with title, URL, and snippet. Use to research topics, find documentation, or look up recent events.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum number of results (default 8)",
				},
			},
			"required": []string{"query"},
		},
		Handler: m.handleSearch,
	})
}

func (m *Manager) handleSearch(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query is required")
	}

	maxResults := 0
	if v, ok := args["max_results"].(float64); ok {
		maxResults = int(v)
	}

	resp, err := m.Search(ctx, query, maxResults)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Results from %s:\n", resp.Source)
	if resp.Answer != "" {
		fmt.Fprintf(&b, "Answer: %s\n\n", resp.Answer)
	}
	if len(resp.Results) == 0 {
		b.WriteString("No results found.\n")
	}
	for _, r := range resp.Results {
		fmt.Fprintf(&b, "- %s\n  %s\n  %s\n", r.Title, r.URL, r.Snippet)
	}
	return b.String(), nil
}
