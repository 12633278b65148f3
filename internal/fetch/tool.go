package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mimibot/mimi/internal/tools"
)

// RegisterTools adds the fetch_page tool to a registry.
func (f *Fetcher) RegisterTools(r *tools.Registry) {
	r.Register(&tools.Tool{
		Name:        "fetch_page",
		Description: "Fetch and read a webpage's content as cleaned text. Uses a headless browser to get past bot protection when available. Good for reading docs, articles, and READMEs.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL to read",
				},
				"max_chars": map[string]any{
					"type":        "integer",
					"description": "Cap on returned characters (default 15000)",
				},
			},
			"required": []string{"url"},
		},
		Handler: f.handleFetch,
	})
}

func (f *Fetcher) handleFetch(ctx context.Context, args map[string]any) (string, error) {
	rawURL, _ := args["url"].(string)
	maxChars := 0
	if v, ok := args["max_chars"].(float64); ok {
		maxChars = int(v)
	}

	result, err := f.Fetch(ctx, rawURL, maxChars)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}
