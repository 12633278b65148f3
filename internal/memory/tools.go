package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/mimibot/mimi/internal/tools"
)

// RegisterTools adds the memory tools to a registry. Facts are scoped
// per conversation via the context, matching how the agent loop queries
// them at turn start.
func RegisterTools(r *tools.Registry, gw Gateway) {
	r.Register(&tools.Tool{
		Name:        "remember_fact",
		Description: "Save an important fact to long-term memory. Use when the user shares preferences, project details, or anything that should persist across conversations.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key": map[string]any{
					"type":        "string",
					"description": "A concise, descriptive key, e.g. 'preferred_language', 'user_timezone'",
				},
				"value": map[string]any{
					"type":        "string",
					"description": "The information to remember",
				},
			},
			"required": []string{"key", "value"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return handleRemember(ctx, gw, args)
		},
	})

	r.Register(&tools.Tool{
		Name:        "recall_memories",
		Description: "Retrieve long-term memories for this user. Call when context from previous conversations is needed.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query to filter memories. Omit to fetch all recent context.",
				},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return handleRecall(ctx, gw, args)
		},
	})

	r.Register(&tools.Tool{
		Name:        "forget_memory",
		Description: "Remove a specific memory by its ID (found via recall_memories).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": "The memory ID to forget",
				},
			},
			"required": []string{"id"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return handleForget(ctx, gw, args)
		},
	})
}

func handleRemember(ctx context.Context, gw Gateway, args map[string]any) (string, error) {
	scope := tools.ConversationIDFromContext(ctx)

	key, _ := args["key"].(string)
	value, _ := args["value"].(string)
	if key == "" || value == "" {
		return "", fmt.Errorf("key and value are required")
	}

	content := fmt.Sprintf("%s: %s", key, value)
	if err := gw.Add(ctx, content, scope); err != nil {
		return "", err
	}
	return fmt.Sprintf("Remembered: %q", content), nil
}

func handleRecall(ctx context.Context, gw Gateway, args map[string]any) (string, error) {
	scope := tools.ConversationIDFromContext(ctx)

	query, _ := args["query"].(string)
	if query == "" {
		query = "*"
	}

	facts, err := gw.Search(ctx, query, scope)
	if err != nil {
		return "", err
	}
	if len(facts) == 0 {
		return "No matching memories found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d memories:\n", len(facts))
	for _, f := range facts {
		fmt.Fprintf(&b, "- [%s] %s\n", f.ID, f.Content)
	}
	return b.String(), nil
}

func handleForget(ctx context.Context, gw Gateway, args map[string]any) (string, error) {
	id, _ := args["id"].(string)
	if id == "" {
		return "", fmt.Errorf("id is required")
	}

	if err := gw.Delete(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("Forgot memory %s.", id), nil
}
