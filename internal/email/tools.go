package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mimibot/mimi/internal/tools"
)

// Body caps keep tool output inside the model's context comfortably.
const (
	searchBodyCap = 2000
	readBodyCap   = 8000
)

// RegisterTools adds the Gmail tools to a registry.
func (g *Gog) RegisterTools(r *tools.Registry) {
	r.Register(&tools.Tool{
		Name:        "search_email",
		Description: "Search Gmail. Supports Gmail search syntax, e.g. 'is:unread from:boss@corp.com' or 'subject:invoice after:2024/01/01'. Returns matching emails with body previews.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Gmail search query",
				},
				"max_results": map[string]any{
					"type":        "integer",
					"description": "Maximum emails to return (default 10)",
				},
			},
			"required": []string{"query"},
		},
		Handler: g.handleSearch,
	})

	r.Register(&tools.Tool{
		Name:        "read_email",
		Description: "Read the full content of a specific email by its ID.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message_id": map[string]any{
					"type":        "string",
					"description": "Gmail message ID (from search_email results)",
				},
			},
			"required": []string{"message_id"},
		},
		Handler: g.handleRead,
	})

	r.Register(&tools.Tool{
		Name:        "archive_email",
		Description: "Archive an email (remove it from the inbox) by its message ID.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message_id": map[string]any{
					"type":        "string",
					"description": "Gmail message ID to archive",
				},
			},
			"required": []string{"message_id"},
		},
		Handler: g.handleArchive,
	})

	r.Register(&tools.Tool{
		Name:        "send_email",
		Description: "Send a plain-text email via Gmail.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"to": map[string]any{
					"type":        "string",
					"description": "Recipient address(es), comma-separated for multiple",
				},
				"subject": map[string]any{
					"type":        "string",
					"description": "Email subject",
				},
				"body": map[string]any{
					"type":        "string",
					"description": "Email body (plain text)",
				},
				"cc": map[string]any{
					"type":        "string",
					"description": "CC address(es), optional",
				},
			},
			"required": []string{"to", "subject", "body"},
		},
		Handler: g.handleSend,
	})
}

func (g *Gog) handleSearch(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	maxResults := 0
	if v, ok := args["max_results"].(float64); ok {
		maxResults = int(v)
	}

	messages, err := g.Search(ctx, query, maxResults)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "No emails found.", nil
	}

	for i := range messages {
		if len(messages[i].Body) > searchBodyCap {
			messages[i].Body = messages[i].Body[:searchBodyCap]
		}
	}

	out, err := json.Marshal(map[string]any{
		"query":  query,
		"count":  len(messages),
		"emails": messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(out), nil
}

func (g *Gog) handleRead(ctx context.Context, args map[string]any) (string, error) {
	messageID, _ := args["message_id"].(string)

	m, err := g.Get(ctx, messageID)
	if err != nil {
		return "", err
	}

	truncated := len(m.Body) > readBodyCap
	if truncated {
		m.Body = m.Body[:readBodyCap]
	}

	out, err := json.Marshal(map[string]any{
		"id":        m.ID,
		"threadId":  m.ThreadID,
		"subject":   m.Subject,
		"from":      m.From,
		"to":        m.To,
		"date":      m.Date,
		"body":      m.Body,
		"truncated": truncated,
	})
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(out), nil
}

func (g *Gog) handleArchive(ctx context.Context, args map[string]any) (string, error) {
	messageID, _ := args["message_id"].(string)

	if err := g.Archive(ctx, messageID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Email %s archived.", messageID), nil
}

func (g *Gog) handleSend(ctx context.Context, args map[string]any) (string, error) {
	to, _ := args["to"].(string)
	subject, _ := args["subject"].(string)
	body, _ := args["body"].(string)
	cc, _ := args["cc"].(string)

	result, err := g.Send(ctx, to, subject, body, cc)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Email sent to %s (message %s).", to, result.ID), nil
}
