package prompts

import (
	"github.com/mimibot/mimi/internal/history"
	"github.com/mimibot/mimi/internal/llm"
)

// FormatHistory converts stored transcript rows into the message list
// replayed to the model. Assistant rows that carry a tool transcript
// expand into an assistant turn with the calls in their original order
// followed by one tool-result message per call. Rows whose tool data
// could not be decoded arrive here with a nil transcript and replay as
// plain text.
func FormatHistory(rows []history.Row) []llm.Message {
	var messages []llm.Message

	for _, row := range rows {
		if row.Role != "assistant" || len(row.ToolCalls) == 0 {
			messages = append(messages, llm.Message{Role: row.Role, Content: row.Content})
			continue
		}

		calls := make([]llm.ToolCall, 0, len(row.ToolCalls))
		for _, tr := range row.ToolCalls {
			calls = append(calls, llm.NewToolCall(tr.ID, tr.Name, tr.Arguments))
		}
		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   row.Content,
			ToolCalls: calls,
		})

		for _, tr := range row.ToolCalls {
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    tr.Result,
				ToolCallID: tr.ID,
			})
		}
	}

	return messages
}
