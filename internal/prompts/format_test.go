package prompts

import (
	"testing"

	"github.com/mimibot/mimi/internal/history"
	"github.com/mimibot/mimi/internal/llm"
)

func TestFormatHistoryPlainTurns(t *testing.T) {
	rows := []history.Row{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	}

	msgs := FormatHistory(rows)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "hello" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || len(msgs[1].ToolCalls) != 0 {
		t.Errorf("msgs[1] = %+v", msgs[1])
	}
}

func TestFormatHistoryExpandsToolTranscript(t *testing.T) {
	rows := []history.Row{
		{Role: "user", Content: "what's the weather?"},
		{
			Role:    "assistant",
			Content: "It's sunny.",
			ToolCalls: []llm.ToolResult{
				{ID: "call_1", Name: "web_search", Arguments: map[string]any{"query": "weather"}, Result: "sunny, 30C"},
				{ID: "call_2", Name: "fetch_page", Arguments: map[string]any{"url": "example.com"}, Result: "forecast page"},
			},
		},
	}

	msgs := FormatHistory(rows)
	// user, assistant-with-calls, then one tool message per call.
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}

	a := msgs[1]
	if a.Role != "assistant" || len(a.ToolCalls) != 2 {
		t.Fatalf("assistant turn = %+v", a)
	}
	if a.ToolCalls[0].Function.Name != "web_search" || a.ToolCalls[1].Function.Name != "fetch_page" {
		t.Errorf("calls out of order: %+v", a.ToolCalls)
	}

	if msgs[2].Role != "tool" || msgs[2].ToolCallID != "call_1" || msgs[2].Content != "sunny, 30C" {
		t.Errorf("msgs[2] = %+v", msgs[2])
	}
	if msgs[3].Role != "tool" || msgs[3].ToolCallID != "call_2" {
		t.Errorf("msgs[3] = %+v", msgs[3])
	}
}

func TestFormatHistoryDegradedRowReplaysAsText(t *testing.T) {
	// A row whose stored transcript failed to decode arrives with nil
	// ToolCalls; it must replay as a plain assistant turn.
	rows := []history.Row{
		{Role: "assistant", Content: "partial answer", ToolCalls: nil},
	}

	msgs := FormatHistory(rows)
	if len(msgs) != 1 || msgs[0].Role != "assistant" || msgs[0].Content != "partial answer" {
		t.Errorf("msgs = %+v", msgs)
	}
	if msgs[0].ToolCalls != nil {
		t.Errorf("tool calls = %+v, want nil", msgs[0].ToolCalls)
	}
}
