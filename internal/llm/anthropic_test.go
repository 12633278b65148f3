package llm

import (
	"testing"
)

func TestConvertToAnthropicExtractsSystem(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "You are Mimi."},
		{Role: "system", Content: "Current time: noon."},
		{Role: "user", Content: "hello"},
	}

	result, system := convertToAnthropic(messages)

	if system != "You are Mimi.\n\nCurrent time: noon." {
		t.Errorf("system = %q", system)
	}
	if len(result) != 1 {
		t.Fatalf("messages = %d, want 1", len(result))
	}
	if result[0].Role != "user" {
		t.Errorf("role = %q, want user", result[0].Role)
	}
}

func TestConvertToAnthropicToolCalls(t *testing.T) {
	messages := []Message{
		{Role: "user", Content: "add a task"},
		{
			Role:    "assistant",
			Content: "Adding it now.",
			ToolCalls: []ToolCall{
				NewToolCall("toolu_01", "add_task", map[string]any{"description": "buy milk"}),
			},
		},
		{Role: "tool", Content: `{"id": 1}`, ToolCallID: "toolu_01"},
	}

	result, _ := convertToAnthropic(messages)

	if len(result) != 3 {
		t.Fatalf("messages = %d, want 3", len(result))
	}

	blocks, ok := result[1].Content.([]anthropicContent)
	if !ok {
		t.Fatalf("assistant content is %T, want []anthropicContent", result[1].Content)
	}
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want text + tool_use", len(blocks))
	}
	if blocks[0].Type != "text" || blocks[0].Text != "Adding it now." {
		t.Errorf("text block = %+v", blocks[0])
	}
	if blocks[1].Type != "tool_use" || blocks[1].Name != "add_task" || blocks[1].ID != "toolu_01" {
		t.Errorf("tool_use block = %+v", blocks[1])
	}

	// Tool result rides on a user message
	if result[2].Role != "user" {
		t.Errorf("tool result role = %q, want user", result[2].Role)
	}
	resBlocks, ok := result[2].Content.([]anthropicContent)
	if !ok || len(resBlocks) != 1 {
		t.Fatalf("tool result content = %+v", result[2].Content)
	}
	if resBlocks[0].Type != "tool_result" || resBlocks[0].ToolUseID != "toolu_01" {
		t.Errorf("tool_result block = %+v", resBlocks[0])
	}
}

func TestConvertToAnthropicGeneratesToolID(t *testing.T) {
	messages := []Message{
		{
			Role:      "assistant",
			ToolCalls: []ToolCall{NewToolCall("", "web_search", map[string]any{"query": "go"})},
		},
	}

	result, _ := convertToAnthropic(messages)
	blocks := result[0].Content.([]anthropicContent)
	if blocks[0].ID == "" {
		t.Error("expected generated tool_use ID for empty ToolCall.ID")
	}
}

func TestConvertFromAnthropic(t *testing.T) {
	resp := &anthropicResponse{
		Role:  "assistant",
		Model: "claude-sonnet-4-20250514",
		Content: []anthropicContent{
			{Type: "text", Text: "Let me search."},
			{Type: "tool_use", ID: "toolu_02", Name: "web_search", Input: map[string]any{"query": "weather"}},
		},
		Usage: anthropicUsage{InputTokens: 100, OutputTokens: 20},
	}

	result := convertFromAnthropic(resp)

	if result.Message.Content != "Let me search." {
		t.Errorf("content = %q", result.Message.Content)
	}
	if len(result.Message.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(result.Message.ToolCalls))
	}
	tc := result.Message.ToolCalls[0]
	if tc.ID != "toolu_02" || tc.Function.Name != "web_search" {
		t.Errorf("tool call = %+v", tc)
	}
	if q := tc.Function.Arguments["query"]; q != "weather" {
		t.Errorf("query arg = %v", q)
	}
	if result.InputTokens != 100 || result.OutputTokens != 20 {
		t.Errorf("usage = %d/%d", result.InputTokens, result.OutputTokens)
	}
}

func TestConvertToolsToAnthropic(t *testing.T) {
	tools := []map[string]any{
		{
			"type": "function",
			"function": map[string]any{
				"name":        "list_tasks",
				"description": "List open tasks.",
				"parameters": map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
		},
	}

	result := convertToolsToAnthropic(tools)
	if len(result) != 1 {
		t.Fatalf("tools = %d, want 1", len(result))
	}
	if result[0].Name != "list_tasks" || result[0].Description != "List open tasks." {
		t.Errorf("tool = %+v", result[0])
	}
	if result[0].InputSchema == nil {
		t.Error("expected input_schema to be set")
	}
}
