package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConvertToOpenAIEncodesArguments(t *testing.T) {
	messages := []Message{
		{
			Role:      "assistant",
			ToolCalls: []ToolCall{NewToolCall("call_1", "read_file", map[string]any{"path": "notes.md"})},
		},
		{Role: "tool", Content: "contents", ToolCallID: "call_1"},
	}

	result := convertToOpenAI(messages)
	if len(result) != 2 {
		t.Fatalf("messages = %d, want 2", len(result))
	}

	tc := result[0].ToolCalls[0]
	if tc.Type != "function" || tc.ID != "call_1" {
		t.Errorf("tool call = %+v", tc)
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
		t.Fatalf("arguments not valid JSON: %v", err)
	}
	if args["path"] != "notes.md" {
		t.Errorf("path arg = %v", args["path"])
	}

	if result[1].ToolCallID != "call_1" {
		t.Errorf("tool_call_id = %q", result[1].ToolCallID)
	}
}

func TestConvertFromOpenAIMalformedArguments(t *testing.T) {
	resp := &openAIResponse{Model: "gpt-4o"}
	resp.Choices = append(resp.Choices, struct {
		Index        int           `json:"index"`
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	}{
		Message: openAIMessage{
			Role: "assistant",
			ToolCalls: []openAIToolCall{func() openAIToolCall {
				var tc openAIToolCall
				tc.ID = "call_x"
				tc.Type = "function"
				tc.Function.Name = "web_search"
				tc.Function.Arguments = `{"query": truncated`
				return tc
			}()},
		},
	})

	result := convertFromOpenAI(resp)
	tc := result.Message.ToolCalls[0]
	if tc.Function.Arguments["_raw"] != `{"query": truncated` {
		t.Errorf("malformed args should degrade to _raw, got %v", tc.Function.Arguments)
	}
}

func TestOpenAIChatRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-123" {
			t.Errorf("auth = %q", got)
		}

		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"model": "test-model",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": "hi"}, "finish_reason": "stop"},
			},
			"usage": map[string]any{"prompt_tokens": 5, "completion_tokens": 1},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "key-123", nil)
	resp, err := client.Chat(context.Background(), "test-model", []Message{{Role: "user", Content: "hello"}}, nil, Options{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "hi" {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if resp.InputTokens != 5 || resp.OutputTokens != 1 {
		t.Errorf("usage = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestOpenAIChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "", nil)
	_, err := client.Chat(context.Background(), "m", []Message{{Role: "user", Content: "x"}}, nil, Options{})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}
