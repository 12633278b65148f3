package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mimibot/mimi/internal/config"
	"github.com/mimibot/mimi/internal/httpkit"
)

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient speaks the OpenAI chat completions wire format. It backs
// the openai provider as well as any OpenAI-compatible endpoint (Ollama's
// /v1 surface, 9Router).
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
// baseURL should include the /v1 prefix; apiKey may be empty for local
// backends that don't authenticate.
func NewOpenAIClient(baseURL, apiKey string, logger *slog.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger.With("provider", "openai-compatible"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
		),
	}
}

// OpenAI wire types. Tool call arguments travel as a JSON-encoded string
// on this wire, unlike our internal map form.

type openAIRequest struct {
	Model       string           `json:"model"`
	Messages    []openAIMessage  `json:"messages"`
	Tools       []map[string]any `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message, tools []map[string]any, opts Options) (*ChatResponse, error) {
	req := openAIRequest{
		Model:     model,
		Messages:  convertToOpenAI(messages),
		Tools:     tools,
		MaxTokens: opts.MaxTokens,
	}
	if opts.Temperature > 0 {
		req.Temperature = &opts.Temperature
	}

	c.logger.Debug("preparing request",
		"model", model,
		"messages", len(req.Messages),
		"tools", len(tools),
	)

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Log(ctx, config.LevelTrace, "request payload", "json", string(jsonData))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 4096)
		c.logger.Error("API error", "status", resp.StatusCode, "body", errBody)
		return nil, fmt.Errorf("chat completions error %d: %s", resp.StatusCode, errBody)
	}

	var apiResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in response")
	}

	result := convertFromOpenAI(&apiResp)

	c.logger.Debug("response received",
		"model", result.Model,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"tool_calls", len(result.Message.ToolCalls),
	)

	return result, nil
}

// Ping checks if the endpoint is reachable by listing models.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d", resp.StatusCode)
	}
	return nil
}

// convertToOpenAI converts internal messages to the wire format. Tool
// call arguments are re-encoded as JSON strings.
func convertToOpenAI(messages []Message) []openAIMessage {
	result := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		om := openAIMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for i, tc := range msg.ToolCalls {
			args := tc.Function.Arguments
			if args == nil {
				args = map[string]any{}
			}
			encoded, err := json.Marshal(args)
			if err != nil {
				encoded = []byte("{}")
			}
			id := tc.ID
			if id == "" {
				id = fmt.Sprintf("call_%s_%d", tc.Function.Name, i)
			}
			var otc openAIToolCall
			otc.ID = id
			otc.Type = "function"
			otc.Function.Name = tc.Function.Name
			otc.Function.Arguments = string(encoded)
			om.ToolCalls = append(om.ToolCalls, otc)
		}
		result = append(result, om)
	}
	return result
}

// convertFromOpenAI converts a wire response to our internal format,
// decoding tool call argument strings back to maps. Malformed argument
// JSON degrades to a _raw payload rather than failing the turn.
func convertFromOpenAI(resp *openAIResponse) *ChatResponse {
	choice := resp.Choices[0]

	var toolCalls []ToolCall
	for _, otc := range choice.Message.ToolCalls {
		var args map[string]any
		if otc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(otc.Function.Arguments), &args); err != nil {
				args = map[string]any{"_raw": otc.Function.Arguments}
			}
		}
		toolCalls = append(toolCalls, NewToolCall(otc.ID, otc.Function.Name, args))
	}

	return &ChatResponse{
		Model:     resp.Model,
		CreatedAt: time.Unix(resp.Created, 0),
		Message: Message{
			Role:      "assistant",
			Content:   choice.Message.Content,
			ToolCalls: toolCalls,
		},
		Done:         true,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
}
