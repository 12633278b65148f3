// Package agent implements the core agent loop: one user turn in, one
// persisted assistant reply out, with bounded tool-calling rounds in
// between.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mimibot/mimi/internal/history"
	"github.com/mimibot/mimi/internal/llm"
	"github.com/mimibot/mimi/internal/memory"
	"github.com/mimibot/mimi/internal/prompts"
	"github.com/mimibot/mimi/internal/tools"
)

// maxSteps bounds the number of model calls per turn. Tool calls
// requested on the final step still execute; the cap cuts the extra
// drafting round, not the requested effects.
const maxSteps = 10

// Defaults for the context window and transcript retention.
const (
	DefaultWindow   = 40
	DefaultKeepLast = 100
)

// noResponseFallback is returned when the step cap hits without the
// model ever producing text.
const noResponseFallback = "(no response generated)"

// ResolveFunc turns a provider spec into a client for one turn.
type ResolveFunc func(llm.ProviderSpec) (llm.Client, string, llm.Options, error)

// ProgressFunc receives a truncated preview after each drafting step.
type ProgressFunc func(preview string)

// TurnConfig carries the per-turn routing decision: which persona
// handles the message and which backend drafts it.
type TurnConfig struct {
	Persona  *prompts.Persona
	Provider llm.ProviderSpec
}

// Loop executes agent turns against shared stores.
type Loop struct {
	history  *history.Store
	gateway  memory.Gateway
	registry *tools.Registry
	resolve  ResolveFunc
	logger   *slog.Logger

	window   int
	keepLast int
	steps    int
	now      func() time.Time
}

// NewLoop creates an agent loop. gateway may be nil when no memory
// sidecar is configured; turns then run without remembered facts.
func NewLoop(hist *history.Store, gateway memory.Gateway, registry *tools.Registry, resolve ResolveFunc, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		history:  hist,
		gateway:  gateway,
		registry: registry,
		resolve:  resolve,
		logger:   logger.With("component", "agent"),
		window:   DefaultWindow,
		keepLast: DefaultKeepLast,
		steps:    maxSteps,
		now:      time.Now,
	}
}

// SetWindow overrides the history window and retention bounds.
func (l *Loop) SetWindow(window, keepLast int) {
	if window > 0 {
		l.window = window
	}
	if keepLast > 0 {
		l.keepLast = keepLast
	}
}

// SetMaxSteps overrides the per-turn model call cap.
func (l *Loop) SetMaxSteps(n int) {
	if n > 0 {
		l.steps = n
	}
}

// SetLocation pins the wall clock shown in system prompts to the
// configured timezone instead of the server's.
func (l *Loop) SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	l.now = func() time.Time { return time.Now().In(loc) }
}

// RunTurn processes one user message and returns the assistant's reply.
// Exactly one user row and one assistant row are appended whether the
// turn succeeds or the backend fails; backend failures come back as a
// deterministic error reply, not an error. Only store failures
// propagate as errors.
func (l *Loop) RunTurn(ctx context.Context, convID, userText string, cfg TurnConfig, onProgress ProgressFunc) (string, error) {
	persona := cfg.Persona
	start := l.now()
	turnID := newTurnID()
	log := l.logger.With("turn", turnID, "conversation", convID, "persona", persona.Name)

	if _, err := l.history.Append(convID, "user", persona.HistoryLabel+userText, nil); err != nil {
		return "", fmt.Errorf("append user message: %w", err)
	}

	window, err := l.history.Recent(convID, l.window)
	if err != nil {
		return "", fmt.Errorf("read history: %w", err)
	}
	// The turn's own user row replays as an explicit trailing message,
	// not as history.
	if n := len(window); n > 0 && window[n-1].Role == "user" {
		window = window[:n-1]
	}

	facts := l.recallFacts(ctx, convID)
	system := prompts.BuildSystemPrompt(persona, convID, facts, l.now())

	bundle, err := l.registry.Bundle(persona.Bundle)
	if err != nil {
		return l.failTurn(convID, persona, err)
	}
	// A persona with a pinned backend wins over the chat's provider.
	spec := cfg.Provider
	if persona.Provider != "" {
		spec.Provider = persona.Provider
	}
	if persona.Model != "" {
		spec.Model = persona.Model
	}
	client, model, opts, err := l.resolve(spec)
	if err != nil {
		return l.failTurn(convID, persona, err)
	}
	if persona.Temperature > 0 {
		opts.Temperature = persona.Temperature
	}

	turn := make([]llm.Message, 0, len(window)+2)
	turn = append(turn, llm.Message{Role: "system", Content: system})
	turn = append(turn, prompts.FormatHistory(window)...)
	turn = append(turn, llm.Message{Role: "user", Content: userText})

	toolCtx := tools.WithConversationID(ctx, convID)
	schemas := bundle.List()

	var transcript []llm.ToolResult
	var finalText string

	for step := 0; step < l.steps; step++ {
		resp, err := client.Chat(ctx, model, turn, schemas, opts)
		if err != nil {
			log.Error("model call failed", "step", step, "error", err)
			return l.failTurn(convID, persona, err)
		}

		if resp.Message.Content != "" {
			finalText = resp.Message.Content
		}
		notifyProgress(onProgress, resp.Message.Content)

		calls := resp.Message.ToolCalls
		if len(calls) == 0 {
			break
		}

		turn = append(turn, llm.Message{
			Role:      "assistant",
			Content:   resp.Message.Content,
			ToolCalls: calls,
		})
		for _, call := range calls {
			result := l.dispatch(toolCtx, bundle, call)
			transcript = append(transcript, llm.ToolResult{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
				Result:    result,
			})
			turn = append(turn, llm.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	if finalText == "" {
		finalText = noResponseFallback
	}

	if _, err := l.history.Append(convID, "assistant", persona.ResponseLabel+finalText, transcript); err != nil {
		return "", fmt.Errorf("append assistant message: %w", err)
	}
	if _, err := l.history.Trim(convID, l.keepLast); err != nil {
		return "", fmt.Errorf("trim history: %w", err)
	}

	log.Info("turn completed",
		"tool_calls", len(transcript),
		"duration", time.Since(start),
	)
	return finalText, nil
}

// dispatch runs one tool call. Every failure mode — unavailable tool,
// invalid arguments, handler error — produces the same {"error": ...}
// payload shape so the model sees errors as data.
func (l *Loop) dispatch(ctx context.Context, bundle *tools.Bundle, call llm.ToolCall) string {
	name := call.Function.Name

	out, err := bundle.Execute(ctx, name, call.Function.Arguments)
	if err != nil {
		l.logger.Warn("tool call failed", "tool", name, "error", err)
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(payload)
	}

	l.logger.Debug("tool call completed", "tool", name, "output_bytes", len(out))
	return out
}

// failTurn persists a deterministic error reply as the assistant row so
// both success and failure leave the same transcript shape.
func (l *Loop) failTurn(convID string, persona *prompts.Persona, cause error) (string, error) {
	reply := "Agent error: " + cause.Error()

	if _, err := l.history.Append(convID, "assistant", persona.ResponseLabel+reply, nil); err != nil {
		return "", fmt.Errorf("append error reply: %w", err)
	}
	if _, err := l.history.Trim(convID, l.keepLast); err != nil {
		return "", fmt.Errorf("trim history: %w", err)
	}
	return reply, nil
}

// recallFacts loads remembered facts for the prompt. Gateway failures
// degrade to an empty memory section; the turn proceeds regardless.
func (l *Loop) recallFacts(ctx context.Context, convID string) []string {
	if l.gateway == nil {
		return nil
	}

	results, err := l.gateway.Search(ctx, "*", convID)
	if err != nil {
		l.logger.Warn("memory gateway unavailable, continuing without facts", "error", err)
		return nil
	}

	facts := make([]string, 0, len(results))
	for _, f := range results {
		facts = append(facts, f.Content)
	}
	return facts
}

// newTurnID returns a sortable unique ID correlating all log lines of
// one turn.
func newTurnID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "unknown"
	}
	return id.String()
}

// notifyProgress invokes the progress callback with a bounded preview.
// Callback panics are contained; progress is cosmetic.
func notifyProgress(onProgress ProgressFunc, text string) {
	if onProgress == nil || text == "" {
		return
	}
	defer func() {
		_ = recover()
	}()

	runes := []rune(text)
	if len(runes) > 200 {
		text = string(runes[:200])
	}
	onProgress(text)
}
