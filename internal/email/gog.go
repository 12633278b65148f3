// Package email exposes Gmail tools backed by the gog CLI. All mail
// access goes through `gog gmail ...` subprocesses with JSON output;
// no mail credentials ever live in this process.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// defaultTimeout bounds a single gog invocation.
const defaultTimeout = 60 * time.Second

// Message is one Gmail message as reported by gog.
type Message struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Date     string `json:"date"`
	Body     string `json:"body,omitempty"`
}

// SendResult identifies a sent message.
type SendResult struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// Gog runs the gog mail CLI.
type Gog struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGog creates a runner for the given binary path ("" uses "gog"
// from PATH).
func NewGog(binary string, logger *slog.Logger) *Gog {
	if binary == "" {
		binary = "gog"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gog{
		binary:  binary,
		timeout: defaultTimeout,
		logger:  logger.With("component", "email"),
	}
}

// run executes `gog gmail <args>` and returns stdout. A non-zero exit
// is an error carrying the process's stderr.
func (g *Gog) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.binary, append([]string{"gmail"}, args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	g.logger.Debug("gog invocation",
		"args", strings.Join(args, " "),
		"duration", time.Since(start),
		"error", err,
	)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("gog timed out after %s", g.timeout)
	}
	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("gog failed: %s", detail)
	}
	return stdout.Bytes(), nil
}

// Search queries Gmail with the given search syntax and returns
// messages including their bodies.
func (g *Gog) Search(ctx context.Context, query string, maxResults int) ([]Message, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	out, err := g.run(ctx, "messages", "search", query,
		"--max", strconv.Itoa(maxResults), "--include-body", "--json")
	if err != nil {
		return nil, err
	}

	var result struct {
		Messages []Message `json:"messages"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("decode gog output: %w", err)
	}
	return result.Messages, nil
}

// Get fetches a single message by ID.
func (g *Gog) Get(ctx context.Context, messageID string) (*Message, error) {
	out, err := g.run(ctx, "get", messageID, "--json")
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(out, &m); err != nil {
		return nil, fmt.Errorf("decode gog output: %w", err)
	}
	return &m, nil
}

// Archive removes a message from the inbox.
func (g *Gog) Archive(ctx context.Context, messageID string) error {
	_, err := g.run(ctx, "batch", "modify", messageID, "--remove", "INBOX")
	return err
}

// Send sends a plain-text email. cc may be empty.
func (g *Gog) Send(ctx context.Context, to, subject, body, cc string) (*SendResult, error) {
	args := []string{"send", "--to", to, "--subject", subject, "--body", body, "--json"}
	if cc != "" {
		args = append(args, "--cc", cc)
	}

	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var result SendResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("decode gog output: %w", err)
	}
	return &result, nil
}
