// Package memory proxies long-term facts to an OpenMemory-compatible
// gateway sidecar. Facts are opaque (id, content) pairs scoped by a
// user/conversation key; the gateway owns storage and retrieval.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mimibot/mimi/internal/httpkit"
)

// Fact is one remembered item.
type Fact struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Gateway is the memory surface the agent loop and tools depend on.
type Gateway interface {
	// Search returns facts matching query within a scope. "*" matches
	// everything.
	Search(ctx context.Context, query, scope string) ([]Fact, error)

	// Add stores a new fact in a scope.
	Add(ctx context.Context, content, scope string) error

	// Delete removes a fact by ID.
	Delete(ctx context.Context, id string) error
}

// Client talks to the gateway over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("component", "memory"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(15 * time.Second),
		),
	}
}

type searchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

type searchResponse struct {
	Results []Fact `json:"results"`
}

type addRequest struct {
	Content string `json:"content"`
	UserID  string `json:"user_id"`
}

// Search returns facts matching query within a scope.
func (c *Client) Search(ctx context.Context, query, scope string) ([]Fact, error) {
	body, err := json.Marshal(searchRequest{Query: query, UserID: scope})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 2048)
		return nil, fmt.Errorf("memory gateway error %d: %s", resp.StatusCode, errBody)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("memory search", "query", query, "scope", scope, "results", len(result.Results))
	return result.Results, nil
}

// Add stores a new fact in a scope.
func (c *Client) Add(ctx context.Context, content, scope string) error {
	body, err := json.Marshal(addRequest{Content: content, UserID: scope})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/memories", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 2048)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("memory gateway error %d", resp.StatusCode)
	}
	return nil
}

// Delete removes a fact by ID.
func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", c.baseURL+"/memories/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 2048)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("memory not found: %s", id)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("memory gateway error %d", resp.StatusCode)
	}
	return nil
}
