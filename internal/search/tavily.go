package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mimibot/mimi/internal/httpkit"
)

const tavilyDefaultURL = "https://api.tavily.com"

// Tavily is the primary search provider. Richer results than the
// keyless fallback, requires an API key.
type Tavily struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewTavily creates a Tavily provider.
func NewTavily(apiKey string) *Tavily {
	return &Tavily{
		baseURL: tavilyDefaultURL,
		apiKey:  apiKey,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(20 * time.Second),
		),
	}
}

type tavilyRequest struct {
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search queries the Tavily API.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) (*Response, error) {
	body, err := json.Marshal(tavilyRequest{
		Query:         query,
		MaxResults:    maxResults,
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 2048)
		return nil, fmt.Errorf("tavily error %d: %s", resp.StatusCode, errBody)
	}

	var data tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := &Response{Source: "tavily", Answer: data.Answer}
	for _, r := range data.Results {
		snippet := r.Content
		if len(snippet) > 400 {
			snippet = snippet[:400]
		}
		result.Results = append(result.Results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: snippet,
		})
	}
	return result, nil
}
