package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mimibot/mimi/internal/httpkit"
)

const duckDuckGoDefaultURL = "https://api.duckduckgo.com"

// DuckDuckGo is the keyless fallback provider, backed by the instant
// answer JSON API. Coverage is thinner than a real index but it never
// needs credentials.
type DuckDuckGo struct {
	baseURL    string
	httpClient *http.Client
}

// NewDuckDuckGo creates a DuckDuckGo provider.
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		baseURL: duckDuckGoDefaultURL,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(20 * time.Second),
		),
	}
}

type ddgResponse struct {
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search queries the instant answer API.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) (*Response, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, "GET", d.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 2048)
		return nil, fmt.Errorf("duckduckgo error %d: %s", resp.StatusCode, errBody)
	}

	var data ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := &Response{Source: "duckduckgo"}
	if data.AbstractText != "" {
		result.Results = append(result.Results, Result{
			Title:   "Summary",
			URL:     data.AbstractURL,
			Snippet: data.AbstractText,
		})
	}
	for _, topic := range data.RelatedTopics {
		if len(result.Results) >= maxResults {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		title, _, _ := strings.Cut(topic.Text, " - ")
		result.Results = append(result.Results, Result{
			Title:   title,
			URL:     topic.FirstURL,
			Snippet: topic.Text,
		})
	}
	return result, nil
}
