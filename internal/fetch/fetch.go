package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mimibot/mimi/internal/httpkit"
)

// DefaultMaxBytes is the maximum response body size for the HTTP
// fallback (5 MB).
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// DefaultMaxChars caps the text returned to the model.
const DefaultMaxChars = 15000

// Result holds fetched page content.
type Result struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Method    string `json:"method"` // camoufox_snapshot or http_extract
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Fetcher reads pages, preferring the browser sidecar.
type Fetcher struct {
	camoufox *Camoufox // nil when no sidecar is configured
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// New creates a Fetcher. camoufox may be nil to use plain HTTP only.
func New(camoufox *Camoufox, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		camoufox: camoufox,
		client: httpkit.NewClient(
			httpkit.WithTimeout(30 * time.Second),
		),
		maxBytes: DefaultMaxBytes,
		logger:   logger.With("component", "fetch"),
	}
}

// Fetch reads a URL and returns cleaned text, capped at maxChars
// (0 uses the default). The sidecar is tried first; any sidecar failure
// degrades to a plain HTTP fetch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxChars int) (*Result, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	if f.camoufox != nil {
		snapshot, err := f.camoufox.Snapshot(ctx, rawURL)
		if err == nil {
			content, truncated := capChars(snapshot, maxChars)
			return &Result{
				URL:       rawURL,
				Method:    "camoufox_snapshot",
				Content:   content,
				Truncated: truncated,
			}, nil
		}
		f.logger.Warn("sidecar fetch failed, falling back to HTTP", "url", rawURL, "error", err)
	}

	return f.fetchHTTP(ctx, rawURL, maxChars)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string, maxChars int) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))

	var title, content string
	switch {
	case strings.Contains(contentType, "text/html"), strings.Contains(contentType, "application/xhtml"):
		title, content = extractHTML(string(body))
	case utf8.Valid(body):
		content = string(body)
	default:
		return nil, fmt.Errorf("binary content (%s), %d bytes", contentType, len(body))
	}

	content, truncated := capChars(content, maxChars)
	return &Result{
		URL:       rawURL,
		Title:     title,
		Method:    "http_extract",
		Content:   content,
		Truncated: truncated,
	}, nil
}

// capChars truncates s to maxChars runes without splitting a multi-byte
// character.
func capChars(s string, maxChars int) (string, bool) {
	if utf8.RuneCountInString(s) <= maxChars {
		return s, false
	}
	count := 0
	for i := range s {
		if count >= maxChars {
			return s[:i], true
		}
		count++
	}
	return s, false
}
