// Package fetch reads web pages for the research tools. The primary
// path renders the page in a Camoufox headless-browser sidecar to get
// past bot protection; a plain HTTP fetch with HTML text extraction is
// the fallback when the sidecar is unreachable.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mimibot/mimi/internal/httpkit"
)

// camoufoxUser identifies our tabs to the sidecar.
const camoufoxUser = "system"

// Camoufox is a client for the headless-browser sidecar. Each fetch
// opens a fresh tab, takes an accessibility snapshot, and deletes the
// tab immediately.
type Camoufox struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCamoufox creates a sidecar client for the given base URL
// (e.g. http://localhost:9377).
func NewCamoufox(baseURL string, logger *slog.Logger) *Camoufox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Camoufox{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("component", "camoufox"),
		httpClient: httpkit.NewClient(
			// Page loads can be slow behind bot checks.
			httpkit.WithTimeout(60 * time.Second),
		),
	}
}

type tabRequest struct {
	UserID     string `json:"userId"`
	SessionKey string `json:"sessionKey"`
	URL        string `json:"url"`
}

type tabResponse struct {
	TabID string `json:"tabId"`
}

type snapshotResponse struct {
	Snapshot string `json:"snapshot"`
}

// Snapshot renders a URL and returns the page's accessibility snapshot.
func (c *Camoufox) Snapshot(ctx context.Context, rawURL string) (string, error) {
	sessionKey, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("session key: %w", err)
	}

	body, err := json.Marshal(tabRequest{
		UserID:     camoufoxUser,
		SessionKey: sessionKey.String(),
		URL:        rawURL,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/tabs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("open tab: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		errBody := httpkit.ReadErrorBody(resp.Body, 2048)
		return "", fmt.Errorf("open tab: status %d: %s", resp.StatusCode, errBody)
	}

	var tab tabResponse
	err = json.NewDecoder(resp.Body).Decode(&tab)
	resp.Body.Close()
	if err != nil {
		return "", fmt.Errorf("decode tab response: %w", err)
	}
	if tab.TabID == "" {
		return "", fmt.Errorf("sidecar returned empty tab id")
	}

	// Tab cleanup is best-effort; a leaked tab times out on the sidecar.
	defer c.closeTab(tab.TabID)

	snapReq, err := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/tabs/%s/snapshot?userId=%s", c.baseURL, tab.TabID, camoufoxUser), nil)
	if err != nil {
		return "", fmt.Errorf("create snapshot request: %w", err)
	}

	snapResp, err := c.httpClient.Do(snapReq)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	defer snapResp.Body.Close()

	if snapResp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(snapResp.Body, 2048)
		return "", fmt.Errorf("snapshot: status %d: %s", snapResp.StatusCode, errBody)
	}

	var snap snapshotResponse
	if err := json.NewDecoder(snapResp.Body).Decode(&snap); err != nil {
		return "", fmt.Errorf("decode snapshot: %w", err)
	}
	return snap.Snapshot, nil
}

func (c *Camoufox) closeTab(tabID string) {
	req, err := http.NewRequest("DELETE", c.baseURL+"/tabs/"+tabID, nil)
	if err != nil {
		return
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("tab cleanup failed", "tab", tabID, "error", err)
		return
	}
	httpkit.DrainAndClose(resp.Body, 1024)
}
