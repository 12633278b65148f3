package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mimibot/mimi/internal/tools"
)

// maxDiffChars bounds the diff text returned to the model.
const maxDiffChars = 40000

// Tools holds pull request tool dependencies. gh may be nil when no
// token is configured; every handler then fails up front without
// touching the network.
type Tools struct {
	gh          *GitHub
	defaultRepo string // "owner/repo", may be empty
}

// NewTools creates the pull request tools. Pass a nil GitHub client
// when the forge is not configured.
func NewTools(gh *GitHub, defaultRepo string) *Tools {
	return &Tools{gh: gh, defaultRepo: defaultRepo}
}

// RegisterTools adds the pull request tools to a registry.
func (t *Tools) RegisterTools(r *tools.Registry) {
	repoParam := map[string]any{
		"type":        "string",
		"description": "Repository as owner/repo. Omit to use the configured default.",
	}

	r.Register(&tools.Tool{
		Name:        "create_pull_request",
		Description: "Open a pull request from a head branch into a base branch.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo":  repoParam,
				"title": map[string]any{"type": "string", "description": "Pull request title"},
				"body":  map[string]any{"type": "string", "description": "Pull request description (Markdown)"},
				"head":  map[string]any{"type": "string", "description": "Branch with the changes"},
				"base":  map[string]any{"type": "string", "description": "Branch to merge into"},
				"draft": map[string]any{"type": "boolean", "description": "Open as a draft"},
			},
			"required": []string{"title", "head", "base"},
		},
		Handler: t.handleCreatePR,
	})

	r.Register(&tools.Tool{
		Name:        "list_pull_requests",
		Description: "List pull requests in a repository.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo": repoParam,
				"state": map[string]any{
					"type":        "string",
					"enum":        []string{"open", "closed", "all"},
					"description": "Filter by state (default open)",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum results (default 20, max 50)",
				},
			},
		},
		Handler: t.handleListPRs,
	})

	r.Register(&tools.Tool{
		Name:        "get_pull_request_diff",
		Description: "Get the unified diff of a pull request.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo":   repoParam,
				"number": map[string]any{"type": "integer", "description": "Pull request number"},
			},
			"required": []string{"number"},
		},
		Handler: t.handleGetPRDiff,
	})

	r.Register(&tools.Tool{
		Name:        "review_pull_request",
		Description: "Submit a review on a pull request: approve, request changes, or comment.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"repo":   repoParam,
				"number": map[string]any{"type": "integer", "description": "Pull request number"},
				"event": map[string]any{
					"type":        "string",
					"enum":        []string{"APPROVE", "REQUEST_CHANGES", "COMMENT"},
					"description": "Review verdict",
				},
				"body": map[string]any{"type": "string", "description": "Review text"},
			},
			"required": []string{"number", "event"},
		},
		Handler: t.handleReviewPR,
	})
}

// resolveRepo picks the repo argument or falls back to the default.
// Called after the nil-client check, so a configured client with no
// default still works when the model names the repo explicitly.
func (t *Tools) resolveRepo(args map[string]any) (string, error) {
	if repo, _ := args["repo"].(string); repo != "" {
		return repo, nil
	}
	if t.defaultRepo != "" {
		return t.defaultRepo, nil
	}
	return "", fmt.Errorf("no repo given and no default repository configured")
}

func (t *Tools) ensureClient() error {
	if t.gh == nil {
		return fmt.Errorf("github is not configured: set a github token")
	}
	return nil
}

func (t *Tools) handleCreatePR(ctx context.Context, args map[string]any) (string, error) {
	if err := t.ensureClient(); err != nil {
		return "", err
	}
	repo, err := t.resolveRepo(args)
	if err != nil {
		return "", err
	}

	title, _ := args["title"].(string)
	body, _ := args["body"].(string)
	head, _ := args["head"].(string)
	base, _ := args["base"].(string)
	draft, _ := args["draft"].(bool)

	pr, err := t.gh.CreatePR(ctx, repo, &NewPullRequest{
		Title: title,
		Body:  body,
		Head:  head,
		Base:  base,
		Draft: draft,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Opened pull request #%d: %s\n%s", pr.Number, pr.Title, pr.URL), nil
}

func (t *Tools) handleListPRs(ctx context.Context, args map[string]any) (string, error) {
	if err := t.ensureClient(); err != nil {
		return "", err
	}
	repo, err := t.resolveRepo(args)
	if err != nil {
		return "", err
	}

	state, _ := args["state"].(string)
	limit := 0
	if v, ok := args["limit"].(float64); ok {
		limit = int(v)
	}

	prs, err := t.gh.ListPRs(ctx, repo, state, limit)
	if err != nil {
		return "", err
	}
	if len(prs) == 0 {
		return fmt.Sprintf("No pull requests in %s.", repo), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d pull requests in %s:\n", len(prs), repo)
	for _, pr := range prs {
		fmt.Fprintf(&b, "- #%d [%s] %s (%s → %s) by %s\n",
			pr.Number, pr.State, pr.Title, pr.Head, pr.Base, pr.Author)
	}
	return b.String(), nil
}

func (t *Tools) handleGetPRDiff(ctx context.Context, args map[string]any) (string, error) {
	if err := t.ensureClient(); err != nil {
		return "", err
	}
	repo, err := t.resolveRepo(args)
	if err != nil {
		return "", err
	}

	number, _ := args["number"].(float64)
	diff, err := t.gh.GetPRDiff(ctx, repo, int(number))
	if err != nil {
		return "", err
	}

	if len(diff) > maxDiffChars {
		diff = diff[:maxDiffChars] + fmt.Sprintf("\n... (diff truncated at %d characters)", maxDiffChars)
	}
	return diff, nil
}

func (t *Tools) handleReviewPR(ctx context.Context, args map[string]any) (string, error) {
	if err := t.ensureClient(); err != nil {
		return "", err
	}
	repo, err := t.resolveRepo(args)
	if err != nil {
		return "", err
	}

	number, _ := args["number"].(float64)
	event, _ := args["event"].(string)
	body, _ := args["body"].(string)

	if err := t.gh.SubmitReview(ctx, repo, int(number), event, body); err != nil {
		return "", err
	}

	out, _ := json.Marshal(map[string]any{
		"repo":   repo,
		"number": int(number),
		"event":  event,
		"status": "submitted",
	})
	return string(out), nil
}
