// Package forge gives the agent pull request tools backed by the
// GitHub API.
package forge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v69/github"
)

// PullRequest is the subset of pull request data surfaced to the model.
type PullRequest struct {
	Number       int       `json:"number"`
	Title        string    `json:"title"`
	Body         string    `json:"body,omitempty"`
	State        string    `json:"state"`
	Author       string    `json:"author"`
	Head         string    `json:"head"`
	Base         string    `json:"base"`
	Draft        bool      `json:"draft,omitempty"`
	Additions    int       `json:"additions"`
	Deletions    int       `json:"deletions"`
	ChangedFiles int       `json:"changed_files"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewPullRequest describes a pull request to open.
type NewPullRequest struct {
	Title string
	Body  string
	Head  string
	Base  string
	Draft bool
}

// GitHub wraps the go-github SDK for the operations the agent needs.
type GitHub struct {
	client *gogithub.Client
	logger *slog.Logger
}

// NewGitHub creates a GitHub client. baseURL is empty for github.com,
// or the root of a GitHub Enterprise instance.
func NewGitHub(httpClient *http.Client, token, baseURL string, logger *slog.Logger) (*GitHub, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := gogithub.NewClient(httpClient).WithAuthToken(token)
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("github base url: %w", err)
		}
	}

	return &GitHub{client: client, logger: logger.With("component", "forge")}, nil
}

// splitRepo splits an "owner/repo" string into its two parts.
func splitRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("invalid repo %q: expected owner/repo", repo)
	}
	return owner, name, nil
}

// checkRateLimit warns when remaining API calls drop below threshold.
func (g *GitHub) checkRateLimit(resp *gogithub.Response) {
	if resp == nil {
		return
	}
	if resp.Rate.Remaining < 100 {
		g.logger.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset", resp.Rate.Reset.Time,
		)
	}
}

// CreatePR opens a pull request.
func (g *GitHub) CreatePR(ctx context.Context, repo string, pr *NewPullRequest) (*PullRequest, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	result, resp, err := g.client.PullRequests.Create(ctx, owner, name, &gogithub.NewPullRequest{
		Title: &pr.Title,
		Body:  &pr.Body,
		Head:  &pr.Head,
		Base:  &pr.Base,
		Draft: &pr.Draft,
	})
	if err != nil {
		return nil, fmt.Errorf("create pull request: %w", err)
	}
	g.checkRateLimit(resp)
	return convertPR(result), nil
}

// ListPRs returns pull requests filtered by state (open, closed, all).
func (g *GitHub) ListPRs(ctx context.Context, repo, state string, limit int) ([]*PullRequest, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	if state == "" {
		state = "open"
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	results, resp, err := g.client.PullRequests.List(ctx, owner, name, &gogithub.PullRequestListOptions{
		State:       state,
		ListOptions: gogithub.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("list pull requests: %w", err)
	}
	g.checkRateLimit(resp)

	prs := make([]*PullRequest, 0, len(results))
	for _, r := range results {
		prs = append(prs, convertPR(r))
	}
	return prs, nil
}

// GetPRDiff returns the raw unified diff for a pull request.
func (g *GitHub) GetPRDiff(ctx context.Context, repo string, number int) (string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return "", err
	}

	diff, resp, err := g.client.PullRequests.GetRaw(ctx, owner, name, number, gogithub.RawOptions{
		Type: gogithub.Diff,
	})
	if err != nil {
		return "", fmt.Errorf("get pull request diff: %w", err)
	}
	g.checkRateLimit(resp)
	return diff, nil
}

// SubmitReview posts a review on a pull request. event is APPROVE,
// REQUEST_CHANGES, or COMMENT.
func (g *GitHub) SubmitReview(ctx context.Context, repo string, number int, event, body string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}

	_, resp, err := g.client.PullRequests.CreateReview(ctx, owner, name, number, &gogithub.PullRequestReviewRequest{
		Body:  &body,
		Event: &event,
	})
	if err != nil {
		return fmt.Errorf("submit review: %w", err)
	}
	g.checkRateLimit(resp)
	return nil
}

func convertPR(pr *gogithub.PullRequest) *PullRequest {
	if pr == nil {
		return nil
	}
	return &PullRequest{
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Body:         pr.GetBody(),
		State:        pr.GetState(),
		Author:       pr.GetUser().GetLogin(),
		Head:         pr.GetHead().GetRef(),
		Base:         pr.GetBase().GetRef(),
		Draft:        pr.GetDraft(),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
		URL:          pr.GetHTMLURL(),
		CreatedAt:    pr.GetCreatedAt().Time,
	}
}
