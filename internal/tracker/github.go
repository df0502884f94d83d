package tracker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/google/go-github/v66/github"
	"github.com/rs/zerolog/log"
)

// UrgentLabel marks records that are assigned to AlertAssignees on creation.
const UrgentLabel = "urgent"

// GitHubConfig configures the GitHub issues recorder.
type GitHubConfig struct {
	Token string
	Owner string
	Repo  string
	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise or tests.
	BaseURL        string
	AlertAssignees []string
	HTTPClient     *http.Client
}

// GitHub records ledger state as issues of a single repository.
type GitHub struct {
	client    *github.Client
	owner     string
	repo      string
	assignees []string
}

// NewGitHub creates a GitHub recorder.
func NewGitHub(cfg GitHubConfig) *GitHub {
	client := github.NewClient(cfg.HTTPClient)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		if u, err := url.Parse(base); err == nil {
			client.BaseURL = u
		} else {
			log.Warn().Err(err).Str("base_url", cfg.BaseURL).Msg("ignoring invalid github base url")
		}
	}
	return &GitHub{
		client:    client,
		owner:     cfg.Owner,
		repo:      cfg.Repo,
		assignees: cfg.AlertAssignees,
	}
}

// Create opens an issue and returns its number.
func (g *GitHub) Create(ctx context.Context, title, body string, labels []string) (int, error) {
	req := &github.IssueRequest{
		Title:  github.String(title),
		Body:   github.String(body),
		Labels: &labels,
	}
	if len(g.assignees) > 0 && slices.Contains(labels, UrgentLabel) {
		assignees := slices.Clone(g.assignees)
		req.Assignees = &assignees
	}
	issue, _, err := g.client.Issues.Create(ctx, g.owner, g.repo, req)
	if err != nil {
		return 0, fmt.Errorf("create issue: %w", err)
	}
	log.Info().Int("issue", issue.GetNumber()).Str("title", title).Msg("created issue")
	return issue.GetNumber(), nil
}

// Update replaces the body of issue id.
func (g *GitHub) Update(ctx context.Context, id int, body string) error {
	if _, _, err := g.client.Issues.Edit(ctx, g.owner, g.repo, id, &github.IssueRequest{Body: github.String(body)}); err != nil {
		return fmt.Errorf("update issue %d: %w", id, err)
	}
	return nil
}

// Comment adds a comment to an issue or pull request.
func (g *GitHub) Comment(ctx context.Context, threadID int, body string) error {
	if _, _, err := g.client.Issues.CreateComment(ctx, g.owner, g.repo, threadID, &github.IssueComment{Body: github.String(body)}); err != nil {
		return fmt.Errorf("comment on #%d: %w", threadID, err)
	}
	return nil
}
