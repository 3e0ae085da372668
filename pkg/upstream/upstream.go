// Package upstream looks for an extension repository that already exists on GitHub.
package upstream

import (
	"context"
	"net/http"
	"os"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Org is the GitHub organization community extensions live in
const Org = "salt-extensions"

// RepositoryGetter is the part of the GitHub API the check needs
type RepositoryGetter interface {
	Get(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error)
}

// 🔎 Checker looks up extension repositories
type Checker struct {
	repos RepositoryGetter
}

// 🏭 NewChecker creates a checker using GITHUB_TOKEN when set
func NewChecker() *Checker {
	client := github.NewClient(nil)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		client = client.WithAuthToken(token)
	}
	return NewCheckerWithClient(client)
}

// NewCheckerWithClient creates a checker for a preconfigured client
func NewCheckerWithClient(client *github.Client) *Checker {
	return &Checker{repos: client.Repositories}
}

// 📦 Existing describes an extension repository found upstream
type Existing struct {
	FullName string
	URL      string
	Archived bool
}

// Find returns the upstream repository for project, or nil when there is none
func (c *Checker) Find(ctx context.Context, project string) (*Existing, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("org", Org).Str("repo", project).Msg("checking for upstream repository")

	repo, resp, err := c.repos.Get(ctx, Org, project)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, errors.Errorf("looking up %s/%s: %w", Org, project, err)
	}

	return &Existing{
		FullName: repo.GetFullName(),
		URL:      repo.GetHTMLURL(),
		Archived: repo.GetArchived(),
	}, nil
}
