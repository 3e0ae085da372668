// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package git

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/saltext-migrate/pkg/selector"
	"github.com/walteh/saltext-migrate/pkg/shell"
	"gitlab.com/tozd/go/errors"
)

const (
	// SaltRepoURL is cloned when no Salt checkout exists
	SaltRepoURL = "https://github.com/saltstack/salt"
	// FilterBranch holds the filtered history until it is merged
	FilterBranch = "filter-source"
	// PurgeCommitSearch selects the parent of the commit that removed community
	// modules, relative to a revision
	PurgeCommitSearch = "^{/Initial purge of community extensions}^"
	// PurgeCommitRef resolves to the commit right before community modules were removed
	PurgeCommitRef = "HEAD" + PurgeCommitSearch
	// MarkerFile only exists in a Salt checkout
	MarkerFile = "rfcs/0004-dunder-runner.md"
)

// 🌳 Source is the Salt checkout history is extracted from
type Source struct {
	*Repo
	BaseBranch string
}

// 🏭 NewSource creates a handle for the Salt checkout at path
func NewSource(runner shell.Runner, path, baseBranch string) *Source {
	return &Source{Repo: NewRepo(runner, path), BaseBranch: baseBranch}
}

// FS returns the checkout as a filesystem
func (s *Source) FS() fs.FS {
	return os.DirFS(s.Dir)
}

// Exists reports whether a slash path exists in the working tree
func (s *Source) Exists(path string) bool {
	_, err := os.Stat(filepath.Join(s.Dir, filepath.FromSlash(path)))
	return err == nil
}

// 🔄 Prepare clones the checkout if missing, ensures it is clean and on the
// base branch and removes a filter branch left over from an earlier run
func (s *Source) Prepare(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	info, err := os.Stat(s.Dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info().Str("path", s.Dir).Msg("did not find Salt checkout, cloning")
		cmd := command(filepath.Dir(s.Dir), "clone", "--branch", s.BaseBranch, SaltRepoURL, filepath.Base(s.Dir))
		cmd.Interactive = true
		if _, err := s.runner.Run(ctx, cmd); err != nil {
			return errors.Errorf("cloning Salt: %w", err)
		}
	case err != nil:
		return errors.Errorf("checking Salt checkout: %w", err)
	case !info.IsDir():
		return errors.Errorf("the path %s exists, but is not a directory", s.Dir)
	default:
		if gitInfo, err := os.Stat(filepath.Join(s.Dir, ".git")); err != nil || !gitInfo.IsDir() {
			return errors.Errorf("the path %s exists, but is not a git repository", s.Dir)
		}
	}

	clean, changes, err := s.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return errors.Errorf("the Salt checkout %s has uncommitted changes:\n  %s", s.Dir, strings.Join(changes, "\n  "))
	}

	if err := s.Switch(ctx, s.BaseBranch); err != nil {
		return errors.Errorf("preparing Salt checkout: %w", err)
	}
	s.DeleteBranch(ctx, FilterBranch)
	return nil
}

// Validate makes sure the checkout is actually Salt
func (s *Source) Validate(ctx context.Context) error {
	if !s.Exists(MarkerFile) {
		return errors.Errorf("Salt checkout is invalid, missing %s: %s", MarkerFile, s.Dir)
	}
	return nil
}

// VerifyPurgeCommit makes sure the base branch contains the removal of
// community modules, so resetting the filter branch later cannot fail
func (s *Source) VerifyPurgeCommit(ctx context.Context) error {
	ref := s.BaseBranch + PurgeCommitSearch
	if _, err := s.Git(ctx, "rev-parse", "--verify", ref); err != nil {
		return errors.Errorf("branch %s does not contain the module purge: %w", s.BaseBranch, err)
	}
	return nil
}

// 📊 Analyze generates git filter-repo --analyze reports unless present
func (s *Source) Analyze(ctx context.Context) (bool, error) {
	if s.Exists(selector.AllSizesReport) {
		return false, nil
	}
	if _, err := s.Git(ctx, "filter-repo", "--analyze"); err != nil {
		return false, errors.Errorf("analyzing Salt history: %w", err)
	}
	return true, nil
}

// StartFilterBranch creates the filter branch from the base branch
func (s *Source) StartFilterBranch(ctx context.Context) error {
	if _, err := s.Git(ctx, "switch", "-c", FilterBranch); err != nil {
		return errors.Errorf("creating branch %s: %w", FilterBranch, err)
	}
	return nil
}

// 🔪 FilterHistory rewrites the filter branch down to the planned paths and
// drops commits that became empty
func (s *Source) FilterHistory(ctx context.Context, filterArgs []string) error {
	args := append([]string{"filter-repo", "--refs", "refs/heads/" + FilterBranch, "--force"}, filterArgs...)
	if _, err := s.Git(ctx, args...); err != nil {
		return errors.Errorf("filtering history: %w", err)
	}

	if _, err := s.Git(ctx, "rebase", "--root", "--empty=drop", "--committer-date-is-author-date"); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("dropping empty commits failed, keeping them")
		s.GitQuiet(ctx, "rebase", "--abort")
	}
	return nil
}

// Leftovers lists python files still present in the working tree
func (s *Source) Leftovers(ctx context.Context) ([]string, error) {
	matches, err := doublestar.Glob(s.FS(), "**/*.py")
	if err != nil {
		return nil, errors.Errorf("listing python files: %w", err)
	}
	var out []string
	for _, m := range matches {
		if !strings.HasPrefix(m, ".git/") {
			out = append(out, m)
		}
	}
	return out, nil
}

// ⏪ ResetBeforePurge moves the filter branch to the commit preceding the
// removal of community modules and returns it
func (s *Source) ResetBeforePurge(ctx context.Context) (string, error) {
	out, err := s.Git(ctx, "rev-parse", "--verify", PurgeCommitRef)
	if err != nil {
		return "", errors.Errorf("finding the commit before the module purge: %w", err)
	}
	commit := strings.TrimSpace(out)
	if _, err := s.Git(ctx, "reset", "--hard", commit); err != nil {
		return "", errors.Errorf("resetting to %s: %w", commit, err)
	}
	return commit, nil
}

// 🧹 Cleanup switches back to the base branch and removes the filter branch
func (s *Source) Cleanup(ctx context.Context) error {
	if err := s.Switch(ctx, s.BaseBranch); err != nil {
		return err
	}
	s.DeleteBranch(ctx, FilterBranch)
	return nil
}
