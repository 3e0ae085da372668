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

// Package git drives the git operations of a migration: preparing and
// filtering the Salt checkout and assembling the extension history.
package git

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/saltext-migrate/pkg/shell"
	"gitlab.com/tozd/go/errors"
)

// 🔧 Repo runs git inside a single working tree
type Repo struct {
	Dir    string
	runner shell.Runner
}

// 🏭 NewRepo creates a repo handle for dir
func NewRepo(runner shell.Runner, dir string) *Repo {
	return &Repo{Dir: dir, runner: runner}
}

// Git runs a git subcommand with commit signing disabled
func (r *Repo) Git(ctx context.Context, args ...string) (string, error) {
	return r.runner.Run(ctx, command(r.Dir, args...))
}

// GitQuiet runs a git subcommand whose failure is expected and only logged
func (r *Repo) GitQuiet(ctx context.Context, args ...string) {
	if _, err := r.Git(ctx, args...); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Strs("args", args).Msg("ignoring git failure")
	}
}

// IsClean reports whether the working tree has no changes, listing them otherwise
func (r *Repo) IsClean(ctx context.Context) (bool, []string, error) {
	out, err := r.Git(ctx, "status", "--porcelain")
	if err != nil {
		return false, nil, errors.Errorf("checking working tree: %w", err)
	}
	changes := lines(out)
	return len(changes) == 0, changes, nil
}

// Switch checks out an existing branch
func (r *Repo) Switch(ctx context.Context, branch string) error {
	if _, err := r.Git(ctx, "switch", branch); err != nil {
		return errors.Errorf("switching to branch %q: %w", branch, err)
	}
	return nil
}

// DeleteBranch force-deletes a branch, ignoring a missing one
func (r *Repo) DeleteBranch(ctx context.Context, branch string) {
	r.GitQuiet(ctx, "branch", "-D", branch)
}

func command(dir string, args ...string) shell.Command {
	return shell.Command{
		Dir:  dir,
		Name: "git",
		Args: append([]string{"-c", "commit.gpgsign=0"}, args...),
	}
}

func lines(out string) []string {
	var res []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimRight(l, "\r"); strings.TrimSpace(l) != "" {
			res = append(res, l)
		}
	}
	return res
}
