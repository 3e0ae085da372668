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

// Package scaffold generates the extension project with the copier template.
package scaffold

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/saltext-migrate/pkg/config"
	"github.com/walteh/saltext-migrate/pkg/shell"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// QuestionsURL documents the template questions asked in interactive runs
const QuestionsURL = "https://salt-extensions.github.io/salt-extension-copier/ref/questions.html"

// SamplePatterns match example files shipped by the template that the
// migrated modules and tests replace
var SamplePatterns = []string{"tests/**/test_*.py", "src/**/*_mod.py"}

// Answers are the values handed to copier
type Answers = config.Answers

// 📋 Options describes the project to generate
type Options struct {
	Name           string   // Extension name, used as project_name
	Template       string   // Copier template source
	Dest           string   // Project directory
	DataFile       string   // Optional answers file
	NonInteractive bool     // Accept template defaults for unanswered questions
	Loaders        []string // Loader types to generate
	TestContainers bool     // Whether migrated tests start containers
}

// 📝 BuildAnswers merges template defaults, the answers file and computed values,
// later sources winning
func BuildAnswers(ctx context.Context, opts Options) (Answers, error) {
	answers := Answers{
		"no_saltext_namespace": false,
		"license":              "apache",
	}
	if opts.NonInteractive {
		answers["author"] = "Foo Bar"
		answers["author_email"] = "foo@b.ar"
	}

	if opts.DataFile != "" {
		fromFile, err := config.LoadAnswers(ctx, opts.DataFile)
		if err != nil {
			return nil, err
		}
		answers.Merge(fromFile)
	}

	loaders := append([]string{}, opts.Loaders...)
	sort.Strings(loaders)
	answers["project_name"] = opts.Name
	answers["loaders"] = loaders
	if opts.TestContainers {
		answers["test_containers"] = true
	}
	return answers, nil
}

// 🏗️ Generator runs copier
type Generator struct {
	runner shell.Runner
}

// 🏭 NewGenerator creates a generator
func NewGenerator(runner shell.Runner) *Generator {
	return &Generator{runner: runner}
}

// Generate renders the template into opts.Dest and removes sample files.
// It returns the removed sample files relative to opts.Dest.
func (g *Generator) Generate(ctx context.Context, opts Options, answers Answers) ([]string, error) {
	dataFile, err := writeDataFile(answers)
	if err != nil {
		return nil, err
	}
	defer os.Remove(dataFile)

	args := []string{"copy", "--trust", "--quiet", "--data-file", dataFile}
	if opts.NonInteractive {
		args = append(args, "--defaults")
	}
	args = append(args, opts.Template, opts.Dest)

	zerolog.Ctx(ctx).Debug().Strs("answers", answers.Keys()).Str("template", opts.Template).Msg("running copier")
	if _, err := g.runner.Run(ctx, shell.Command{
		Dir:         opts.Dest,
		Name:        "copier",
		Args:        args,
		Interactive: !opts.NonInteractive,
	}); err != nil {
		return nil, errors.Errorf("generating project from %s: %w", opts.Template, err)
	}

	return Prune(ctx, opts.Dest)
}

// 🧹 Prune deletes template sample files matching SamplePatterns
func Prune(ctx context.Context, dest string) ([]string, error) {
	fsys := os.DirFS(dest)
	var removed []string
	for _, pattern := range SamplePatterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, errors.Errorf("matching %s: %w", pattern, err)
		}
		for _, m := range matches {
			if err := os.Remove(filepath.Join(dest, filepath.FromSlash(m))); err != nil {
				return nil, errors.Errorf("removing sample %s: %w", m, err)
			}
			removed = append(removed, m)
		}
	}
	sort.Strings(removed)
	zerolog.Ctx(ctx).Debug().Strs("removed", removed).Msg("pruned template samples")
	return removed, nil
}

func writeDataFile(answers Answers) (string, error) {
	data, err := yaml.Marshal(map[string]any(answers))
	if err != nil {
		return "", errors.Errorf("encoding answers: %w", err)
	}
	f, err := os.CreateTemp("", "saltext-migrate-answers-*.yaml")
	if err != nil {
		return "", errors.Errorf("creating answers file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", errors.Errorf("writing answers file: %w", err)
	}
	return f.Name(), nil
}

// ContainerMarker is used by tests that need container fixtures
const ContainerMarker = "salt_factories.get_container"

// 🐳 DetectTestContainers reports whether any of files exists in fsys and
// uses container fixtures. Historic files that no longer exist are skipped.
func DetectTestContainers(fsys fs.FS, files []string) (bool, error) {
	for _, name := range files {
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return false, errors.Errorf("reading %s: %w", name, err)
		}
		if bytes.Contains(data, []byte(ContainerMarker)) {
			return true, nil
		}
	}
	return false, nil
}
