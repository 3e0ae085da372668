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

// Package venv creates the extension's virtual environment and runs pre-commit in it.
package venv

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/saltext-migrate/pkg/prompt"
	"github.com/walteh/saltext-migrate/pkg/shell"
	"gitlab.com/tozd/go/errors"
)

const (
	// RecommendedPython is the interpreter version extensions are developed with
	RecommendedPython = "3.10"
	// Dir is the virtualenv directory inside the project
	Dir = "venv"
	// PreCommitRetries is how often pre-commit is rerun after a failure,
	// hooks that fix files fail once and pass on the next run
	PreCommitRetries = 2
)

var (
	failedHookRe = regexp.MustCompile(`\.{3,}Failed`)
	otherHookRe  = regexp.MustCompile(`\.{3,}(Passed|Skipped)$|\(no files to check\)Skipped$`)
)

// 🐍 Env is the project virtualenv
type Env struct {
	Project  string // Project directory
	Prompt   string // Shell prompt name, e.g. saltext-vault
	runner   shell.Runner
	prompter prompt.Prompter
	lookPath func(name string) (string, bool)
}

// 🏭 New creates a virtualenv handle for project
func New(runner shell.Runner, prompter prompt.Prompter, project, promptName string) *Env {
	return &Env{
		Project:  project,
		Prompt:   promptName,
		runner:   runner,
		prompter: prompter,
		lookPath: shell.LookPath,
	}
}

// BinDir returns the virtualenv's executable directory
func (e *Env) BinDir() string {
	return filepath.Join(e.Project, Dir, "bin")
}

// 🔍 Python picks the interpreter, asking before settling for a python3
// that is not the recommended version
func (e *Env) Python(ctx context.Context) (string, error) {
	if path, ok := e.lookPath("python" + RecommendedPython); ok {
		return path, nil
	}

	path, ok := e.lookPath("python3")
	if !ok {
		return "", errors.Errorf("no python%s or python3 executable found in $PATH", RecommendedPython)
	}

	out, err := e.runner.Run(ctx, shell.Command{Dir: e.Project, Name: path, Args: []string{"--version"}})
	if err != nil {
		return "", errors.Errorf("checking python3 version: %w", err)
	}
	version := strings.TrimPrefix(strings.TrimSpace(out), "Python ")
	if strings.HasPrefix(version, RecommendedPython) {
		return path, nil
	}

	ok, err = e.prompter.Confirm(ctx,
		"No `python"+RecommendedPython+"` executable found in $PATH. It is strongly recommended to use Python "+
			RecommendedPython+" for creating the virtual environment. Continue with `python3` (version "+version+") anyways?",
		false)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Errorf("no python%s executable found in $PATH, exiting", RecommendedPython)
	}
	return path, nil
}

// 🏗️ Create builds the virtualenv, installs the project with its extras and
// installs the pre-commit hooks
func (e *Env) Create(ctx context.Context) error {
	python, err := e.Python(ctx)
	if err != nil {
		return err
	}

	steps := []shell.Command{
		{Dir: e.Project, Name: python, Args: []string{"-m", "venv", Dir, "--prompt=" + e.Prompt}},
		e.command("pip", "install", "-e", ".[dev,tests,docs]"),
		e.command("pre-commit", "install", "--install-hooks"),
	}
	for _, cmd := range steps {
		if _, err := e.runner.Run(ctx, cmd); err != nil {
			return errors.Errorf("creating virtualenv: %w", err)
		}
	}
	return nil
}

// 🪝 RunPreCommit runs all hooks against all files, retrying because fixing
// hooks fail on the run that modifies files. Failing hooks of the last run
// are returned as hook => output.
func (e *Env) RunPreCommit(ctx context.Context) (map[string]string, error) {
	logger := zerolog.Ctx(ctx)

	var lastErr error
	for attempt := 0; attempt <= PreCommitRetries; attempt++ {
		_, err := e.runner.Run(ctx, e.command("pre-commit", "run", "-a"))
		if err == nil {
			return nil, nil
		}
		lastErr = err
		logger.Debug().Int("attempt", attempt+1).Err(err).Msg("pre-commit failed")
	}

	var execErr *shell.ExecError
	if !errors.As(lastErr, &execErr) {
		return nil, errors.Errorf("running pre-commit: %w", lastErr)
	}
	return ParseFailingHooks(execErr.Stdout), nil
}

// ParseFailingHooks extracts hook name => output from pre-commit output.
// Every "....Failed" marker ends the hook name on its line and starts the
// hook's output, which runs until the line naming the next hook.
func ParseFailingHooks(output string) map[string]string {
	chunks := failedHookRe.Split(output, -1)
	if len(chunks) < 2 {
		return map[string]string{}
	}

	hooks := map[string]string{}
	for i := 0; i < len(chunks)-1; i++ {
		nameLines := strings.Split(strings.TrimRight(chunks[i], "\n"), "\n")
		name := strings.TrimSpace(nameLines[len(nameLines)-1])

		outLines := strings.Split(chunks[i+1], "\n")
		if i+1 < len(chunks)-1 {
			// the last line belongs to the next failing hook
			outLines = outLines[:len(outLines)-1]
		}
		var kept []string
		for _, l := range outLines {
			if !otherHookRe.MatchString(strings.TrimSpace(l)) {
				kept = append(kept, l)
			}
		}
		hooks[name] = strings.TrimSpace(strings.Join(kept, "\n"))
	}
	return hooks
}

func (e *Env) command(name string, args ...string) shell.Command {
	bin := e.BinDir()
	return shell.Command{
		Dir:  e.Project,
		Name: filepath.Join(bin, name),
		Args: args,
		Env:  []string{"PATH=" + bin + string(os.PathListSeparator) + os.Getenv("PATH"), "VIRTUAL_ENV=" + filepath.Join(e.Project, Dir)},
	}
}
