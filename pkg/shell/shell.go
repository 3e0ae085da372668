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

// Package shell runs external programs (git, copier, python) for the migration.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Command describes a single process invocation
type Command struct {
	Dir  string   // Working directory, empty for the current one
	Name string   // Program name or path
	Args []string // Arguments
	Env  []string // Extra KEY=VALUE pairs appended to the current environment

	// Interactive attaches the operator's terminal instead of capturing output
	Interactive bool
}

// String returns the command line for logs and errors
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// 🔌 Runner executes commands
type Runner interface {
	// Run executes the command and returns its captured stdout
	Run(ctx context.Context, cmd Command) (string, error)
}

// ❌ ExecError is returned when a command exits unsuccessfully
type ExecError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("running %q: exit status %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// 🏃 ExecRunner runs commands with os/exec
type ExecRunner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// 🏭 NewExecRunner creates a runner attached to the process stdio for interactive commands
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Run implements Runner
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("dir", cmd.Dir).Str("cmd", cmd.String()).Msg("running command")

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	if cmd.Interactive {
		c.Stdin = r.stdin
		c.Stdout = io.MultiWriter(r.stdout, &stdout)
		c.Stderr = io.MultiWriter(r.stderr, &stderr)
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	err := c.Run()
	if err == nil {
		return stdout.String(), nil
	}

	execErr := &ExecError{
		Command:  cmd.String(),
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		execErr.ExitCode = exitErr.ExitCode()
	}
	logger.Debug().Err(err).Str("cmd", cmd.String()).Int("exit_code", execErr.ExitCode).Msg("command failed")
	return stdout.String(), execErr
}

// 🔍 LookPath reports whether a program is available in $PATH
func LookPath(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}
