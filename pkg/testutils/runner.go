// Package testutils holds fakes shared by the package tests.
package testutils

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/walteh/saltext-migrate/pkg/shell"
)

type stub struct {
	prefix string
	out    string
	err    error
	times  int // remaining uses, 0 means unlimited
}

// FakeRunner records every command and answers from registered stubs.
// Unmatched commands succeed with empty output.
type FakeRunner struct {
	mu    sync.Mutex
	stubs []*stub
	Calls []shell.Command

	// Hook runs for every command before stubs are consulted. A non-nil
	// handled result short-circuits the stubs.
	Hook func(cmd shell.Command) (out string, err error, handled bool)
}

var _ shell.Runner = (*FakeRunner)(nil)

// NewFakeRunner creates an empty fake runner
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// On registers a response for commands whose line starts with prefix.
func (f *FakeRunner) On(prefix, out string, err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubs = append(f.stubs, &stub{prefix: prefix, out: out, err: err})
	return f
}

// Once registers a response that is used a single time.
func (f *FakeRunner) Once(prefix, out string, err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubs = append(f.stubs, &stub{prefix: prefix, out: out, err: err, times: 1})
	return f
}

// Run implements shell.Runner
func (f *FakeRunner) Run(ctx context.Context, cmd shell.Command) (string, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	hook := f.Hook
	f.mu.Unlock()

	if hook != nil {
		if out, err, handled := hook(cmd); handled {
			return out, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	line := CommandLine(cmd)
	for i, s := range f.stubs {
		if !strings.HasPrefix(line, s.prefix) {
			continue
		}
		if s.times == 1 {
			f.stubs = append(f.stubs[:i], f.stubs[i+1:]...)
		}
		return s.out, s.err
	}
	return "", nil
}

// Lines returns every recorded command line, git config noise stripped.
func (f *FakeRunner) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		lines = append(lines, CommandLine(c))
	}
	return lines
}

// CommandLine renders a command the way stubs match it.
func CommandLine(cmd shell.Command) string {
	line := cmd.String()
	return strings.Replace(line, "git -c commit.gpgsign=0 ", "git ", 1)
}

// Context returns a context carrying a zerolog logger that writes to the test log.
func Context(t *testing.T) context.Context {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}
