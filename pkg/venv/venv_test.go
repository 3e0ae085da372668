package venv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/saltext-migrate/pkg/prompt"
	"github.com/walteh/saltext-migrate/pkg/shell"
	"github.com/walteh/saltext-migrate/pkg/testutils"
)

type fakePrompter struct {
	answer bool
	asked  []string
}

func (p *fakePrompter) Confirm(ctx context.Context, msg string, def bool) (bool, error) {
	p.asked = append(p.asked, msg)
	return p.answer, nil
}

func (p *fakePrompter) Select(ctx context.Context, msg string, options []string) ([]string, error) {
	return options, nil
}

func lookPath(available ...string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		for _, a := range available {
			if a == name {
				return "/usr/bin/" + name, true
			}
		}
		return "", false
	}
}

func TestPython(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		version   string
		answer    bool
		want      string
		wantErr   bool
		wantAsked bool
	}{
		{
			name:      "recommended_version",
			available: []string{"python3.10", "python3"},
			want:      "/usr/bin/python3.10",
		},
		{
			name:      "python3_is_recommended",
			available: []string{"python3"},
			version:   "Python 3.10.14\n",
			want:      "/usr/bin/python3",
		},
		{
			name:      "python3_confirmed",
			available: []string{"python3"},
			version:   "Python 3.12.1\n",
			answer:    true,
			want:      "/usr/bin/python3",
			wantAsked: true,
		},
		{
			name:      "python3_declined",
			available: []string{"python3"},
			version:   "Python 3.12.1\n",
			wantErr:   true,
			wantAsked: true,
		},
		{
			name:    "no_python",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := testutils.NewFakeRunner().On("/usr/bin/python3 --version", tt.version, nil)
			p := &fakePrompter{answer: tt.answer}
			env := New(runner, p, t.TempDir(), "saltext-vault")
			env.lookPath = lookPath(tt.available...)

			got, err := env.Python(testutils.Context(t))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.wantAsked, len(p.asked) > 0)
		})
	}
}

func TestPythonAssumeYes(t *testing.T) {
	runner := testutils.NewFakeRunner().On("/usr/bin/python3 --version", "Python 3.9.2", nil)
	env := New(runner, prompt.AssumeYes{}, t.TempDir(), "saltext-vault")
	env.lookPath = lookPath("python3")

	got, err := env.Python(testutils.Context(t))
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/python3", got)
}

func TestCreate(t *testing.T) {
	project := t.TempDir()
	runner := testutils.NewFakeRunner()
	env := New(runner, prompt.AssumeYes{}, project, "saltext-vault")
	env.lookPath = lookPath("python3.10")

	require.NoError(t, env.Create(testutils.Context(t)))

	bin := filepath.Join(project, "venv", "bin")
	assert.Equal(t, []string{
		"/usr/bin/python3.10 -m venv venv --prompt=saltext-vault",
		filepath.Join(bin, "pip") + " install -e .[dev,tests,docs]",
		filepath.Join(bin, "pre-commit") + " install --install-hooks",
	}, runner.Lines())
	for _, c := range runner.Calls {
		assert.Equal(t, project, c.Dir)
	}
	assert.Contains(t, runner.Calls[1].Env[0], "PATH="+bin)
}

func TestCreateFailure(t *testing.T) {
	runner := testutils.NewFakeRunner().On("/usr/bin/python3.10", "", &shell.ExecError{Command: "python3.10", ExitCode: 1})
	env := New(runner, prompt.AssumeYes{}, t.TempDir(), "saltext-vault")
	env.lookPath = lookPath("python3.10")

	assert.Error(t, env.Create(testutils.Context(t)))
	assert.Len(t, runner.Calls, 1)
}

const preCommitOutput = `check yaml...............................................................Passed
black....................................................................Failed
- hook id: black
- files were modified by this hook

reformatted src/saltext/vault/modules/vault.py
isort....................................................................Passed
pylint...................................................................Failed
- hook id: pylint
- exit code: 1

src/saltext/vault/modules/vault.py:1:0: C0114: Missing module docstring
`

func TestRunPreCommit(t *testing.T) {
	tests := []struct {
		name      string
		stub      func(r *testutils.FakeRunner)
		wantCalls int
		want      map[string]string
		wantErr   bool
	}{
		{
			name:      "passes_first_time",
			wantCalls: 1,
		},
		{
			name: "passes_after_fixes",
			stub: func(r *testutils.FakeRunner) {
				r.Once("/", preCommitOutput, &shell.ExecError{Command: "pre-commit", ExitCode: 1, Stdout: preCommitOutput})
			},
			wantCalls: 2,
		},
		{
			name: "keeps_failing",
			stub: func(r *testutils.FakeRunner) {
				r.On("/", preCommitOutput, &shell.ExecError{Command: "pre-commit", ExitCode: 1, Stdout: preCommitOutput})
			},
			wantCalls: 3,
			want: map[string]string{
				"black":  "- hook id: black\n- files were modified by this hook\n\nreformatted src/saltext/vault/modules/vault.py",
				"pylint": "- hook id: pylint\n- exit code: 1\n\nsrc/saltext/vault/modules/vault.py:1:0: C0114: Missing module docstring",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := testutils.NewFakeRunner()
			if tt.stub != nil {
				tt.stub(runner)
			}
			env := New(runner, prompt.AssumeYes{}, t.TempDir(), "saltext-vault")

			got, err := env.RunPreCommit(testutils.Context(t))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, runner.Calls, tt.wantCalls)
			if tt.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseFailingHooks(t *testing.T) {
	assert.Empty(t, ParseFailingHooks("black....Passed\n"))
	assert.Equal(t, map[string]string{"flake8": "x.py:1: E501"}, ParseFailingHooks("flake8.....Failed\nx.py:1: E501\n"))
}
