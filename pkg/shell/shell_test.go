package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func TestExecRunner(t *testing.T) {
	tests := []struct {
		name       string
		cmd        Command
		wantOut    string
		wantCode   int
		wantStderr string
		wantErr    bool
	}{
		{
			name:    "captures_stdout",
			cmd:     Command{Name: "sh", Args: []string{"-c", "echo hello"}},
			wantOut: "hello\n",
		},
		{
			name:    "runs_in_dir",
			cmd:     Command{Dir: "/", Name: "sh", Args: []string{"-c", "pwd"}},
			wantOut: "/\n",
		},
		{
			name:    "extra_env",
			cmd:     Command{Name: "sh", Args: []string{"-c", "echo $SALTEXT_TEST"}, Env: []string{"SALTEXT_TEST=vault"}},
			wantOut: "vault\n",
		},
		{
			name:       "exit_code_and_output",
			cmd:        Command{Name: "sh", Args: []string{"-c", "echo partial; echo broken >&2; exit 3"}},
			wantOut:    "partial\n",
			wantCode:   3,
			wantStderr: "broken\n",
			wantErr:    true,
		},
		{
			name:     "missing_program",
			cmd:      Command{Name: "saltext-migrate-does-not-exist"},
			wantCode: -1,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewExecRunner()

			out, err := runner.Run(testContext(t), tt.cmd)
			assert.Equal(t, tt.wantOut, out)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			var execErr *ExecError
			require.ErrorAs(t, err, &execErr)
			assert.Equal(t, tt.wantCode, execErr.ExitCode)
			assert.Equal(t, tt.wantStderr, execErr.Stderr)
			assert.Equal(t, tt.cmd.String(), execErr.Command)
		})
	}
}

func TestExecRunnerInteractive(t *testing.T) {
	var stdout bytes.Buffer
	runner := &ExecRunner{stdin: strings.NewReader("answer\n"), stdout: &stdout, stderr: &bytes.Buffer{}}

	out, err := runner.Run(testContext(t), Command{Name: "sh", Args: []string{"-c", "read a; echo got $a"}, Interactive: true})
	require.NoError(t, err)
	assert.Equal(t, "got answer\n", out, "output is still captured")
	assert.Equal(t, "got answer\n", stdout.String(), "and shown to the operator")
}

func TestExecErrorMessage(t *testing.T) {
	err := &ExecError{Command: "git merge x", ExitCode: 1, Stderr: "  conflict \n"}
	assert.Equal(t, `running "git merge x": exit status 1: conflict`, err.Error())

	err = &ExecError{Command: "copier", ExitCode: 2}
	assert.Equal(t, `running "copier": exit status 2`, err.Error())
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "git status --porcelain", Command{Name: "git", Args: []string{"status", "--porcelain"}}.String())
	assert.Equal(t, "copier", Command{Name: "copier"}.String())
}

func TestLookPath(t *testing.T) {
	_, ok := LookPath("sh")
	assert.True(t, ok)

	_, ok = LookPath("saltext-migrate-does-not-exist")
	assert.False(t, ok)
}
