package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/saltext-migrate/pkg/shell"
	"github.com/walteh/saltext-migrate/pkg/testutils"
)

func TestExtensionInit(t *testing.T) {
	ctx := testutils.Context(t)
	runner := testutils.NewFakeRunner()
	ext := NewExtension(runner, "/work/saltext-vault")

	require.NoError(t, ext.Init(ctx))
	assert.Equal(t, []string{"git init --initial-branch main"}, runner.Lines())
	assert.Equal(t, "/work/saltext-vault", runner.Calls[0].Dir)
}

func TestExtensionMergeFrom(t *testing.T) {
	tests := []struct {
		name      string
		stub      func(r *testutils.FakeRunner)
		wantErr   bool
		wantLines []string
	}{
		{
			name: "success",
			wantLines: []string{
				"git remote add repo-source /work/salt",
				"git fetch repo-source",
				"git merge repo-source/filter-source",
				"git remote rm repo-source",
			},
		},
		{
			name: "merge_failure_still_removes_remote",
			stub: func(r *testutils.FakeRunner) {
				r.On("git merge", "", &shell.ExecError{Command: "git merge", ExitCode: 1})
			},
			wantErr: true,
			wantLines: []string{
				"git remote add repo-source /work/salt",
				"git fetch repo-source",
				"git merge repo-source/filter-source",
				"git remote rm repo-source",
			},
		},
		{
			name: "remote_add_failure",
			stub: func(r *testutils.FakeRunner) {
				r.On("git remote add", "", &shell.ExecError{Command: "git remote add", ExitCode: 3})
			},
			wantErr:   true,
			wantLines: []string{"git remote add repo-source /work/salt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutils.Context(t)
			runner := testutils.NewFakeRunner()
			if tt.stub != nil {
				tt.stub(runner)
			}
			err := NewExtension(runner, "/work/saltext-vault").MergeFrom(ctx, "/work/salt", FilterBranch)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantLines, runner.Lines())
		})
	}
}

func TestExtensionDeleteAllTags(t *testing.T) {
	ctx := testutils.Context(t)

	runner := testutils.NewFakeRunner().
		Once("git tag -d", "", nil).
		On("git tag", "v3006.0\nv3007.0\n", nil)
	n, err := NewExtension(runner, "/x").DeleteAllTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"git tag", "git tag -d v3006.0 v3007.0"}, runner.Lines())

	empty := testutils.NewFakeRunner()
	n, err = NewExtension(empty, "/x").DeleteAllTags(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"git tag"}, empty.Lines())
}
