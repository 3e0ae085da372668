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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/saltext-migrate/pkg/config"
	"github.com/walteh/saltext-migrate/pkg/log"
	"github.com/walteh/saltext-migrate/pkg/testutils"
	"gitlab.com/tozd/go/errors"
)

func TestRun(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	dataFile := filepath.Join(t.TempDir(), "answers.yaml")
	require.NoError(t, os.WriteFile(dataFile, []byte("author: Jane\n"), 0o644))

	tests := []struct {
		name       string
		args       []string
		execErr    error
		wantCode   int
		wantStdout string
		wantStderr string
		check      func(t *testing.T, req *config.Request)
	}{
		{
			name:       "no_args_prints_help",
			args:       nil,
			wantCode:   exitOK,
			wantStdout: "saltext-migrate [flags] saltext_name",
		},
		{
			name:       "version",
			args:       []string{"--version"},
			wantCode:   exitOK,
			wantStdout: "dev",
		},
		{
			name:     "defaults",
			args:     []string{"vault"},
			wantCode: exitOK,
			check: func(t *testing.T, req *config.Request) {
				assert.Equal(t, "vault", req.SaltextName)
				assert.Equal(t, []string{"vault"}, req.Match)
				assert.Equal(t, config.DefaultBaseBranch, req.BaseBranch)
				assert.Equal(t, config.DefaultTemplate, req.Template)
				assert.False(t, req.NonInteractive)
				assert.Equal(t, "/work/salt", req.SaltPath)
				assert.Equal(t, "/work/saltext-vault", req.SaltextPath)
			},
		},
		{
			name: "all_flags",
			args: []string{
				"-m", "vault,hashicorp", "-m", "vault_pki",
				"-i", "doc/ref/*vault*", "-e", "tests/unit/*",
				"-b", "master", "--purge-reset", "--avoid-collisions",
				"-d", dataFile, "-y", "--skip-venv", "--check-upstream", "--debug",
				"vault",
			},
			wantCode: exitOK,
			check: func(t *testing.T, req *config.Request) {
				assert.Equal(t, []string{"vault", "hashicorp", "vault_pki"}, req.Match)
				assert.Equal(t, []string{"doc/ref/*vault*"}, req.Include)
				assert.Equal(t, []string{"tests/unit/*"}, req.Exclude)
				assert.Equal(t, "master", req.BaseBranch)
				assert.True(t, req.PurgeReset)
				assert.True(t, req.AvoidCollisions)
				assert.Equal(t, dataFile, req.DataFile)
				assert.True(t, req.NonInteractive)
				assert.True(t, req.SkipVenv)
				assert.True(t, req.CheckUpstream)
				assert.True(t, req.Debug)
			},
		},
		{
			name:     "match_takes_several_values",
			args:     []string{"-m", "vault", "hashicorp", "vault"},
			wantCode: exitOK,
			check: func(t *testing.T, req *config.Request) {
				assert.Equal(t, "vault", req.SaltextName)
				assert.Equal(t, []string{"vault", "hashicorp"}, req.Match)
			},
		},
		{
			name:     "match_values_after_name",
			args:     []string{"vault", "-m", "vault", "hashicorp"},
			wantCode: exitOK,
			check: func(t *testing.T, req *config.Request) {
				assert.Equal(t, "vault", req.SaltextName)
				assert.Equal(t, []string{"vault", "hashicorp"}, req.Match)
			},
		},
		{
			name:     "match_values_before_flags",
			args:     []string{"-m", "vault", "hashicorp", "-b", "master", "vault"},
			wantCode: exitOK,
			check: func(t *testing.T, req *config.Request) {
				assert.Equal(t, []string{"vault", "hashicorp"}, req.Match)
				assert.Equal(t, "master", req.BaseBranch)
			},
		},
		{
			name:     "bare_match_uses_default",
			args:     []string{"-m", "-y", "vault"},
			wantCode: exitOK,
			check: func(t *testing.T, req *config.Request) {
				assert.Equal(t, []string{"vault"}, req.Match)
				assert.True(t, req.NonInteractive)
			},
		},
		{
			name:       "prefixed_name_is_usage_error",
			args:       []string{"saltext-vault"},
			wantCode:   exitUsage,
			wantStderr: "must not include the saltext prefix",
		},
		{
			name:       "purge_reset_off_master_is_usage_error",
			args:       []string{"--purge-reset", "vault"},
			wantCode:   exitUsage,
			wantStderr: "--purge-reset requires --base-branch master",
		},
		{
			name:       "unknown_flag_is_usage_error",
			args:       []string{"--nope", "vault"},
			wantCode:   exitUsage,
			wantStderr: "unknown flag: --nope",
		},
		{
			name:       "too_many_args_is_usage_error",
			args:       []string{"vault", "consul"},
			wantCode:   exitUsage,
			wantStderr: "expected a single saltext_name",
		},
		{
			name:       "migration_failure",
			args:       []string{"vault"},
			execErr:    errors.New("did not find any matching paths"),
			wantCode:   exitError,
			wantStderr: "❌ did not find any matching paths",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			var got *config.Request

			code := run(testutils.Context(t), tt.args, &app{
				stdout: &stdout,
				stderr: &stderr,
				getwd:  func() (string, error) { return "/work", nil },
				execute: func(ctx context.Context, req *config.Request, console *log.Logger) error {
					got = req
					assert.NotNil(t, console)
					assert.NotEqual(t, zerolog.Disabled, zerolog.Ctx(ctx).GetLevel(), "logging is set up before the migration")
					return tt.execErr
				},
			})

			assert.Equal(t, tt.wantCode, code, "stderr: %s", stderr.String())
			if tt.wantStdout != "" {
				assert.Contains(t, stdout.String(), tt.wantStdout)
			}
			if tt.wantStderr != "" {
				assert.Contains(t, stderr.String(), tt.wantStderr)
			}
			if tt.check != nil {
				require.NotNil(t, got, "migration should run")
				tt.check(t, got)
			}
			if tt.wantCode == exitUsage {
				assert.Nil(t, got, "migration must not run on usage errors")
			}
		})
	}
}

func TestExpandMatchArgs(t *testing.T) {
	flags := newRootCmd(&app{}).Flags()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "single_value",
			args: []string{"-m", "vault", "vault"},
			want: []string{"--match", "vault", "vault"},
		},
		{
			name: "name_only_after_match",
			args: []string{"-m", "vault"},
			want: []string{"vault"},
		},
		{
			name: "flag_values_are_not_names",
			args: []string{"-b", "master", "-m", "vault", "hashicorp"},
			want: []string{"-b", "master", "--match", "vault", "hashicorp"},
		},
		{
			name: "inline_values_untouched",
			args: []string{"--match=vault", "-bmaster", "-y", "consul"},
			want: []string{"--match=vault", "-bmaster", "-y", "consul"},
		},
		{
			name: "stops_at_double_dash",
			args: []string{"-m", "--", "-m", "vault"},
			want: []string{"--", "-m", "vault"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandMatchArgs(flags, tt.args))
		})
	}
}
