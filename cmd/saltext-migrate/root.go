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
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/walteh/saltext-migrate/pkg/config"
	"github.com/walteh/saltext-migrate/pkg/log"
	"github.com/walteh/saltext-migrate/pkg/operation"
	"github.com/walteh/saltext-migrate/pkg/upstream"
	"gitlab.com/tozd/go/errors"
)

// 🚪 Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// executeFunc runs a validated request with resolved paths
type executeFunc func(ctx context.Context, req *config.Request, console *log.Logger) error

// app holds process-level dependencies of the command
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	getwd   func() (string, error)
	execute executeFunc
}

// run executes the command line and returns the process exit code
func run(ctx context.Context, args []string, a *app) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(expandMatchArgs(cmd.Flags(), args))
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case config.IsUsageError(err):
		fmt.Fprintf(a.stderr, "%s\n\n%s", cmd.UsageString(), err)
		fmt.Fprintln(a.stderr)
		return exitUsage
	default:
		log.New(a.stderr, zerolog.Nop()).Error(err.Error())
		return exitError
	}
}

// newRootCmd builds the saltext-migrate command
func newRootCmd(a *app) *cobra.Command {
	req := &config.Request{}

	cmd := &cobra.Command{
		Use:   "saltext-migrate [flags] saltext_name",
		Short: "Migrate Salt modules and their history into a Salt extension",
		Long: `saltext-migrate extracts modules, tests and docs from the Salt repository into a
new Salt extension project, keeping their git history.

Run it from the directory that contains (or should contain) the Salt checkout
named "salt". The extension is created next to it as saltext-<name>. It will:
1. Discover current and historic paths matching the extension name
2. Filter the Salt history down to them on a temporary branch
3. Generate the project from the salt-extension-copier template
4. Merge the filtered history and rewrite imports and __utils__ calls
5. Create a virtualenv, run pre-commit and print the next steps`,
		Example: `  saltext-migrate vault
  saltext-migrate -m vault hashicorp -e 'doc/*' --avoid-collisions vault
  saltext-migrate -m vault,hashicorp -m vault_pki vault
  saltext-migrate -b master --purge-reset -y -d answers.yaml consul`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return config.Usagef("expected a single saltext_name, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			req.SaltextName = args[0]

			if err := req.Validate(); err != nil {
				return err
			}
			wd, err := a.getwd()
			if err != nil {
				return errors.Errorf("getting working directory: %w", err)
			}
			if err := req.ResolvePaths(wd); err != nil {
				return err
			}

			ctx := setupLogging(cmd.Context(), a.stderr, req.Debug)
			console := log.New(a.stdout, *zerolog.Ctx(ctx))
			return a.execute(ctx, req, console)
		},
	}
	cmd.SetVersionTemplate(versionTemplate())
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return config.Usagef("%s", err)
	})

	addRootFlags(cmd, req)
	return cmd
}

// addRootFlags binds the command line to the request
func addRootFlags(cmd *cobra.Command, req *config.Request) {
	f := cmd.Flags()
	f.StringSliceVarP(&req.Match, "match", "m", nil, "strings matched against current and historic paths, takes several values, repeatable or comma separated (default: saltext_name)")
	f.StringSliceVarP(&req.Include, "include", "i", nil, "glob of extra paths to include, repeatable")
	f.StringSliceVarP(&req.Exclude, "exclude", "e", nil, "glob of paths to exclude, repeatable")
	f.StringVarP(&req.BaseBranch, "base-branch", "b", config.DefaultBaseBranch, "Salt branch to extract from")
	f.BoolVar(&req.PurgeReset, "purge-reset", false, "reset to before the community extension purge (requires --base-branch master)")
	f.BoolVar(&req.AvoidCollisions, "avoid-collisions", false, "suffix colliding test modules instead of failing")
	f.StringVarP(&req.DataFile, "data-file", "d", "", "copier answers file (.yaml, .yml, .json or .hcl)")
	f.BoolVarP(&req.NonInteractive, "yes", "y", false, "do not ask questions, assume yes and template defaults")
	f.BoolVar(&req.SkipVenv, "skip-venv", false, "do not create a virtualenv or run pre-commit")
	f.BoolVar(&req.CheckUpstream, "check-upstream", false, "warn when the extension already exists in the salt-extensions org")
	f.StringVar(&req.Template, "template", config.DefaultTemplate, "copier template source")
	f.BoolVar(&req.Debug, "debug", false, "enable debug logging")
}

// expandMatchArgs lets -m take several space separated values, so
// "-m vault hashicorp vault" reads as "-m vault -m hashicorp vault". When -m
// runs to the end of the line and no saltext_name came before it, the last
// value is the saltext_name. A -m without values is dropped.
func expandMatchArgs(flags *pflag.FlagSet, args []string) []string {
	out := make([]string, 0, len(args))
	positional := false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return append(out, args[i:]...)
		case arg == "-m" || arg == "--match":
			j := i + 1
			for j < len(args) && !strings.HasPrefix(args[j], "-") {
				j++
			}
			values := args[i+1 : j]
			if j == len(args) && !positional && len(values) > 0 {
				values = values[:len(values)-1]
			}
			for _, v := range values {
				out = append(out, "--match", v)
			}
			i += len(values)
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			out = append(out, arg)
			if takesValue(flags, arg) && i+1 < len(args) {
				out = append(out, args[i+1])
				i++
			}
		default:
			positional = true
			out = append(out, arg)
		}
	}
	return out
}

// takesValue reports whether a flag argument consumes the next argument
func takesValue(flags *pflag.FlagSet, arg string) bool {
	if strings.Contains(arg, "=") {
		return false
	}
	if name, ok := strings.CutPrefix(arg, "--"); ok {
		f := flags.Lookup(name)
		return f != nil && f.NoOptDefVal == ""
	}
	short := arg[1:]
	for i := 0; i < len(short); i++ {
		f := flags.ShorthandLookup(short[i : i+1])
		if f != nil && f.NoOptDefVal == "" {
			return i == len(short)-1
		}
	}
	return false
}

// setupLogging attaches a console zerolog logger to ctx
func setupLogging(ctx context.Context, w io.Writer, debug bool) context.Context {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
	return logger.WithContext(ctx)
}

// executeMigration runs a full migration against the real environment
func executeMigration(ctx context.Context, req *config.Request, console *log.Logger) error {
	opts := operation.Options{
		Request: req,
		Console: console,
	}
	if req.CheckUpstream {
		opts.Upstream = upstream.NewChecker()
	}

	m, err := operation.New(opts)
	if err != nil {
		return err
	}
	if _, err := m.Execute(ctx); err != nil {
		return errors.Errorf("migrating %s: %w", req.ProjectName(), err)
	}
	return nil
}
