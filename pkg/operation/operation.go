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

package operation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"github.com/walteh/saltext-migrate/pkg/config"
	"github.com/walteh/saltext-migrate/pkg/git"
	"github.com/walteh/saltext-migrate/pkg/log"
	"github.com/walteh/saltext-migrate/pkg/migration"
	"github.com/walteh/saltext-migrate/pkg/prompt"
	"github.com/walteh/saltext-migrate/pkg/rewrite"
	"github.com/walteh/saltext-migrate/pkg/scaffold"
	"github.com/walteh/saltext-migrate/pkg/selector"
	"github.com/walteh/saltext-migrate/pkg/shell"
	"github.com/walteh/saltext-migrate/pkg/upstream"
	"github.com/walteh/saltext-migrate/pkg/venv"
	"gitlab.com/tozd/go/errors"
)

// 🔎 UpstreamFinder looks up an existing extension repository
type UpstreamFinder interface {
	Find(ctx context.Context, project string) (*upstream.Existing, error)
}

var _ UpstreamFinder = (*upstream.Checker)(nil)

// 📋 Options wires the collaborators of a migration
type Options struct {
	Request  *config.Request
	Runner   shell.Runner
	Prompter prompt.Prompter
	Console  *log.Logger
	Upstream UpstreamFinder // Only consulted with Request.CheckUpstream
}

// 📊 Result is everything the summary reports on
type Result struct {
	Plan          *migration.Plan
	Utils         *rewrite.DunderUtilsResult
	FailingHooks  map[string]string
	LegacyTests   []string // Legacy tests still present in the extension
	PurgeCommit   string   // Commit the filter branch was reset to, if any
	Upstream      *upstream.Existing
	ModuleReport  *rewrite.Report
	SupportReport *rewrite.Report
	PrunedSamples []string
	RemovedTags   int
}

// 🚚 Migrator moves a set of Salt modules into a new extension project
type Migrator struct {
	req      *config.Request
	runner   shell.Runner
	prompter prompt.Prompter
	console  *log.Logger
	upstream UpstreamFinder

	source    *git.Source
	extension *git.Extension
	replace   bool // Extension directory exists and was confirmed for removal
	generator *scaffold.Generator
	rewriter  *rewrite.Rewriter
	env       *venv.Env
}

// 🏭 New creates a migrator for a validated request with resolved paths
func New(opts Options) (*Migrator, error) {
	if opts.Request == nil {
		return nil, errors.New("request is required")
	}
	if opts.Request.SaltPath == "" || opts.Request.SaltextPath == "" {
		return nil, errors.New("request paths are not resolved")
	}
	if opts.Runner == nil {
		opts.Runner = shell.NewExecRunner()
	}
	if opts.Prompter == nil {
		if opts.Request.NonInteractive {
			opts.Prompter = prompt.AssumeYes{}
		} else {
			opts.Prompter = prompt.NewInteractive()
		}
	}
	if opts.Console == nil {
		opts.Console = log.New(os.Stdout, zerolog.Nop())
	}

	req := opts.Request
	return &Migrator{
		req:       req,
		runner:    opts.Runner,
		prompter:  opts.Prompter,
		console:   opts.Console,
		upstream:  opts.Upstream,
		source:    git.NewSource(opts.Runner, req.SaltPath, req.BaseBranch),
		extension: git.NewExtension(opts.Runner, req.SaltextPath),
		generator: scaffold.NewGenerator(opts.Runner),
		rewriter:  rewrite.NewRewriter(req.SaltextPath, rewrite.NewImportReplacer()),
		env:       venv.New(opts.Runner, opts.Prompter, req.SaltextPath, req.ProjectName()),
	}, nil
}

// 🚀 Execute runs the migration and prints the summary
func (m *Migrator) Execute(ctx context.Context) (*Result, error) {
	res := &Result{
		Utils:        rewrite.NewDunderUtilsResult(),
		FailingHooks: map[string]string{},
	}
	var testContainers bool

	m.console.Header(fmt.Sprintf("migrating %s", m.req.String()))

	steps := []Step{
		{
			Name:   "Checking for an existing extension repository",
			Skip:   !m.req.CheckUpstream || m.upstream == nil,
			Action: func(ctx context.Context) error { return m.checkUpstream(ctx, res) },
		},
		{
			Name:   fmt.Sprintf("Initializing migration paths (Salt checkout, %s dir)", m.req.ProjectName()),
			Action: m.initPaths,
		},
		{
			Name:   "Discovering related paths (historic and current)",
			Action: func(ctx context.Context) error { return m.discover(ctx, res) },
		},
		{
			Action: func(ctx context.Context) error {
				var err error
				testContainers, err = scaffold.DetectTestContainers(m.source.FS(), res.Plan.TestFiles())
				return err
			},
		},
		{
			Name:   fmt.Sprintf("Filtering repository history in new branch `%s`", git.FilterBranch),
			Action: func(ctx context.Context) error { return m.filter(ctx, res) },
		},
		{
			Action: m.prepareExtensionDir,
		},
		{
			Name:   m.copierStatus(),
			Action: func(ctx context.Context) error { return m.scaffold(ctx, res, testContainers) },
		},
		{
			Name:   "Merging filtered repository history",
			Action: func(ctx context.Context) error { return m.merge(ctx, res) },
		},
		{
			Name:   fmt.Sprintf("Creating virtual environment for %s", m.req.ProjectName()),
			Skip:   m.req.SkipVenv,
			Action: m.env.Create,
		},
		{
			Name: "Rewriting module imports",
			Action: func(ctx context.Context) error {
				var err error
				res.ModuleReport, err = m.rewriter.Rewrite(ctx, rewrite.ModuleRules(res.Plan.ModuleImports()))
				return err
			},
		},
		{
			Name: "Rewriting tests.support imports",
			Action: func(ctx context.Context) error {
				var err error
				res.SupportReport, err = m.rewriter.Rewrite(ctx, rewrite.SupportRules(res.Plan.SupportImports()))
				return err
			},
		},
		{
			Name:   "Restoring the Salt checkout",
			Action: m.source.Cleanup,
		},
		{
			Name:   "Rewriting __utils__",
			Action: func(ctx context.Context) error { return m.rewriteUtils(ctx, res) },
		},
		{
			Name:   "Running pre-commit hooks against all files",
			Skip:   m.req.SkipVenv,
			Action: func(ctx context.Context) error { return m.preCommit(ctx, res) },
		},
	}

	if err := NewStepRunner(m.console).Run(ctx, steps); err != nil {
		return res, err
	}

	res.LegacyTests = res.Plan.LegacyTestsAfterMigration(func(p string) bool {
		_, err := os.Stat(filepath.Join(m.req.SaltextPath, filepath.FromSlash(p)))
		return err == nil
	})

	m.console.Success(fmt.Sprintf("Migrated %d paths into %s (modules: %d, pytests: %d, legacy tests: %d, docs: %d)",
		len(res.Plan.Paths), m.req.SaltextPath,
		len(res.Plan.Modules()), len(res.Plan.Pytests()), len(res.Plan.LegacyTests()), len(res.Plan.Docs())))

	PrintSummary(m.console, m.req, res)
	return res, nil
}

func (m *Migrator) checkUpstream(ctx context.Context, res *Result) error {
	existing, err := m.upstream.Find(ctx, m.req.ProjectName())
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("upstream check failed")
		m.console.Warn("? Could not check for an existing repository:", err.Error())
		return nil
	}
	if existing == nil {
		return nil
	}
	res.Upstream = existing
	msg := fmt.Sprintf("%s already exists: %s", existing.FullName, existing.URL)
	if existing.Archived {
		msg += " (archived)"
	}
	m.console.Warn("? Extension repository exists:", msg)
	return nil
}

// initPaths prepares the Salt checkout and asks whether an existing extension
// directory may be replaced. Nothing is removed until the source checks passed.
func (m *Migrator) initPaths(ctx context.Context) error {
	if err := m.source.Prepare(ctx); err != nil {
		return err
	}

	dir := m.req.SaltextPath
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return errors.Errorf("checking extension directory: %w", err)
	case len(entries) > 0:
		ok, err := m.prompter.Confirm(ctx, fmt.Sprintf("Saltext directory %s exists, remove?", dir), false)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("saltext directory %s already exists and is not empty", dir)
		}
		m.replace = true
	}
	return nil
}

// prepareExtensionDir leaves an empty extension directory for the scaffold
func (m *Migrator) prepareExtensionDir(ctx context.Context) error {
	dir := m.req.SaltextPath
	if m.replace {
		zerolog.Ctx(ctx).Debug().Str("path", dir).Msg("removing existing extension directory")
		if err := os.RemoveAll(dir); err != nil {
			return errors.Errorf("removing extension directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Errorf("creating extension directory: %w", err)
	}
	return nil
}

// discover selects the paths to migrate and builds the rename plan
func (m *Migrator) discover(ctx context.Context, res *Result) error {
	if err := m.source.Validate(ctx); err != nil {
		return err
	}
	if m.req.PurgeReset {
		if err := m.source.VerifyPurgeCommit(ctx); err != nil {
			return err
		}
	}
	generated, err := m.source.Analyze(ctx)
	if err != nil {
		return err
	}
	if generated {
		m.console.Infof("Did not find existing `filter-repo --analyze` output in %s, generated it", m.source.Dir)
	}
	if err := m.source.StartFilterBranch(ctx); err != nil {
		return err
	}

	all, err := selector.ReadAnalysis(m.source.FS())
	if err != nil {
		return err
	}
	candidates, err := selector.Select(ctx, selector.Criteria{
		Match:   m.req.Match,
		Include: m.req.Include,
		Exclude: m.req.Exclude,
	}, all)
	if err != nil {
		return err
	}

	selected, err := m.prompter.Select(ctx, "Found the following paths. You can deselect any that you want ignored.", candidates)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return selector.ErrNoPaths
	}

	res.Plan, err = migration.Build(ctx, migration.Options{
		Name:            m.req.SaltextName,
		Paths:           selected,
		AvoidCollisions: m.req.AvoidCollisions,
		Exists:          m.source.Exists,
	})
	return err
}

// filter rewrites the filter branch and optionally resets it to before the purge
func (m *Migrator) filter(ctx context.Context, res *Result) error {
	if err := m.source.FilterHistory(ctx, res.Plan.FilterRepoArgs()); err != nil {
		return err
	}
	if !m.req.PurgeReset {
		return nil
	}

	leftovers, err := m.source.Leftovers(ctx)
	if err != nil {
		return err
	}
	if len(leftovers) > 0 {
		sort.Strings(leftovers)
		list := log.RenderList(leftovers, "*", -1)
		ok, err := m.prompter.Confirm(ctx,
			"Need to reset to before the great module purge.\n\n"+
				"Note: Some files are still present in the Salt master branch. "+
				"Ensure they did not receive any updates after the purge PR.\n"+
				"Files:\n"+list+"\n",
			false)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("some files were not deleted during the great module purge, not resetting to keep new changes. Files:\n%s", list)
		}
	}

	res.PurgeCommit, err = m.source.ResetBeforePurge(ctx)
	return err
}

func (m *Migrator) copierStatus() string {
	if m.req.NonInteractive {
		return "Running copier"
	}
	return "Running copier. Please answer the following questions. For help, see " + scaffold.QuestionsURL
}

// scaffold initializes the extension repository and renders the template into it
func (m *Migrator) scaffold(ctx context.Context, res *Result, testContainers bool) error {
	if err := m.extension.Init(ctx); err != nil {
		return err
	}

	opts := scaffold.Options{
		Name:           m.req.SaltextName,
		Template:       m.req.Template,
		Dest:           m.req.SaltextPath,
		DataFile:       m.req.DataFile,
		NonInteractive: m.req.NonInteractive,
		Loaders:        res.Plan.Loaders(),
		TestContainers: testContainers,
	}
	answers, err := scaffold.BuildAnswers(ctx, opts)
	if err != nil {
		return err
	}
	res.PrunedSamples, err = m.generator.Generate(ctx, opts, answers)
	if err != nil {
		return err
	}
	if len(res.PrunedSamples) > 0 {
		m.console.Infof("Removed %d template samples for loaders that were not migrated", len(res.PrunedSamples))
	}
	return nil
}

func (m *Migrator) merge(ctx context.Context, res *Result) error {
	if err := m.extension.MergeFrom(ctx, m.req.SaltPath, git.FilterBranch); err != nil {
		return err
	}
	var err error
	res.RemovedTags, err = m.extension.DeleteAllTags(ctx)
	if err != nil {
		return err
	}
	if res.RemovedTags > 0 {
		m.console.Infof("Removed %d Salt release tags from the merged history", res.RemovedTags)
	}
	return nil
}

// rewriteUtils rewrites __utils__ calls and warns about the ones needing manual work
func (m *Migrator) rewriteUtils(ctx context.Context, res *Result) error {
	utils, err := m.rewriter.RewriteDunderUtils(ctx, m.req.SaltextName, m.source.FS())
	if err != nil {
		return err
	}
	res.Utils = utils

	if len(utils.MissedCritical) > 0 {
		m.console.Warn("✗ Fix REQUIRED:",
			"The following Salt core utils mods require to be called via __utils__, "+
				"which does not work from Saltext utils:\n"+
				log.RenderGroups(rewrite.ByModule(utils.MissedCritical), -1))
	}
	if len(utils.Rewrite) > 0 {
		m.console.Warn("✗ Fix REQUIRED:",
			"The following local utils mods required to be called via __utils__, "+
				"which does not work for Saltext utils. Calls were rewritten partly, but you need "+
				"to refactor the module to accept the required values and update the calls again:\n"+
				log.RenderGroups(rewrite.ByModule(utils.Rewrite), -1))
	}
	if len(utils.Missed) > 0 {
		m.console.Warn("? Fix recommended:",
			"The following Salt core utils mods require to be called via __utils__, "+
				"calls cannot be rewritten. Consider creating a PR:\n"+
				log.RenderGroups(rewrite.ByModule(utils.Missed), -1))
	}
	if len(utils.Unresolved) > 0 {
		m.console.Warn("? Unresolved __utils__ calls:",
			"The following utils mods were found neither in the Saltext nor in Salt, "+
				"calls were left as is:\n"+
				log.RenderGroups(rewrite.ByModule(utils.Unresolved), -1))
	}
	return nil
}

// preCommit runs the hooks and reports failures without failing the migration
func (m *Migrator) preCommit(ctx context.Context, res *Result) error {
	failing, err := m.env.RunPreCommit(ctx)
	if err != nil {
		return err
	}
	if len(failing) == 0 {
		return nil
	}
	res.FailingHooks = failing

	hooks := make([]string, 0, len(failing))
	for h := range failing {
		hooks = append(hooks, h)
	}
	sort.Strings(hooks)

	m.console.Warn(fmt.Sprintf("Pre-commit is failing. Please fix all (%d) failing hooks", len(hooks)), "")
	for i, h := range hooks {
		m.console.Warn(fmt.Sprintf("✗ Failing hook (%d): %s", i+1, h), failing[h])
	}
	return nil
}
