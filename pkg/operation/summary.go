package operation

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/walteh/saltext-migrate/pkg/config"
	"github.com/walteh/saltext-migrate/pkg/log"
	"github.com/walteh/saltext-migrate/pkg/rewrite"
)

const (
	noteRequired    = "* Action required"
	noteRecommended = "** Action recommended"
)

// 📋 PrintSummary prints migrated paths, outstanding issues and next steps
func PrintSummary(console *log.Logger, req *config.Request, res *Result) {
	nextSteps := []string{
		fmt.Sprintf("Change into the Saltext workdir: `cd %s`", req.ProjectName()),
		"Source the virtualenv: `source venv/bin/activate`",
	}
	if req.SkipVenv {
		nextSteps[1] = "Create a virtualenv and install the project: `pip install -e .[dev,tests,docs]`"
	}
	if res.Plan != nil && res.Plan.HasModuleType("util") {
		nextSteps = append(nextSteps, "Add the utils docs (`refs/utils/index`) to `docs/index.rst`")
	}

	console.MainTitle("➨ Migration summary")
	console.Title("→ Migrated paths", false)
	_, _ = console.Write(renderPathTable(res))

	utils := res.Utils
	if utils == nil {
		utils = rewrite.NewDunderUtilsResult()
	}

	if !utils.Empty() || len(res.FailingHooks) > 0 || len(res.LegacyTests) > 0 {
		console.Title("✗ Outstanding issues to be resolved", true)
		if len(utils.MissedCritical) > 0 {
			console.Line("\n  * Ensure the following Salt-internal utils modules don't rely on global dunders "+
				"and/or migrate them and change them locally:\n"+
				log.RenderList(rewrite.Modules(utils.MissedCritical), "•", 4), true)
			nextSteps = append(nextSteps, "Fix __utils__ dunder in utils")
		}
		if len(utils.Rewrite) > 0 {
			console.Line("\n  * Rewrite the following migrated utils modules to not rely on global dunders:\n"+
				log.RenderList(rewrite.Modules(utils.Rewrite), "•", 4), true)
			console.Line("\n  * Then ensure the following callers of the utils modules pass in the required values:\n"+
				log.RenderList(rewrite.Files(utils.Rewrite), "•", 4), true)
			nextSteps = append(nextSteps,
				"Remove global dunders from utils modules",
				"Update utils calls after removing dunders")
		}
		if len(utils.Missed) > 0 {
			console.Line("\n  * Consider submitting a PR to Salt so the following utils modules don't rely on global dunders:\n"+
				log.RenderList(rewrite.Modules(utils.Missed), "•", 4), false)
		}
		if len(utils.Unresolved) > 0 {
			console.Line("\n  * Check the following __utils__ calls, their utils modules could not be found:\n"+
				log.RenderList(rewrite.Modules(utils.Unresolved), "•", 4), false)
		}
		if len(res.FailingHooks) > 0 {
			hooks := make([]string, 0, len(res.FailingHooks))
			for h := range res.FailingHooks {
				hooks = append(hooks, h)
			}
			sort.Strings(hooks)
			console.Line("\n  * Fix the following failing pre-commit hooks:\n"+log.RenderList(hooks, "•", 4), true)
			nextSteps = append(nextSteps, "Fix pre-commit hooks")
		}
		if len(res.LegacyTests) > 0 {
			console.Line("\n  * Migrate the following non-pytest tests or skip them temporarily:\n"+
				log.RenderList(res.LegacyTests, "•", 4), true)
			nextSteps = append(nextSteps, "Migrate or skip non-pytests")
		}
	}

	if res.Upstream == nil {
		nextSteps = append(nextSteps,
			"Ensure tests are passing: `nox -e tests-3`",
			"Ensure docs are building: `nox -e docs`",
			"Commit the repo: `git add . && git commit -m 'Initial extension layout'`",
			"Apply for a new repository in the `salt-extensions` org (optional)",
		)
	} else {
		nextSteps = append(nextSteps,
			"Ensure tests are passing: `nox -e tests-3`",
			"Ensure docs are building: `nox -e docs`",
			fmt.Sprintf("Compare with the existing repository before publishing: %s", res.Upstream.URL),
		)
	}

	console.Title(">> Next steps", false)
	console.Line(log.RenderList(nextSteps, "•", -1), false)
}

// renderPathTable renders one row per selected path
func renderPathTable(res *Result) []byte {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Path", "Action", "Destination", "Note"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})

	if res.Plan == nil {
		table.Render()
		return buf.Bytes()
	}

	var required, recommended int
	for _, old := range res.Plan.Paths {
		dest := res.Plan.Destination(old)
		label := res.Plan.RenameLabel(old)
		if contested := res.Plan.Collisions[old]; contested != "" {
			label += " of " + contested
		}
		note := pathNote(res.Utils, dest)
		switch note {
		case noteRequired:
			required++
		case noteRecommended:
			recommended++
		}
		table.Append([]string{old, label, dest, note})
	}

	table.SetFooter([]string{
		fmt.Sprintf("%d paths", len(res.Plan.Paths)),
		fmt.Sprintf("%d renamed", len(res.Plan.Renames)),
		fmt.Sprintf("%d collisions", len(res.Plan.Collisions)),
		fmt.Sprintf("%d required, %d recommended", required, recommended),
	})
	table.Render()
	return buf.Bytes()
}

func pathNote(utils *rewrite.DunderUtilsResult, dest string) string {
	if utils == nil {
		return ""
	}
	switch {
	case utils.MissedCritical[dest] != nil, utils.Rewrite[dest] != nil:
		return noteRequired
	case utils.Missed[dest] != nil, utils.Unresolved[dest] != nil:
		return noteRecommended
	}
	return ""
}
