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

package rewrite

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gitlab.com/tozd/go/errors"
)

const (
	sourceGlob = "src/**/*.py"
	testsGlob  = "tests/**/*.py"
	pythonGlob = "{src,tests}/**/*.py"

	// MockModule replaces the Salt test suite's mock shim
	MockModule = "unittest.mock"
)

// 🔧 ModuleRules rewrites references to migrated Salt modules in sources and tests
func ModuleRules(moduleImports map[string]string) []Rule {
	rules := make([]Rule, 0, len(moduleImports))
	for from, to := range moduleImports {
		rules = append(rules, Rule{From: from, To: to, FileFilterGlob: pythonGlob})
	}
	sortRules(rules)
	return rules
}

// 🔧 SupportRules rewrites the test-support imports: the mock shim and
// migrated pytest support modules
func SupportRules(supportImports map[string]string) []Rule {
	rules := []Rule{{From: "tests.support.mock", To: MockModule, FileFilterGlob: testsGlob}}
	for from, to := range supportImports {
		rules = append(rules, Rule{From: from, To: to, FileFilterGlob: testsGlob})
	}
	sortRules(rules)
	return rules
}

func sortRules(rules []Rule) {
	sort.Slice(rules, func(i, j int) bool { return rules[i].From < rules[j].From })
}

// 📊 Report summarizes a rewrite over a tree
type Report struct {
	Files        []string // Changed files relative to the root, sorted
	Replacements int
}

// ✍️ Rewriter applies rules to the python files of the extension
type Rewriter struct {
	root     string
	replacer Replacer
}

// 🏭 NewRewriter creates a rewriter for the project at root
func NewRewriter(root string, replacer Replacer) *Rewriter {
	if replacer == nil {
		replacer = NewImportReplacer()
	}
	return &Rewriter{root: root, replacer: replacer}
}

// Rewrite applies rules to every python file under src/ and tests/
func (r *Rewriter) Rewrite(ctx context.Context, rules []Rule) (*Report, error) {
	if err := r.replacer.ValidateRules(rules); err != nil {
		return nil, errors.Errorf("validating rules: %w", err)
	}

	files, err := r.pythonFiles()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, rel := range files {
		content, err := os.ReadFile(r.abs(rel))
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", rel, err)
		}
		result, err := r.replacer.Replace(ctx, rel, content, rules)
		if err != nil {
			return nil, errors.Errorf("rewriting %s: %w", rel, err)
		}
		if !result.WasModified {
			continue
		}
		if err := r.write(ctx, rel, result.OriginalContent, result.ModifiedContent); err != nil {
			return nil, err
		}
		report.Files = append(report.Files, rel)
		report.Replacements += result.ReplacementCount
	}
	return report, nil
}

func (r *Rewriter) pythonFiles() ([]string, error) {
	files, err := doublestar.Glob(os.DirFS(r.root), pythonGlob)
	if err != nil {
		return nil, errors.Errorf("listing python files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (r *Rewriter) abs(rel string) string {
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

func (r *Rewriter) write(ctx context.Context, rel string, before, after []byte) error {
	path := r.abs(rel)
	info, err := os.Stat(path)
	if err != nil {
		return errors.Errorf("stat %s: %w", rel, err)
	}
	if err := os.WriteFile(path, after, info.Mode().Perm()); err != nil {
		return errors.Errorf("writing %s: %w", rel, err)
	}

	logger := zerolog.Ctx(ctx)
	logger.Info().Str("file", rel).Msg("rewrote")
	if logger.GetLevel() <= zerolog.DebugLevel {
		logger.Debug().Str("file", rel).Msg("diff:\n" + Diff(string(before), string(after)))
	}
	return nil
}

// 🔍 Diff renders changed lines prefixed with - and +
func Diff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var out strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix + strings.TrimSuffix(line, "\n") + "\n")
		}
	}
	return out.String()
}
