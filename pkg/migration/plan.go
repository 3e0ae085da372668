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

package migration

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	// PytestSuffix is appended to pytest-style tests when avoiding collisions
	PytestSuffix = "_pytest"
	// LegacySuffix is appended to legacy-style tests when avoiding collisions
	LegacySuffix = "_old"
)

// 📋 Options configures plan construction
type Options struct {
	Name            string   // Extension name
	Paths           []string // Selected repository paths
	AvoidCollisions bool     // Suffix test renames instead of failing

	// Exists reports whether a path exists in the Salt checkout. Without
	// AvoidCollisions only existing paths occupy their own location when
	// detecting collisions.
	Exists func(p string) bool
}

// 🗺️ Plan maps selected Salt paths to their place in the extension
type Plan struct {
	Name    string
	Paths   []string          // Selected paths, sorted
	Renames map[string]string // Old path to new path

	// Collisions maps each source that was involved in a collision to the
	// destination it contested before suffixes were applied
	Collisions map[string]string

	kinds map[string]renameKind
}

type renameKind int

const (
	kindPlain renameKind = iota
	kindPytest
	kindLegacy
)

// 🏭 Build computes renames and resolves collisions
func Build(ctx context.Context, opts Options) (*Plan, error) {
	if opts.Name == "" {
		return nil, errors.New("extension name is required")
	}
	exists := opts.Exists
	if exists == nil {
		exists = func(string) bool { return false }
	}

	paths := uniqueSorted(opts.Paths)
	plan := &Plan{
		Name:       opts.Name,
		Paths:      paths,
		Renames:    map[string]string{},
		Collisions: map[string]string{},
		kinds:      map[string]renameKind{},
	}

	for _, p := range paths {
		newPath, kind, ok := plan.renameFor(p)
		if !ok {
			continue
		}
		plan.Renames[p] = newPath
		plan.kinds[p] = kind
	}

	// With suffixes enabled every selected path claims its own location, so
	// historic legacy tests are separated from the pytests renamed onto them
	occupies := exists
	if opts.AvoidCollisions {
		occupies = func(string) bool { return true }
	}

	collisions := detectCollisions(paths, plan.Renames, occupies)
	if len(collisions) == 0 {
		return plan, nil
	}
	if !opts.AvoidCollisions {
		return nil, &CollisionError{Collisions: collisions}
	}

	for _, c := range collisions {
		for _, src := range c.Sources {
			plan.Collisions[src] = c.Destination
		}
	}
	plan.applySuffixes()

	if remaining := detectCollisions(paths, plan.Renames, occupies); len(remaining) > 0 {
		return nil, &CollisionError{Collisions: remaining, Unresolved: true}
	}

	zerolog.Ctx(ctx).Debug().Int("collisions", len(collisions)).Msg("resolved collisions with suffixes")
	return plan, nil
}

// renameFor applies the layout rules to a single path
func (p *Plan) renameFor(old string) (string, renameKind, bool) {
	parts := strings.Split(old, "/")
	src := []string{"src", "saltext", p.Name}

	switch {
	case parts[0] == "salt" && len(parts) > 2 && parts[1] == "cloud":
		return join(src, parts[2:]), kindPlain, true
	case hasPrefix(parts, "salt", "client", "ssh", "wrapper") && len(parts) > 4:
		return join(src, parts[3:]), kindPlain, true
	case parts[0] == "salt" && len(parts) > 1:
		return join(src, parts[1:]), kindPlain, true

	case hasPrefix(parts, "tests", "pytests") && len(parts) > 4 && parts[3] == "cloud":
		return join([]string{"tests", parts[2]}, parts[4:]), kindPytest, true
	case hasPrefix(parts, "tests", "pytests", "integration", "ssh") && len(parts) > 4:
		return join([]string{"tests", "integration", "wrapper"}, parts[4:]), kindPytest, true
	case hasPrefix(parts, "tests", "pytests") && len(parts) > 2:
		return join([]string{"tests"}, parts[2:]), kindPytest, true

	case isLegacyTest(old) && len(parts) > 3 && parts[2] == "cloud":
		return join([]string{"tests", parts[1]}, parts[3:]), kindLegacy, true

	case hasPrefix(parts, "tests", "support", "pytest") && len(parts) > 3:
		return join([]string{"tests", "support"}, parts[3:]), kindPlain, true

	case parts[0] == "doc" && len(parts) > 1:
		return join([]string{"docs"}, parts[1:]), kindPlain, true
	}
	return "", kindPlain, false
}

// applySuffixes renames every test module rename by style and moves selected
// legacy tests out of the way of pytest destinations
func (p *Plan) applySuffixes() {
	var pytestTargets []string
	for _, old := range p.Paths {
		newPath, ok := p.Renames[old]
		if !ok || !isTestModule(newPath) {
			continue
		}
		switch p.kinds[old] {
		case kindPytest:
			pytestTargets = append(pytestTargets, newPath)
			p.Renames[old] = withStemSuffix(newPath, PytestSuffix)
		case kindLegacy:
			p.Renames[old] = withStemSuffix(newPath, LegacySuffix)
		}
	}

	selected := make(map[string]bool, len(p.Paths))
	for _, old := range p.Paths {
		selected[old] = true
	}
	for _, target := range pytestTargets {
		if !selected[target] || !isLegacyTest(target) {
			continue
		}
		if _, renamed := p.Renames[target]; renamed {
			continue
		}
		p.Renames[target] = withStemSuffix(target, LegacySuffix)
		p.kinds[target] = kindLegacy
	}
}

// Destination returns where a selected path ends up in the extension
func (p *Plan) Destination(old string) string {
	if newPath, ok := p.Renames[old]; ok {
		return newPath
	}
	return old
}

// Modules returns selected paths under salt/
func (p *Plan) Modules() []string {
	return p.filter(func(parts []string) bool { return parts[0] == "salt" })
}

// Pytests returns selected paths under tests/pytests/
func (p *Plan) Pytests() []string {
	return p.filter(func(parts []string) bool { return hasPrefix(parts, "tests", "pytests") })
}

// LegacyTests returns selected python files under tests/unit/ or tests/integration/
func (p *Plan) LegacyTests() []string {
	return p.filterPath(isLegacyTest)
}

// PytestSupport returns selected paths under tests/support/pytest/
func (p *Plan) PytestSupport() []string {
	return p.filter(func(parts []string) bool { return hasPrefix(parts, "tests", "support", "pytest") })
}

// Docs returns selected paths under doc/
func (p *Plan) Docs() []string {
	return p.filter(func(parts []string) bool { return parts[0] == "doc" })
}

// TestFiles returns every selected path under tests/
func (p *Plan) TestFiles() []string {
	return p.filter(func(parts []string) bool { return parts[0] == "tests" })
}

// 🔍 ModuleTypes returns the loader types of the migrated modules, e.g.
// salt/modules/x.py is a "module" and salt/utils/x.py a "util"
func (p *Plan) ModuleTypes() []string {
	seen := map[string]bool{}
	for _, m := range p.Modules() {
		parts := strings.Split(m, "/")
		if len(parts) < 3 {
			continue
		}
		var typ string
		switch {
		case parts[1] == "cloud":
			typ = "cloud"
		case hasPrefix(parts, "salt", "client", "ssh", "wrapper"):
			typ = "wrapper"
		case parts[1] == "client":
			continue
		default:
			typ = strings.TrimRight(parts[1], "s")
		}
		seen[typ] = true
	}
	return sortedKeys(seen)
}

// HasModuleType reports whether a loader type is migrated
func (p *Plan) HasModuleType(typ string) bool {
	for _, t := range p.ModuleTypes() {
		if t == typ {
			return true
		}
	}
	return false
}

// Loaders returns the module types the template generates loaders for
func (p *Plan) Loaders() []string {
	var out []string
	for _, t := range p.ModuleTypes() {
		if t != "util" {
			out = append(out, t)
		}
	}
	return out
}

// 📦 ModuleImports maps Salt dotted module names to their extension names,
// e.g. salt.modules.vault to saltext.vault.modules.vault
func (p *Plan) ModuleImports() map[string]string {
	out := map[string]string{}
	for _, m := range p.Modules() {
		if path.Ext(m) != ".py" {
			continue
		}
		newPath, ok := p.Renames[m]
		if !ok {
			continue
		}
		oldMod := dotted(m)
		newMod := dotted(strings.TrimPrefix(newPath, "src/"))
		if oldMod == "" || newMod == "" {
			continue
		}
		out[oldMod] = newMod
	}
	return out
}

// SupportImports maps migrated pytest support modules to their new names,
// e.g. tests.support.pytest.vault to tests.support.vault
func (p *Plan) SupportImports() map[string]string {
	out := map[string]string{}
	for _, s := range p.PytestSupport() {
		newPath, ok := p.Renames[s]
		if !ok || path.Ext(s) != ".py" {
			continue
		}
		out[dotted(s)] = dotted(newPath)
	}
	return out
}

// 🔧 FilterRepoArgs returns the git filter-repo path selection and renames
func (p *Plan) FilterRepoArgs() []string {
	args := make([]string, 0, len(p.Paths)*2)
	for _, old := range p.Paths {
		args = append(args, "--path", old)
		if newPath, ok := p.Renames[old]; ok {
			args = append(args, "--path-rename", old+":"+newPath)
		}
	}
	return args
}

// LegacyTestsAfterMigration returns the destinations of legacy tests that
// exist in the extension and still need converting to pytest. A destination
// a pytest was renamed onto already holds a pytest.
func (p *Plan) LegacyTestsAfterMigration(exists func(p string) bool) []string {
	pytestTargets := map[string]bool{}
	for old, newPath := range p.Renames {
		if p.kinds[old] == kindPytest {
			pytestTargets[newPath] = true
		}
	}

	seen := map[string]bool{}
	for _, old := range p.LegacyTests() {
		dest := p.Destination(old)
		if pytestTargets[dest] {
			continue
		}
		if exists(dest) {
			seen[dest] = true
		}
	}
	return sortedKeys(seen)
}

// RenameLabel describes how a path is handled, for summaries
func (p *Plan) RenameLabel(old string) string {
	switch {
	case p.Renames[old] == "":
		return "Keep"
	case p.Collisions[old] != "":
		return "Rename (collision)"
	default:
		return "Rename"
	}
}

func (p *Plan) filter(keep func(parts []string) bool) []string {
	return p.filterPath(func(s string) bool { return keep(strings.Split(s, "/")) })
}

func (p *Plan) filterPath(keep func(s string) bool) []string {
	var out []string
	for _, s := range p.Paths {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func isLegacyTest(s string) bool {
	parts := strings.Split(s, "/")
	return path.Ext(s) == ".py" && len(parts) > 2 && parts[0] == "tests" &&
		(parts[1] == "unit" || parts[1] == "integration")
}

// isTestModule reports whether a path is a python test module, the only
// files that can be suffixed without breaking pytest collection
func isTestModule(s string) bool {
	base := path.Base(s)
	return strings.HasPrefix(base, "test_") && path.Ext(base) == ".py"
}

func withStemSuffix(s, suffix string) string {
	ext := path.Ext(s)
	return strings.TrimSuffix(s, ext) + suffix + ext
}

func dotted(s string) string {
	s = strings.TrimSuffix(s, path.Ext(s))
	parts := strings.Split(s, "/")
	if parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}

func hasPrefix(parts []string, prefix ...string) bool {
	if len(parts) < len(prefix) {
		return false
	}
	for i, v := range prefix {
		if parts[i] != v {
			return false
		}
	}
	return true
}

func join(prefix, rest []string) string {
	return strings.Join(append(append([]string(nil), prefix...), rest...), "/")
}

func uniqueSorted(in []string) []string {
	seen := map[string]bool{}
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			seen[s] = true
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
