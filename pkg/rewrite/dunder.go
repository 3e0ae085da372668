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
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// SaltDunders are the loader-injected globals a module cannot rely on
// outside of the Salt loader
var SaltDunders = []string{
	"__active_provider_name__",
	"__context__",
	"__env__",
	"__events__",
	"__executors__",
	"__grains__",
	"__instance_id__",
	"__jid_event__",
	"__low__",
	"__lowstate__",
	"__master_opts__",
	"__opts__",
	"__pillar__",
	"__proxy__",
	"__reg__",
	"__ret__",
	"__runner__",
	"__running__",
	"__salt__",
	"__salt_system_encoding__",
	"__serializers__",
	"__states__",
	"__utils__",
}

// 📦 UtilsModule describes a utils module callable through __utils__
type UtilsModule struct {
	Path        string // Slash path inside its tree
	Name        string // File stem, or package name for __init__.py
	VirtualName string // __virtualname__, defaults to Name
	Import      string // Dotted import path
	UsesDunders bool   // References loader-injected globals
	Migrated    bool   // Lives in the extension
}

// 📚 UtilsIndex resolves __utils__ module names
type UtilsIndex struct {
	extension []*UtilsModule
	salt      []*UtilsModule
}

// 🏭 IndexUtils scans utils modules of the extension (src/saltext/<name>/utils)
// and of Salt (salt/utils). saltFS may be nil when no checkout is available.
func IndexUtils(ctx context.Context, extFS, saltFS fs.FS, name string) (*UtilsIndex, error) {
	idx := &UtilsIndex{}
	var err error
	if extFS != nil {
		if idx.extension, err = scanUtils(ctx, extFS, "src", "src/saltext/"+name+"/utils", true); err != nil {
			return nil, err
		}
	}
	if saltFS != nil {
		if idx.salt, err = scanUtils(ctx, saltFS, "", "salt/utils", false); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func scanUtils(ctx context.Context, fsys fs.FS, base, dir string, migrated bool) ([]*UtilsModule, error) {
	files, err := doublestar.Glob(fsys, dir+"/**/*.py")
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(files)

	var mods []*UtilsModule
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", file, err)
		}
		parsed, err := parsePython(ctx, data)
		if err != nil {
			return nil, errors.Errorf("parsing %s: %w", file, err)
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(file, base), "/")
		importPath := strings.TrimSuffix(strings.ReplaceAll(strings.TrimSuffix(rel, ".py"), "/", "."), ".__init__")

		stem := strings.TrimSuffix(path.Base(file), ".py")
		if stem == "__init__" {
			stem = path.Base(path.Dir(file))
		}
		mod := &UtilsModule{
			Path:        file,
			Name:        stem,
			VirtualName: stem,
			Import:      importPath,
			UsesDunders: parsed.usesDunders(),
			Migrated:    migrated,
		}
		if vn, ok := parsed.virtualName(); ok && vn != "" {
			mod.VirtualName = vn
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

// Resolve finds the module behind __utils__["<name>.func"]. Extension
// modules win over Salt ones; within a tree the file name wins over
// __virtualname__.
func (idx *UtilsIndex) Resolve(name string) (*UtilsModule, bool) {
	for _, tree := range [][]*UtilsModule{idx.extension, idx.salt} {
		for _, m := range tree {
			if isDirectUtils(m) && m.Name == name {
				return m, true
			}
		}
		for _, m := range tree {
			if m.VirtualName == name {
				return m, true
			}
		}
	}
	return nil, false
}

// isDirectUtils reports whether a module sits directly in a utils directory,
// either as utils/<name>.py or utils/<name>/__init__.py
func isDirectUtils(m *UtilsModule) bool {
	dir := path.Dir(m.Path)
	if path.Base(m.Path) == "__init__.py" {
		dir = path.Dir(dir)
	}
	return path.Base(dir) == "utils"
}

// 📋 DunderUtilsResult records __utils__ calls that need follow-up, keyed by
// caller file and then utils module import path
type DunderUtilsResult struct {
	// Salt core utils relying on dunders, called from extension modules
	Missed map[string]map[string]bool
	// Salt core utils relying on dunders, called from extension utils,
	// which are not loaded by the loader and cannot use __utils__ at all
	MissedCritical map[string]map[string]bool
	// Migrated utils relying on dunders; calls were rewritten but the
	// module must be refactored to accept the values explicitly
	Rewrite map[string]map[string]bool
	// __utils__ module names found neither in the extension nor in Salt,
	// calls were left as is
	Unresolved map[string]map[string]bool
}

// NewDunderUtilsResult creates an empty result
func NewDunderUtilsResult() *DunderUtilsResult {
	return &DunderUtilsResult{
		Missed:         map[string]map[string]bool{},
		MissedCritical: map[string]map[string]bool{},
		Rewrite:        map[string]map[string]bool{},
		Unresolved:     map[string]map[string]bool{},
	}
}

// Empty reports whether nothing needs follow-up
func (r *DunderUtilsResult) Empty() bool {
	return len(r.Missed) == 0 && len(r.MissedCritical) == 0 && len(r.Rewrite) == 0 && len(r.Unresolved) == 0
}

func add(m map[string]map[string]bool, file, mod string) {
	if m[file] == nil {
		m[file] = map[string]bool{}
	}
	m[file][mod] = true
}

// Files returns the sorted caller files of a category
func Files(m map[string]map[string]bool) []string {
	out := make([]string, 0, len(m))
	for f := range m {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ByModule inverts a category to utils module => sorted caller files
func ByModule(m map[string]map[string]bool) map[string][]string {
	out := map[string][]string{}
	for file, mods := range m {
		for mod := range mods {
			out[mod] = append(out[mod], file)
		}
	}
	for mod := range out {
		sort.Strings(out[mod])
	}
	return out
}

// Modules returns the sorted utils modules of a category
func Modules(m map[string]map[string]bool) []string {
	byMod := ByModule(m)
	out := make([]string, 0, len(byMod))
	for mod := range byMod {
		out = append(out, mod)
	}
	sort.Strings(out)
	return out
}

// 🔁 RewriteDunderUtils replaces __utils__["mod.func"] in extension sources
// with direct calls of the resolved utils module
func (r *Rewriter) RewriteDunderUtils(ctx context.Context, name string, saltFS fs.FS) (*DunderUtilsResult, error) {
	logger := zerolog.Ctx(ctx)
	extFS := os.DirFS(r.root)

	idx, err := IndexUtils(ctx, extFS, saltFS, name)
	if err != nil {
		return nil, err
	}

	files, err := doublestar.Glob(extFS, sourceGlob)
	if err != nil {
		return nil, errors.Errorf("listing sources: %w", err)
	}
	sort.Strings(files)

	res := NewDunderUtilsResult()
	utilsPrefix := "src/saltext/" + name + "/utils/"
	for _, rel := range files {
		content, err := os.ReadFile(r.abs(rel))
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", rel, err)
		}
		if !strings.Contains(string(content), "__utils__") {
			continue
		}
		parsed, err := parsePython(ctx, content)
		if err != nil {
			return nil, errors.Errorf("parsing %s: %w", rel, err)
		}

		var edits []edit
		var imports []string
		for _, call := range parsed.dunderUtilsCalls() {
			mod, ok := idx.Resolve(call.module)
			if !ok {
				logger.Warn().Str("file", rel).Str("utils", call.module).Msg("could not resolve utils module, leaving call as is")
				add(res.Unresolved, rel, call.module)
				continue
			}
			if mod.UsesDunders {
				if !mod.Migrated {
					if strings.HasPrefix(rel, utilsPrefix) {
						add(res.MissedCritical, rel, mod.Import)
					} else {
						add(res.Missed, rel, mod.Import)
					}
					continue
				}
				add(res.Rewrite, rel, mod.Import)
			}
			imports = append(imports, mod.Import)
			edits = append(edits, edit{
				start: call.node.StartByte(),
				end:   call.node.EndByte(),
				text:  mod.Import + "." + call.fn,
			})
		}
		if len(edits) == 0 {
			continue
		}

		out, err := ensureImports(ctx, applyEdits(content, edits), imports)
		if err != nil {
			return nil, errors.Errorf("adding imports to %s: %w", rel, err)
		}
		if err := r.write(ctx, rel, content, out); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ensureImports adds "import <mod>" after the last top-level import for
// every module not imported yet
func ensureImports(ctx context.Context, src []byte, modules []string) ([]byte, error) {
	parsed, err := parsePython(ctx, src)
	if err != nil {
		return nil, err
	}

	var missing []string
	seen := map[string]bool{}
	for _, mod := range modules {
		if seen[mod] {
			continue
		}
		seen[mod] = true
		if !parsed.importsModule(mod) {
			missing = append(missing, "import "+mod)
		}
	}
	if len(missing) == 0 {
		return src, nil
	}
	sort.Strings(missing)

	lines := strings.Split(string(src), "\n")
	at := min(parsed.importInsertionRow(), len(lines))
	out := append([]string{}, lines[:at]...)
	out = append(out, missing...)
	out = append(out, lines[at:]...)
	return []byte(strings.Join(out, "\n")), nil
}
