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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

const (
	// DefaultBaseBranch is the maintenance branch extracted from by default
	DefaultBaseBranch = "3007.x"
	// PurgeBranch is the only branch that contains the module purge commit
	PurgeBranch = "master"
	// DefaultTemplate is the copier template used to scaffold the extension
	DefaultTemplate = "https://github.com/salt-extensions/salt-extension-copier"
	// SaltCheckoutDir is the name of the Salt checkout next to the extension directory
	SaltCheckoutDir = "salt"
	// ExtensionPrefix is prepended to the extension name for the project directory
	ExtensionPrefix = "saltext-"
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ❌ UsageError marks invalid command line input
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// 🏭 Usagef creates a usage error
func Usagef(format string, args ...interface{}) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// IsUsageError reports whether err is, or wraps, a usage error
func IsUsageError(err error) bool {
	var usage *UsageError
	return errors.As(err, &usage)
}

// 📚 Request is a single migration invocation
type Request struct {
	SaltextName     string   // Extension name without the saltext- prefix
	Match           []string // Substrings used for path discovery, defaults to SaltextName
	Include         []string // Extra path globs
	Exclude         []string // Path globs removed from the selection
	BaseBranch      string   // Salt branch to extract from
	PurgeReset      bool     // Reset to before the community extension purge
	AvoidCollisions bool     // Suffix colliding test paths instead of failing
	DataFile        string   // Optional copier answers file
	NonInteractive  bool     // Assume yes on all questions

	SkipVenv      bool   // Do not create a virtualenv or run pre-commit
	CheckUpstream bool   // Look for an existing extension repository on GitHub
	Template      string // Copier template source
	Debug         bool   // Verbose logging

	SaltPath    string // Salt checkout, derived from the working directory
	SaltextPath string // Extension project directory, derived from the working directory
}

// 🔍 Validate checks the request and fills defaults
func (r *Request) Validate() error {
	r.SaltextName = strings.TrimSpace(r.SaltextName)
	if r.SaltextName == "" {
		return Usagef("saltext_name is required")
	}
	if strings.HasPrefix(r.SaltextName, "saltext-") || strings.HasPrefix(r.SaltextName, "saltext_") {
		return Usagef("saltext_name %q must not include the saltext prefix, try %q", r.SaltextName, r.SaltextName[len(ExtensionPrefix):])
	}
	if !namePattern.MatchString(r.SaltextName) {
		return Usagef("saltext_name %q must be a valid Python identifier", r.SaltextName)
	}

	r.Match = cleanList(r.Match)
	if len(r.Match) == 0 {
		r.Match = []string{r.SaltextName}
	}
	r.Include = cleanList(r.Include)
	r.Exclude = cleanList(r.Exclude)

	if r.BaseBranch == "" {
		r.BaseBranch = DefaultBaseBranch
	}
	if r.PurgeReset && r.BaseBranch != PurgeBranch {
		return Usagef("--purge-reset requires --base-branch %s, got %q", PurgeBranch, r.BaseBranch)
	}

	if r.DataFile != "" {
		if _, err := os.Stat(r.DataFile); err != nil {
			return Usagef("data file %q: %v", r.DataFile, err)
		}
		if GetParser(r.DataFile) == nil {
			return Usagef("data file %q: unsupported extension %q", r.DataFile, filepath.Ext(r.DataFile))
		}
	}

	if r.Template == "" {
		r.Template = DefaultTemplate
	}

	return nil
}

// 📁 ResolvePaths derives the Salt checkout and extension directory from the
// working directory. Running from inside the Salt checkout (or from its
// salt/ package directory) resolves to the directory that contains it.
func (r *Request) ResolvePaths(workdir string) error {
	workdir, err := filepath.Abs(workdir)
	if err != nil {
		return errors.Errorf("resolving working directory: %w", err)
	}

	if filepath.Base(workdir) == SaltCheckoutDir {
		if _, err := os.Stat(filepath.Join(workdir, ".git")); err == nil {
			workdir = filepath.Dir(workdir)
		} else {
			workdir = filepath.Dir(filepath.Dir(workdir))
		}
	}

	if r.SaltPath == "" {
		r.SaltPath = filepath.Join(workdir, SaltCheckoutDir)
	}
	if r.SaltextPath == "" {
		r.SaltextPath = filepath.Join(workdir, r.ProjectName())
	}
	return nil
}

// ProjectName returns the extension project name, e.g. saltext-vault
func (r *Request) ProjectName() string {
	return ExtensionPrefix + r.SaltextName
}

// 📝 String returns a short description of the request
func (r *Request) String() string {
	return fmt.Sprintf("%s@%s [%s] -> %s", r.SaltPath, r.BaseBranch, strings.Join(r.Match, ","), r.SaltextPath)
}

func cleanList(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
