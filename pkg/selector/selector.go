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

// Package selector decides which paths of the Salt history belong to an extension.
package selector

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrNoPaths is returned when nothing matched the criteria
var ErrNoPaths = errors.New("did not find any matching paths")

// defaultIgnore are paths that contain a match string by accident or must
// stay in Salt (package markers, shared conftests, translated docs)
var defaultIgnore = regexp.MustCompile(`^(\.github|doc/ref|debian/|doc/locale|doc/_themes|salt/([^/]+/)?__init__\.py|tests/(pytests/)?(unit|functional|integration)/conftest\.py)`)

// 📋 Criteria configures path selection
type Criteria struct {
	Match   []string // Substrings a path must contain
	Include []string // Globs selected regardless of Match
	Exclude []string // Globs removed from the result
}

// IsIgnored reports whether a path is never selected by a match string
func IsIgnored(path string) bool {
	return defaultIgnore.MatchString(path)
}

// 🔍 Select returns (match ∪ include) − exclude over paths, sorted and unique
func Select(ctx context.Context, criteria Criteria, paths []string) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	include, err := compileAll(criteria.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileAll(criteria.Exclude)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var selected []string
	for _, path := range paths {
		if seen[path] {
			continue
		}
		if !matches(path, criteria.Match) && !anyMatch(include, path) {
			continue
		}
		if p := firstMatch(exclude, path); p != nil {
			logger.Debug().Str("path", path).Str("pattern", p.String()).Msg("excluded")
			continue
		}
		seen[path] = true
		selected = append(selected, path)
	}

	if len(selected) == 0 {
		return nil, ErrNoPaths
	}

	sort.Strings(selected)
	logger.Debug().Int("candidates", len(paths)).Int("selected", len(selected)).Msg("selected paths")
	return selected, nil
}

func matches(path string, match []string) bool {
	if IsIgnored(path) {
		return false
	}
	for _, m := range match {
		if m != "" && strings.Contains(path, m) {
			return true
		}
	}
	return false
}

func compileAll(globs []string) ([]*Pattern, error) {
	out := make([]*Pattern, 0, len(globs))
	for _, g := range globs {
		p, err := CompilePattern(g)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func anyMatch(patterns []*Pattern, path string) bool {
	return firstMatch(patterns, path) != nil
}

func firstMatch(patterns []*Pattern, path string) *Pattern {
	for _, p := range patterns {
		if p.Match(path) {
			return p
		}
	}
	return nil
}
