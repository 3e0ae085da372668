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
	"context"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📝 Answers are copier template answers keyed by question name
type Answers map[string]any

// Merge copies every key of other into a, overwriting existing values
func (a Answers) Merge(other Answers) {
	for k, v := range other {
		a[k] = v
	}
}

// Keys returns the answer names in sorted order
func (a Answers) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// 🔌 Parser decodes one answers file format
type Parser interface {
	// 📝 Parse decodes answers from bytes
	Parse(ctx context.Context, data []byte) (Answers, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var parsers []Parser

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	filename = strings.ToLower(filename)
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📦 LoadAnswers reads an answers file, choosing the format by extension
func LoadAnswers(ctx context.Context, path string) (Answers, error) {
	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for answers file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading answers file: %w", err)
	}

	answers, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing answers file %s: %w", path, err)
	}
	if answers == nil {
		answers = Answers{}
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Strs("keys", answers.Keys()).Msg("loaded answers")
	return answers, nil
}
