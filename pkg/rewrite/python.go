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
	"bytes"
	"context"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"gitlab.com/tozd/go/errors"
)

var importTypes = map[string]bool{
	"import_statement":        true,
	"import_from_statement":   true,
	"future_import_statement": true,
}

var saltDunderSet = func() map[string]bool {
	set := make(map[string]bool, len(SaltDunders))
	for _, d := range SaltDunders {
		set[d] = true
	}
	return set
}()

// 🌲 pySource is a python file parsed with tree-sitter
type pySource struct {
	src  []byte
	root *sitter.Node
}

func parsePython(ctx context.Context, src []byte) (*pySource, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errors.Errorf("parsing python: %w", err)
	}
	return &pySource{src: src, root: tree.RootNode()}, nil
}

func (s *pySource) text(n *sitter.Node) string {
	return n.Content(s.src)
}

// walk visits n and its named descendants in source order. Returning false
// from fn skips the children of a node.
func walk(n *sitter.Node, fn func(n *sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), fn)
	}
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// edit replaces src[start:end]
type edit struct {
	start, end uint32
	text       string
}

// applyEdits applies non-overlapping edits
func applyEdits(src []byte, edits []edit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var out bytes.Buffer
	var last uint32
	for _, e := range edits {
		out.Write(src[last:e.start])
		out.WriteString(e.text)
		last = e.end
	}
	out.Write(src[last:])
	return out.Bytes()
}

// indentOf returns the whitespace between the start of the line and n
func (s *pySource) indentOf(n *sitter.Node) string {
	start := int(n.StartByte())
	lineStart := bytes.LastIndexByte(s.src[:start], '\n') + 1
	indent := string(s.src[lineStart:start])
	if strings.TrimSpace(indent) != "" {
		return ""
	}
	return indent
}

// stringValue returns the body of a plain string literal. Formatted and
// implicitly concatenated strings are not plain.
func (s *pySource) stringValue(n *sitter.Node) (string, bool) {
	if n == nil || n.Type() != "string" {
		return "", false
	}
	text := strings.TrimLeft(s.text(n), "rRuUbB")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(text) >= 2*len(q) && strings.HasPrefix(text, q) && strings.HasSuffix(text, q) {
			return text[len(q) : len(text)-len(q)], true
		}
	}
	return "", false
}

// usesDunders reports whether the code references a loader-injected global.
// Attribute names like self.__opts__ and comments do not count.
func (s *pySource) usesDunders() bool {
	found := false
	var visit func(n *sitter.Node) bool
	visit = func(n *sitter.Node) bool {
		if found {
			return false
		}
		switch n.Type() {
		case "identifier":
			if saltDunderSet[s.text(n)] {
				found = true
			}
			return false
		case "attribute":
			walk(n.ChildByFieldName("object"), visit)
			return false
		case "comment":
			return false
		}
		return true
	}
	walk(s.root, visit)
	return found
}

// virtualName returns the module level __virtualname__ assignment
func (s *pySource) virtualName() (string, bool) {
	for i := 0; i < int(s.root.NamedChildCount()); i++ {
		stmt := s.root.NamedChild(i)
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			continue
		}
		assign := stmt.NamedChild(0)
		if assign.Type() != "assignment" {
			continue
		}
		left := assign.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" || s.text(left) != "__virtualname__" {
			continue
		}
		return s.stringValue(assign.ChildByFieldName("right"))
	}
	return "", false
}

// importsModule reports whether a top-level "import <mod>" exists
func (s *pySource) importsModule(mod string) bool {
	for i := 0; i < int(s.root.NamedChildCount()); i++ {
		stmt := s.root.NamedChild(i)
		if stmt.Type() != "import_statement" {
			continue
		}
		for j := 0; j < int(stmt.NamedChildCount()); j++ {
			name := stmt.NamedChild(j)
			if name.Type() == "dotted_name" && s.text(name) == mod {
				return true
			}
		}
	}
	return false
}

// importInsertionRow returns the row after the last top-level import, or
// after the module docstring when there are no imports
func (s *pySource) importInsertionRow() int {
	last := -1
	docEnd := 0
	first := true
	for i := 0; i < int(s.root.NamedChildCount()); i++ {
		stmt := s.root.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		if first && stmt.Type() == "expression_statement" &&
			stmt.NamedChildCount() == 1 && stmt.NamedChild(0).Type() == "string" {
			docEnd = int(stmt.EndPoint().Row) + 1
		}
		first = false
		if importTypes[stmt.Type()] {
			last = int(stmt.EndPoint().Row)
		}
	}
	if last >= 0 {
		return last + 1
	}
	return docEnd
}

// utilsCall is a __utils__["<module>.<func>"] lookup
type utilsCall struct {
	node   *sitter.Node
	module string
	fn     string
}

func (s *pySource) dunderUtilsCalls() []utilsCall {
	var calls []utilsCall
	walk(s.root, func(n *sitter.Node) bool {
		if n.Type() != "subscript" {
			return true
		}
		value := n.ChildByFieldName("value")
		if value == nil || value.Type() != "identifier" || s.text(value) != "__utils__" {
			return true
		}
		key, ok := s.stringValue(n.ChildByFieldName("subscript"))
		if !ok || strings.Count(key, ".") != 1 || !isDottedName(key) {
			return true
		}
		mod, fn, _ := strings.Cut(key, ".")
		calls = append(calls, utilsCall{node: n, module: mod, fn: fn})
		return false
	})
	return calls
}
