package rewrite

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

var dottedNameRe = regexp.MustCompile(`^[A-Za-z_]\w*(\.[A-Za-z_]\w*)*$`)

func isDottedName(s string) bool {
	return dottedNameRe.MatchString(s)
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// replaceDotted replaces whole dotted names in a single pass. A match must
// not be preceded by an identifier character or a dot and must not be
// followed by an identifier character, so salt.modules.vault neither hits
// salt.modules.vaultx nor x.salt.modules.vault. Rules must be sorted
// longest first.
func replaceDotted(text string, rules []Rule) (string, int) {
	var b strings.Builder
	count := 0
	for i := 0; i < len(text); {
		if i == 0 || !(isIdentByte(text[i-1]) || text[i-1] == '.') {
			if rule, ok := matchRuleAt(text, i, rules); ok {
				b.WriteString(rule.To)
				i += len(rule.From)
				count++
				continue
			}
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String(), count
}

func matchRuleAt(text string, i int, rules []Rule) (Rule, bool) {
	for _, rule := range rules {
		if !strings.HasPrefix(text[i:], rule.From) {
			continue
		}
		end := i + len(rule.From)
		if end < len(text) && isIdentByte(text[end]) {
			continue
		}
		return rule, true
	}
	return Rule{}, false
}

// rewriteModuleRefs replaces module references in import statements, dotted
// attribute chains and string literals. Comments are left alone.
func (s *pySource) rewriteModuleRefs(rules []Rule) ([]edit, int) {
	byParent := fromImportLeaves(rules)

	var edits []edit
	count := 0
	replace := func(n *sitter.Node) {
		if n == nil {
			return
		}
		out, c := replaceDotted(s.text(n), rules)
		if c > 0 {
			edits = append(edits, edit{start: n.StartByte(), end: n.EndByte(), text: out})
			count += c
		}
	}

	walk(s.root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "comment":
			return false
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				name := n.NamedChild(i)
				switch name.Type() {
				case "dotted_name":
					replace(name)
				case "aliased_import":
					replace(name.ChildByFieldName("name"))
				}
			}
			return false
		case "import_from_statement":
			if e, c, ok := s.splitFromImport(n, byParent, rules); ok {
				edits = append(edits, e)
				count += c
			}
			return false
		case "string":
			replace(n)
			return false
		case "attribute":
			if isDottedName(s.text(n)) {
				replace(n)
				return false
			}
		}
		return true
	})
	return edits, count
}

// fromImportLeaves maps parent => leaf => new module for rules whose module
// can be imported as "from <parent> import <leaf>"
func fromImportLeaves(rules []Rule) map[string]map[string]string {
	byParent := map[string]map[string]string{}
	for _, rule := range rules {
		parent, leaf := splitLast(rule.From)
		if parent == "" {
			continue
		}
		if byParent[parent] == nil {
			byParent[parent] = map[string]string{}
		}
		if _, ok := byParent[parent][leaf]; !ok {
			byParent[parent][leaf] = rule.To
		}
	}
	return byParent
}

type importedName struct {
	name     string   // imported name
	alias    string   // "name" or "name as alias"
	local    string   // name bound in the importing module
	row      uint32   // row the name ends on
	comments []string // comments trailing the name
}

// splitFromImport rewrites "from <parent> import <leaf>" for rules whose
// module is parent.leaf. Names that are not migrated stay in a separate
// statement importing from the parent. Each name keeps its own comments;
// comments on the statement line go to the first statement written.
func (s *pySource) splitFromImport(stmt *sitter.Node, byParent map[string]map[string]string, rules []Rule) (edit, int, bool) {
	module := stmt.ChildByFieldName("module_name")
	if module == nil || module.Type() != "dotted_name" {
		return edit{}, 0, false
	}
	parent := s.text(module)
	keptParent, count := replaceDotted(parent, rules)

	names, stmtComments := s.importedNames(stmt, module)
	leaves := byParent[parent]

	var kept []importedName
	var order []string
	moved := map[string][]importedName{}
	for _, n := range names {
		newModule, migrated := leaves[n.name]
		if !migrated {
			kept = append(kept, n)
			continue
		}
		newParent, newLeaf := splitLast(newModule)
		if newLeaf != n.name {
			// the module itself was renamed, keep the local name stable
			n.alias = newLeaf + " as " + n.local
		}
		if _, seen := moved[newParent]; !seen {
			order = append(order, newParent)
		}
		moved[newParent] = append(moved[newParent], n)
		count++
	}

	if len(order) == 0 {
		if count == 0 {
			return edit{}, 0, false
		}
		return edit{start: module.StartByte(), end: module.EndByte(), text: keptParent}, count, true
	}

	var lines []string
	for _, p := range order {
		lines = append(lines, fromImportLine(p, moved[p]))
	}
	if len(kept) > 0 {
		lines = append(lines, fromImportLine(keptParent, kept))
	}

	end := stmt.EndByte()
	if next := stmt.NextSibling(); next != nil && next.Type() == "comment" && next.StartPoint().Row == stmt.EndPoint().Row {
		stmtComments = append(stmtComments, s.text(next))
		end = next.EndByte()
	}
	if len(stmtComments) > 0 {
		lines[0] += "  " + strings.Join(stmtComments, "  ")
	}

	return edit{
		start: stmt.StartByte(),
		end:   end,
		text:  strings.Join(lines, "\n"+s.indentOf(stmt)),
	}, count, true
}

func fromImportLine(parent string, names []importedName) string {
	aliases := make([]string, 0, len(names))
	var comments []string
	for _, n := range names {
		aliases = append(aliases, n.alias)
		comments = append(comments, n.comments...)
	}
	line := "from " + parent + " import " + strings.Join(aliases, ", ")
	if len(comments) > 0 {
		line += "  " + strings.Join(comments, "  ")
	}
	return line
}

// importedNames lists the names of a from-import. A comment belongs to the
// name ending on its row, to the statement when it shares the first row, and
// otherwise to the name following it. Wildcard imports have no names.
func (s *pySource) importedNames(stmt, module *sitter.Node) ([]importedName, []string) {
	var names []importedName
	var stmtComments, pending []string
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		if sameNode(child, module) {
			continue
		}
		var n importedName
		switch child.Type() {
		case "wildcard_import":
			return nil, nil
		case "comment":
			text := s.text(child)
			row := child.StartPoint().Row
			switch {
			case len(names) > 0 && names[len(names)-1].row == row:
				names[len(names)-1].comments = append(names[len(names)-1].comments, text)
			case row == stmt.StartPoint().Row:
				stmtComments = append(stmtComments, text)
			default:
				pending = append(pending, text)
			}
			continue
		case "dotted_name":
			name := s.text(child)
			n = importedName{name: name, alias: name, local: name}
		case "aliased_import":
			name, alias := child.ChildByFieldName("name"), child.ChildByFieldName("alias")
			if name == nil || alias == nil {
				continue
			}
			n = importedName{
				name:  s.text(name),
				alias: s.text(name) + " as " + s.text(alias),
				local: s.text(alias),
			}
		default:
			continue
		}
		n.row = child.EndPoint().Row
		n.comments, pending = pending, nil
		names = append(names, n)
	}
	if len(pending) > 0 && len(names) > 0 {
		last := &names[len(names)-1]
		last.comments = append(last.comments, pending...)
	}
	return names, stmtComments
}

func splitLast(dotted string) (string, string) {
	idx := strings.LastIndex(dotted, ".")
	if idx < 0 {
		return "", dotted
	}
	return dotted[:idx], dotted[idx+1:]
}
