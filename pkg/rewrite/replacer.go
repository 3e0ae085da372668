package rewrite

import (
	"context"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// Rule replaces a dotted module name with another
type Rule struct {
	// From is the dotted module name to replace, e.g. salt.modules.vault
	From string

	// To is the replacement module name
	To string

	// FileFilterGlob limits the rule to matching slash paths
	FileFilterGlob string
}

// Result contains the results of rewriting a single file
type Result struct {
	// WasModified indicates if any replacements were made
	WasModified bool

	// ReplacementCount is the number of replacements made
	ReplacementCount int

	// OriginalContent is the content before replacements
	OriginalContent []byte

	// ModifiedContent is the content after replacements
	ModifiedContent []byte
}

// Replacer rewrites module references in python sources
type Replacer interface {
	// Replace applies every rule whose glob matches path to content
	Replace(ctx context.Context, path string, content []byte, rules []Rule) (*Result, error)

	// ValidateRules checks that all rules are valid
	ValidateRules(rules []Rule) error
}

// ImportReplacer rewrites import statements, dotted attribute chains and
// string literals found in the syntax tree of a python file
type ImportReplacer struct{}

var _ Replacer = (*ImportReplacer)(nil)

// NewImportReplacer creates a new ImportReplacer
func NewImportReplacer() *ImportReplacer {
	return &ImportReplacer{}
}

// Replace implements Replacer.Replace
func (r *ImportReplacer) Replace(ctx context.Context, path string, content []byte, rules []Rule) (*Result, error) {
	result := &Result{
		OriginalContent: content,
		ModifiedContent: content,
	}

	var active []Rule
	for _, rule := range rules {
		if rule.From == "" || rule.From == rule.To {
			continue
		}
		if rule.FileFilterGlob != "" {
			ok, err := doublestar.Match(rule.FileFilterGlob, path)
			if err != nil {
				return nil, errors.Errorf("matching %s against %s: %w", path, rule.FileFilterGlob, err)
			}
			if !ok {
				continue
			}
		}
		active = append(active, rule)
	}
	if len(active) == 0 {
		return result, nil
	}

	// longest first so salt.utils.vault.auth wins over salt.utils.vault
	sort.SliceStable(active, func(i, j int) bool { return len(active[i].From) > len(active[j].From) })

	parsed, err := parsePython(ctx, content)
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", path, err)
	}
	edits, count := parsed.rewriteModuleRefs(active)
	if len(edits) == 0 {
		return result, nil
	}

	result.ReplacementCount = count
	result.ModifiedContent = applyEdits(content, edits)
	result.WasModified = string(result.ModifiedContent) != string(content)
	return result, nil
}

// ValidateRules implements Replacer.ValidateRules
func (r *ImportReplacer) ValidateRules(rules []Rule) error {
	for i, rule := range rules {
		if rule.From == "" {
			return errors.Errorf("rule %d: from is required", i)
		}
		if rule.To == "" {
			return errors.Errorf("rule %d: to is required", i)
		}
		if !isDottedName(rule.From) || !isDottedName(rule.To) {
			return errors.Errorf("rule %d: %q => %q is not a dotted module name", i, rule.From, rule.To)
		}
		if rule.FileFilterGlob != "" && !doublestar.ValidatePattern(rule.FileFilterGlob) {
			return errors.Errorf("rule %d: invalid file_filter_glob %q", i, rule.FileFilterGlob)
		}
	}
	return nil
}
