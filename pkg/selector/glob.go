package selector

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Pattern is a compiled include/exclude glob
type Pattern struct {
	raw  string
	glob glob.Glob // shell-style, nil for doublestar patterns
}

// 🏭 CompilePattern compiles a glob. Patterns containing ** follow
// doublestar rules; every other pattern is shell-style, where * also
// crosses path separators. An unclosed [ matches itself.
func CompilePattern(pattern string) (*Pattern, error) {
	if strings.Contains(pattern, "**") {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid glob %q", pattern)
		}
		return &Pattern{raw: pattern}, nil
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		var retryErr error
		if g, retryErr = glob.Compile(strings.ReplaceAll(pattern, "[", `\[`)); retryErr != nil {
			return nil, errors.Errorf("invalid glob %q: %w", pattern, err)
		}
	}
	return &Pattern{raw: pattern, glob: g}, nil
}

// String returns the source pattern
func (p *Pattern) String() string {
	return p.raw
}

// Match reports whether path matches the pattern
func (p *Pattern) Match(path string) bool {
	if p.glob != nil {
		return p.glob.Match(path)
	}
	ok, err := doublestar.Match(p.raw, path)
	return err == nil && ok
}
