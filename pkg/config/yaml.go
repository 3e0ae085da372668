package config

import (
	"bytes"
	"context"
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

func init() {
	Register(&YAMLParser{})
}

// 🔧 YAMLParser reads copier-style YAML answers files
type YAMLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

// 📝 Parse decodes a top-level YAML mapping
func (p *YAMLParser) Parse(ctx context.Context, data []byte) (Answers, error) {
	var answers Answers
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&answers); err != nil {
		if errors.Is(err, io.EOF) {
			return Answers{}, nil
		}
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return answers, nil
}
