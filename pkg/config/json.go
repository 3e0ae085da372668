package config

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&JSONParser{})
}

// 🔧 JSONParser reads JSON answers files
type JSONParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *JSONParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".json")
}

// 📝 Parse decodes a top-level JSON object
func (p *JSONParser) Parse(ctx context.Context, data []byte) (Answers, error) {
	var answers Answers
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&answers); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	return normalizeNumbers(answers), nil
}

// normalizeNumbers turns json.Number into int64 or float64 so answers
// render the same way in the copier data file regardless of source format
func normalizeNumbers(a Answers) Answers {
	for k, v := range a {
		a[k] = normalizeValue(v)
	}
	return a
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeValue(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalizeValue(inner)
		}
		return t
	default:
		return v
	}
}
