// Package prompt asks the operator questions during a migration.
package prompt

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// defaultMaxHeight is the number of options shown at once by the path picker
const defaultMaxHeight = 20

// Prompter asks yes/no questions and lets the operator pick from a list.
type Prompter interface {
	// Confirm asks a yes/no question
	Confirm(ctx context.Context, msg string, def bool) (bool, error)
	// Select shows options, all pre-selected, and returns the kept ones
	Select(ctx context.Context, msg string, options []string) ([]string, error)
}

// Interactive prompts on the terminal with pterm.
type Interactive struct {
	MaxHeight int
}

var _ Prompter = (*Interactive)(nil)

// NewInteractive creates a terminal prompter
func NewInteractive() *Interactive {
	return &Interactive{MaxHeight: defaultMaxHeight}
}

// Confirm implements Prompter
func (p *Interactive) Confirm(ctx context.Context, msg string, def bool) (bool, error) {
	ok, err := pterm.DefaultInteractiveConfirm.WithDefaultValue(def).Show(msg)
	if err != nil {
		return false, errors.Errorf("asking %q: %w", msg, err)
	}
	zerolog.Ctx(ctx).Debug().Str("question", msg).Bool("answer", ok).Msg("confirm")
	return ok, nil
}

// Select implements Prompter
func (p *Interactive) Select(ctx context.Context, msg string, options []string) ([]string, error) {
	if len(options) == 0 {
		return nil, nil
	}
	height := p.MaxHeight
	if height <= 0 {
		height = defaultMaxHeight
	}
	selected, err := pterm.DefaultInteractiveMultiselect.
		WithOptions(options).
		WithDefaultOptions(options).
		WithMaxHeight(height).
		Show(msg)
	if err != nil {
		return nil, errors.Errorf("selecting: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Int("offered", len(options)).Int("selected", len(selected)).Msg("select")
	return selected, nil
}

// AssumeYes answers every question with yes and keeps every option.
type AssumeYes struct{}

var _ Prompter = AssumeYes{}

// Confirm implements Prompter
func (AssumeYes) Confirm(ctx context.Context, msg string, def bool) (bool, error) {
	zerolog.Ctx(ctx).Debug().Str("question", msg).Msg("assuming yes")
	return true, nil
}

// Select implements Prompter
func (AssumeYes) Select(ctx context.Context, msg string, options []string) ([]string, error) {
	return append([]string(nil), options...), nil
}
