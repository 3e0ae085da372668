package operation

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/saltext-migrate/pkg/log"
	"github.com/walteh/saltext-migrate/pkg/testutils"
	"gitlab.com/tozd/go/errors"
)

func TestStepRunner(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		steps   func(ran *[]string) []Step
		wantRan []string
		wantErr error
	}{
		{
			name: "runs_in_order",
			steps: func(ran *[]string) []Step {
				return []Step{
					{Name: "first", Action: record(ran, "first", nil)},
					{Name: "second", Action: record(ran, "second", nil)},
				}
			},
			wantRan: []string{"first", "second"},
		},
		{
			name: "skips_steps",
			steps: func(ran *[]string) []Step {
				return []Step{
					{Name: "first", Skip: true, Action: record(ran, "first", nil)},
					{Action: record(ran, "silent", nil)},
				}
			},
			wantRan: []string{"silent"},
		},
		{
			name: "stops_at_first_error",
			steps: func(ran *[]string) []Step {
				return []Step{
					{Name: "first", Action: record(ran, "first", boom)},
					{Name: "second", Action: record(ran, "second", nil)},
				}
			},
			wantRan: []string{"first"},
			wantErr: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ran []string
			runner := NewStepRunner(log.New(io.Discard, zerolog.Nop()))

			err := runner.Run(testutils.Context(t), tt.steps(&ran))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantRan, ran)
		})
	}
}

func TestStepRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(testutils.Context(t))
	var ran []string

	err := NewStepRunner(log.New(io.Discard, zerolog.Nop())).Run(ctx, []Step{
		{Name: "first", Action: func(ctx context.Context) error {
			ran = append(ran, "first")
			cancel()
			return nil
		}},
		{Name: "second", Action: record(&ran, "second", nil)},
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first"}, ran)
}

func record(ran *[]string, name string, err error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		*ran = append(*ran, name)
		return err
	}
}
