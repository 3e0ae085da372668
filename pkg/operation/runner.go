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

package operation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/saltext-migrate/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// 🪜 Step is a single stage of a migration
type Step struct {
	Name   string // Printed as the step status, empty for silent steps
	Skip   bool
	Action func(ctx context.Context) error
}

// 🏃 StepRunner executes steps one after another, stopping at the first error
type StepRunner struct {
	console *log.Logger
}

// 🏗️ NewStepRunner creates a new runner
func NewStepRunner(console *log.Logger) *StepRunner {
	return &StepRunner{console: console}
}

// 🏃 Run executes steps in order
func (r *StepRunner) Run(ctx context.Context, steps []Step) error {
	logger := zerolog.Ctx(ctx)
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("migration cancelled: %w", err)
		}
		if step.Skip {
			logger.Debug().Int("step", i).Str("name", step.Name).Msg("skipping step")
			continue
		}
		if step.Name != "" {
			r.console.Status(step.Name)
		}

		start := time.Now()
		if err := step.Action(ctx); err != nil {
			logger.Debug().Int("step", i).Str("name", step.Name).Err(err).Msg("step failed")
			return err
		}
		logger.Debug().Int("step", i).Str("name", step.Name).Dur("took", time.Since(start)).Msg("step done")
	}
	return nil
}
