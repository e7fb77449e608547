// Package persistence provides optional storage for finished run results.
// The engine itself keeps no state beyond one run; callers hand results to
// a Store when they want them archived.
package persistence

import (
	"context"

	"github.com/taskline/taskline/pkg/engine"
)

type Store interface {
	SaveRun(ctx context.Context, result *engine.RunResult) error
	RunByID(ctx context.Context, runID string) (*engine.RunResult, error)
	Runs(ctx context.Context) ([]*engine.RunResult, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
