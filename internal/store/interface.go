// Package store persists backtest runs and their results.
package store

import (
	"context"

	"github.com/quantfold/backtest/internal/core"
)

// ResultStore defines the interface for run lifecycle and result storage
type ResultStore interface {
	// CreateRun registers a new run in PENDING state
	CreateRun(ctx context.Context, cfg core.BacktestConfig) (*core.Run, error)

	// GetRun retrieves a run by ID
	GetRun(ctx context.Context, id string) (*core.Run, error)

	// ListRuns returns all known runs
	ListRuns(ctx context.Context) ([]core.Run, error)

	// UpdateStatus moves a run to a new lifecycle state. Illegal
	// transitions are rejected. errMsg is recorded on FAILED.
	UpdateStatus(ctx context.Context, id string, status core.Status, errMsg string) error

	// SaveResult stores the result of a completed run
	SaveResult(ctx context.Context, result *core.Result) error

	// GetResult retrieves the result of a run by run ID
	GetResult(ctx context.Context, id string) (*core.Result, error)
}
