// Package archive provides cold storage for completed backtest results,
// serialized as JSON and keyed by run ID.
package archive

import (
	"context"

	"github.com/quantfold/backtest/internal/core"
)

// Archive defines the interface for result archive backends
type Archive interface {
	// Save stores a run result
	Save(ctx context.Context, result *core.Result) error

	// Load retrieves a run result by run ID
	Load(ctx context.Context, runID string) (*core.Result, error)

	// List returns the run IDs of all archived results
	List(ctx context.Context) ([]string, error)

	// Delete removes an archived result
	Delete(ctx context.Context, runID string) error

	// Exists checks whether a result is archived for the run
	Exists(ctx context.Context, runID string) (bool, error)
}
