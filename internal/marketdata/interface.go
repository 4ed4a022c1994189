// Package marketdata defines the market data acquisition boundary of the
// backtest engine.
package marketdata

import (
	"context"
	"time"

	"github.com/quantfold/backtest/internal/core"
)

// Provider fetches historical price bars for one symbol. A call may fail;
// callers must treat per-symbol failures as recoverable.
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// GetBars returns bars for the symbol in [start, end], ascending by time
	GetBars(ctx context.Context, symbol string, start, end time.Time) ([]core.PriceBar, error)
}
