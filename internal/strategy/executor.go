package strategy

import (
	"sort"

	"github.com/quantfold/backtest/internal/core"
	"go.uber.org/zap"
)

// Executor resolves a strategy and runs it over every symbol's cleaned
// series, producing one merged, time-ordered signal list.
type Executor struct {
	registry *Registry
	logger   *zap.Logger
}

// NewExecutor creates an Executor. A nil logger disables logging.
func NewExecutor(registry *Registry, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		registry: registry,
		logger:   logger,
	}
}

// GenerateSignals runs the strategy identified by strategyID over the
// series map. HOLD signals are filtered out and the result is sorted by
// timestamp, then symbol, so replay order is deterministic. An unresolved
// strategy id is a fatal error; an empty series map is not, it simply
// yields no signals.
func (e *Executor) GenerateSignals(strategyID string, seriesBySymbol map[string][]core.PriceBar) ([]core.Signal, error) {
	strat, err := e.registry.Resolve(strategyID)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(seriesBySymbol))
	for symbol := range seriesBySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var all []core.Signal
	for _, symbol := range symbols {
		signals, err := strat.GenerateSignals(seriesBySymbol[symbol])
		if err != nil {
			return nil, core.WrapError(core.ErrExecutionFailed, err)
		}

		for _, sig := range signals {
			if sig.Action == core.ActionHold {
				continue
			}
			sig.Strategy = strat.Name()
			all = append(all, sig)
		}

		e.logger.Debug("signals generated",
			zap.String("strategy", strat.Name()),
			zap.String("symbol", symbol),
			zap.Int("count", len(signals)),
		)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Time.Equal(all[j].Time) {
			return all[i].Time.Before(all[j].Time)
		}
		return all[i].Symbol < all[j].Symbol
	})

	return all, nil
}
