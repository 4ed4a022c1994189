// Package strategy defines the pluggable strategy capability and its
// closed set of variants.
package strategy

import (
	"fmt"
	"sync"

	"github.com/quantfold/backtest/internal/core"
)

// Variant identifies a concrete strategy implementation. The set is closed:
// an unknown id resolves to a typed error, never a silent default.
type Variant string

const (
	VariantSMACrossover     Variant = "SMA_CROSSOVER"
	VariantRSIMeanReversion Variant = "RSI_MEAN_REVERSION"
	VariantMomentum         Variant = "MOMENTUM"
	VariantBuyAndHold       Variant = "BUY_AND_HOLD"
)

// Strategy turns a cleaned price series into timestamped trading signals
type Strategy interface {
	Name() string
	Variant() Variant
	GenerateSignals(series []core.PriceBar) ([]core.Signal, error)
}

// Registry resolves strategies by id
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy registry
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy keyed by its name
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Resolve returns the strategy for the id, or ErrStrategyNotFound
func (r *Registry) Resolve(id string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[id]
	if !ok {
		return nil, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("id %q", id))
	}
	return s, nil
}

// GetAll returns all registered strategies
func (r *Registry) GetAll() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		result = append(result, s)
	}
	return result
}
