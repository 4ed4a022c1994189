package strategy

import (
	"fmt"
	"math"

	"github.com/quantfold/backtest/internal/core"
)

// SMACrossover signals on golden/death crosses of two simple moving averages
type SMACrossover struct {
	fastPeriod int
	slowPeriod int
}

// NewSMACrossover creates an SMA crossover strategy
func NewSMACrossover(fastPeriod, slowPeriod int) *SMACrossover {
	return &SMACrossover{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}
}

func (s *SMACrossover) Name() string {
	return "sma_crossover"
}

func (s *SMACrossover) Variant() Variant {
	return VariantSMACrossover
}

func (s *SMACrossover) GenerateSignals(series []core.PriceBar) ([]core.Signal, error) {
	if len(series) <= s.slowPeriod {
		return nil, nil // not enough data
	}

	closes := extractCloses(series)
	fast := smaSeries(closes, s.fastPeriod)
	slow := smaSeries(closes, s.slowPeriod)

	var signals []core.Signal
	for i := s.slowPeriod; i < len(series); i++ {
		prevFast, currFast := fast[i-1], fast[i]
		prevSlow, currSlow := slow[i-1], slow[i]
		if math.IsNaN(prevFast) || math.IsNaN(prevSlow) {
			continue
		}

		// Golden cross: fast crosses above slow
		if prevFast <= prevSlow && currFast > currSlow {
			signals = append(signals, core.Signal{
				Symbol:   series[i].Symbol,
				Time:     series[i].Time,
				Action:   core.ActionBuy,
				Strength: crossoverStrength(currFast, currSlow),
				Reason: fmt.Sprintf("golden cross: SMA%d (%.2f) above SMA%d (%.2f)",
					s.fastPeriod, currFast, s.slowPeriod, currSlow),
			})
		}

		// Death cross: fast crosses below slow
		if prevFast >= prevSlow && currFast < currSlow {
			signals = append(signals, core.Signal{
				Symbol:   series[i].Symbol,
				Time:     series[i].Time,
				Action:   core.ActionSell,
				Strength: crossoverStrength(currFast, currSlow),
				Reason: fmt.Sprintf("death cross: SMA%d (%.2f) below SMA%d (%.2f)",
					s.fastPeriod, currFast, s.slowPeriod, currSlow),
			})
		}
	}

	return signals, nil
}

// crossoverStrength scales divergence into [0.5, 0.9]
func crossoverStrength(fast, slow float64) float64 {
	diff := math.Abs(fast-slow) / slow
	strength := 0.5 + diff*10
	if strength > 0.9 {
		strength = 0.9
	}
	return strength
}

// extractCloses returns the close column of a series
func extractCloses(series []core.PriceBar) []float64 {
	closes := make([]float64, len(series))
	for i, bar := range series {
		closes[i] = bar.Close
	}
	return closes
}

// smaSeries returns the rolling simple moving average aligned to the input
// index, NaN during the warmup window.
func smaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}
