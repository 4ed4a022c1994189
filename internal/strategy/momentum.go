package strategy

import (
	"fmt"

	"github.com/quantfold/backtest/internal/core"
)

// Momentum signals when the trailing return crosses a threshold
type Momentum struct {
	lookback  int
	threshold float64
}

// NewMomentum creates a momentum strategy
func NewMomentum(lookback int, threshold float64) *Momentum {
	return &Momentum{
		lookback:  lookback,
		threshold: threshold,
	}
}

func (s *Momentum) Name() string {
	return "momentum"
}

func (s *Momentum) Variant() Variant {
	return VariantMomentum
}

func (s *Momentum) GenerateSignals(series []core.PriceBar) ([]core.Signal, error) {
	if len(series) <= s.lookback+1 {
		return nil, nil
	}

	momentum := func(i int) float64 {
		return series[i].Close/series[i-s.lookback].Close - 1
	}

	var signals []core.Signal
	for i := s.lookback + 1; i < len(series); i++ {
		prev, curr := momentum(i-1), momentum(i)

		// Momentum turning positive past the threshold
		if prev <= s.threshold && curr > s.threshold {
			signals = append(signals, core.Signal{
				Symbol:   series[i].Symbol,
				Time:     series[i].Time,
				Action:   core.ActionBuy,
				Strength: thresholdStrength(curr - s.threshold),
				Reason: fmt.Sprintf("%d-bar momentum %.2f%% above %.2f%%",
					s.lookback, curr*100, s.threshold*100),
			})
		}

		// Momentum turning negative past the threshold
		if prev >= -s.threshold && curr < -s.threshold {
			signals = append(signals, core.Signal{
				Symbol:   series[i].Symbol,
				Time:     series[i].Time,
				Action:   core.ActionSell,
				Strength: thresholdStrength(-s.threshold - curr),
				Reason: fmt.Sprintf("%d-bar momentum %.2f%% below -%.2f%%",
					s.lookback, curr*100, s.threshold*100),
			})
		}
	}

	return signals, nil
}
