package strategy

import (
	"fmt"
	"math"

	"github.com/quantfold/backtest/internal/core"
)

// RSIMeanReversion buys when RSI drops into oversold territory and sells
// when it rises into overbought territory.
type RSIMeanReversion struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSIMeanReversion creates an RSI mean-reversion strategy
func NewRSIMeanReversion(period int, oversold, overbought float64) *RSIMeanReversion {
	return &RSIMeanReversion{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
	}
}

func (s *RSIMeanReversion) Name() string {
	return "rsi_reversion"
}

func (s *RSIMeanReversion) Variant() Variant {
	return VariantRSIMeanReversion
}

func (s *RSIMeanReversion) GenerateSignals(series []core.PriceBar) ([]core.Signal, error) {
	if len(series) <= s.period+1 {
		return nil, nil
	}

	rsi := rsiSeries(extractCloses(series), s.period)

	var signals []core.Signal
	for i := s.period + 1; i < len(series); i++ {
		prev, curr := rsi[i-1], rsi[i]
		if math.IsNaN(prev) || math.IsNaN(curr) {
			continue
		}

		// Entering oversold: mean reversion buy
		if prev >= s.oversold && curr < s.oversold {
			signals = append(signals, core.Signal{
				Symbol:   series[i].Symbol,
				Time:     series[i].Time,
				Action:   core.ActionBuy,
				Strength: thresholdStrength(s.oversold - curr),
				Reason:   fmt.Sprintf("RSI%d %.1f below oversold %.0f", s.period, curr, s.oversold),
			})
		}

		// Entering overbought: take profit
		if prev <= s.overbought && curr > s.overbought {
			signals = append(signals, core.Signal{
				Symbol:   series[i].Symbol,
				Time:     series[i].Time,
				Action:   core.ActionSell,
				Strength: thresholdStrength(curr - s.overbought),
				Reason:   fmt.Sprintf("RSI%d %.1f above overbought %.0f", s.period, curr, s.overbought),
			})
		}
	}

	return signals, nil
}

// thresholdStrength scales the distance past a threshold into [0.5, 1]
func thresholdStrength(distance float64) float64 {
	strength := 0.5 + distance/40
	if strength > 1 {
		strength = 1
	}
	return strength
}

// rsiSeries computes a Wilder-smoothed RSI aligned to the input index,
// NaN during the warmup window.
func rsiSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(values) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}

	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
