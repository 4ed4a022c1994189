// Package analytics computes return and risk statistics from equity curves
// and return series. Every function is deterministic and side-effect-free,
// and degenerate input (empty series, zero variance) yields 0 rather than
// an error.
package analytics

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/quantfold/backtest/internal/core"
)

// Analyzer parameterizes the statistics. Volatility, Sharpe and Sortino use
// sample standard deviation (ddof=1) throughout.
type Analyzer struct {
	PeriodsPerYear int
	RiskFreeRate   float64
	VaRConfidence  float64
}

// NewAnalyzer returns an Analyzer with the conventional defaults:
// 252 trading periods per year, 2% risk-free rate, 95% VaR confidence.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		PeriodsPerYear: 252,
		RiskFreeRate:   0.02,
		VaRConfidence:  0.95,
	}
}

// Returns converts a value series into period-over-period percentage changes
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

// TotalReturn is the overall fractional return of a value series
func TotalReturn(values []float64) float64 {
	if len(values) < 2 || values[0] == 0 {
		return 0
	}
	return values[len(values)-1]/values[0] - 1
}

// AnnualizedReturn compounds the total return to a yearly rate
func (a *Analyzer) AnnualizedReturn(values []float64) float64 {
	periods := len(values) - 1
	if periods < 1 {
		return 0
	}
	total := TotalReturn(values)
	if total <= -1 {
		return -1
	}
	return math.Pow(1+total, float64(a.PeriodsPerYear)/float64(periods)) - 1
}

// Volatility is the annualized sample standard deviation of returns
func (a *Analyzer) Volatility(returns []float64) float64 {
	sd := sampleStdDev(returns)
	return sd * math.Sqrt(float64(a.PeriodsPerYear))
}

// Sharpe is the annualized risk-adjusted return over the risk-free rate.
// Returns 0 when the deviation is zero or undefined.
func (a *Analyzer) Sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	target := a.periodTarget()
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - target
	}

	sd := sampleStdDev(excess)
	if sd == 0 {
		return 0
	}
	mean, err := stats.Mean(excess)
	if err != nil {
		return 0
	}
	return mean / sd * math.Sqrt(float64(a.PeriodsPerYear))
}

// Sortino is Sharpe with the denominator restricted to returns below the
// per-period target (downside deviation). Returns 0 when there are no
// meaningful downside observations.
func (a *Analyzer) Sortino(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	target := a.periodTarget()
	var downside []float64
	var excessSum float64
	for _, r := range returns {
		excessSum += r - target
		if r < target {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return 0
	}

	dd := sampleStdDev(downside)
	if dd == 0 {
		return 0
	}
	mean := excessSum / float64(len(returns))
	return mean / dd * math.Sqrt(float64(a.PeriodsPerYear))
}

// MaxDrawdown is the largest peak-to-trough decline of a value series,
// reported as a magnitude in [0, 1]. A monotonically non-decreasing series
// has zero drawdown.
func MaxDrawdown(values []float64) float64 {
	var maxDD, peak float64
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// Calmar is the annualized return over the max drawdown magnitude,
// 0 when there is no drawdown.
func (a *Analyzer) Calmar(values []float64) float64 {
	dd := MaxDrawdown(values)
	if dd == 0 {
		return 0
	}
	return a.AnnualizedReturn(values) / dd
}

// VaR is the return at the (1-confidence) percentile: the loss threshold
// exceeded with probability 1-confidence.
func (a *Analyzer) VaR(returns []float64) float64 {
	return valueAtRisk(returns, a.VaRConfidence)
}

// CVaR is the mean of the returns at or below the VaR threshold
func (a *Analyzer) CVaR(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	threshold := valueAtRisk(returns, a.VaRConfidence)
	var tail []float64
	for _, r := range returns {
		if r <= threshold {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return threshold
	}
	mean, err := stats.Mean(tail)
	if err != nil {
		return 0
	}
	return mean
}

// Beta is cov(returns, benchmark) / var(benchmark), defaulting to 1 when
// the benchmark has no variance.
func Beta(returns, benchmark []float64) float64 {
	n := min(len(returns), len(benchmark))
	if n < 2 {
		return 1
	}
	r, b := returns[:n], benchmark[:n]

	benchVar, err := stats.VarS(b)
	if err != nil || benchVar == 0 || math.IsNaN(benchVar) {
		return 1
	}
	cov, err := stats.Covariance(r, b)
	if err != nil {
		return 1
	}
	return cov / benchVar
}

// Correlation is the Pearson correlation against the benchmark, 0 when
// undefined.
func Correlation(returns, benchmark []float64) float64 {
	n := min(len(returns), len(benchmark))
	if n < 2 {
		return 0
	}
	corr, err := stats.Correlation(returns[:n], benchmark[:n])
	if err != nil || math.IsNaN(corr) {
		return 0
	}
	return corr
}

// Compute assembles the full metrics set for a run from its equity curve,
// an optional benchmark value series, and the trade ledger.
func (a *Analyzer) Compute(values, benchmarkValues []float64, trades []core.Trade) core.PerformanceMetrics {
	returns := Returns(values)
	benchReturns := Returns(benchmarkValues)

	m := core.PerformanceMetrics{
		TotalReturn:      TotalReturn(values),
		AnnualizedReturn: a.AnnualizedReturn(values),
		Volatility:       a.Volatility(returns),
		SharpeRatio:      a.Sharpe(returns),
		SortinoRatio:     a.Sortino(returns),
		CalmarRatio:      a.Calmar(values),
		MaxDrawdown:      MaxDrawdown(values),
		VaR:              a.VaR(returns),
		CVaR:             a.CVaR(returns),
		VaRConfidence:    a.VaRConfidence,
		Beta:             Beta(returns, benchReturns),
		Correlation:      Correlation(returns, benchReturns),
		TotalTrades:      len(trades),
	}

	for _, t := range trades {
		if t.Type != core.TradeSell {
			continue
		}
		if t.RealizedPL > 0 {
			m.WinningTrades++
		} else {
			m.LosingTrades++
		}
	}
	if closed := m.WinningTrades + m.LosingTrades; closed > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(closed) * 100
	}

	return m
}

func (a *Analyzer) periodTarget() float64 {
	return a.RiskFreeRate / float64(a.PeriodsPerYear)
}

// sampleStdDev is the single stddev helper of the package: ddof=1, 0 when
// undefined.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sd, err := stats.StdDevS(values)
	if err != nil || math.IsNaN(sd) {
		return 0
	}
	return sd
}

// valueAtRisk is the lower-tail percentile of the return distribution. The
// percentile interpolation can be undefined for very short series; the
// minimum return is the conservative fallback.
func valueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	pct := (1 - confidence) * 100
	v, err := stats.Percentile(returns, pct)
	if err != nil || math.IsNaN(v) {
		m, err := stats.Min(returns)
		if err != nil {
			return 0
		}
		return m
	}
	return v
}
