package analytics

import (
	"math"
	"testing"

	"github.com/quantfold/backtest/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestReturns(t *testing.T) {
	got := Returns([]float64{100, 110, 99})
	assert.Len(t, got, 2)
	assert.InDelta(t, 0.10, got[0], 1e-12)
	assert.InDelta(t, -0.10, got[1], 1e-12)

	assert.Nil(t, Returns(nil))
	assert.Nil(t, Returns([]float64{100}))
}

func TestTotalReturn(t *testing.T) {
	assert.InDelta(t, 0.20, TotalReturn([]float64{100, 90, 120}), 1e-12)
	assert.Equal(t, 0.0, TotalReturn(nil))
	assert.Equal(t, 0.0, TotalReturn([]float64{0, 100}))
}

func TestAnnualizedReturn(t *testing.T) {
	a := &Analyzer{PeriodsPerYear: 2}

	// one period at +21%, two periods per year: (1.21)^2 - 1
	assert.InDelta(t, 0.4641, a.AnnualizedReturn([]float64{100, 121}), 1e-9)

	// a full year of periods annualizes to the total return itself
	assert.InDelta(t, 0.21, a.AnnualizedReturn([]float64{100, 110, 121}), 1e-9)

	assert.Equal(t, 0.0, a.AnnualizedReturn([]float64{100}))
}

func TestVolatility(t *testing.T) {
	a := NewAnalyzer()

	returns := []float64{0.01, -0.01, 0.01, -0.01}
	// sample stddev = sqrt(4e-4/3), annualized by sqrt(252)
	want := math.Sqrt(4e-4/3) * math.Sqrt(252)
	assert.InDelta(t, want, a.Volatility(returns), 1e-9)

	assert.Equal(t, 0.0, a.Volatility(nil))
	assert.Equal(t, 0.0, a.Volatility([]float64{0.05}))
}

func TestSharpe(t *testing.T) {
	a := &Analyzer{PeriodsPerYear: 252, RiskFreeRate: 0}

	returns := []float64{0.02, 0.0, 0.02, 0.0}
	// mean 0.01, sample stddev sqrt(4e-4/3)
	want := 0.01 / math.Sqrt(4e-4/3) * math.Sqrt(252)
	assert.InDelta(t, want, a.Sharpe(returns), 1e-9)

	// zero variance means no risk-adjusted figure
	assert.Equal(t, 0.0, a.Sharpe([]float64{0.01, 0.01, 0.01}))
	assert.Equal(t, 0.0, a.Sharpe([]float64{0.01}))
}

func TestSortino(t *testing.T) {
	a := &Analyzer{PeriodsPerYear: 252, RiskFreeRate: 0}

	returns := []float64{0.01, -0.01, 0.02, -0.02, 0.03}
	// downside = {-0.01, -0.02}: sample stddev sqrt(5e-5); mean return 0.006
	want := 0.006 / math.Sqrt(5e-5) * math.Sqrt(252)
	assert.InDelta(t, want, a.Sortino(returns), 1e-9)

	// no downside observations
	assert.Equal(t, 0.0, a.Sortino([]float64{0.01, 0.02, 0.03}))
}

func TestMaxDrawdown(t *testing.T) {
	// peak 130 to trough 80 dominates the earlier 120 to 90 decline
	dd := MaxDrawdown([]float64{100, 120, 90, 130, 80})
	assert.InDelta(t, 50.0/130.0, dd, 1e-12)

	assert.Equal(t, 0.0, MaxDrawdown([]float64{100, 100, 110, 120}))
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestCalmar(t *testing.T) {
	a := NewAnalyzer()

	assert.Equal(t, 0.0, a.Calmar([]float64{100, 110, 120}))

	values := []float64{100, 120, 90, 130, 80}
	want := a.AnnualizedReturn(values) / MaxDrawdown(values)
	assert.InDelta(t, want, a.Calmar(values), 1e-12)
}

func TestVaR(t *testing.T) {
	a := NewAnalyzer()

	// 20 observations at 95% confidence lands exactly on the worst return
	returns := make([]float64, 0, 20)
	returns = append(returns, -0.05, -0.03)
	for i := 0; i < 18; i++ {
		returns = append(returns, 0.01)
	}
	assert.InDelta(t, -0.05, a.VaR(returns), 1e-12)
	assert.InDelta(t, -0.05, a.CVaR(returns), 1e-12)

	// at 90% the threshold is the second-worst return and CVaR averages
	// both tail observations
	a90 := &Analyzer{PeriodsPerYear: 252, RiskFreeRate: 0.02, VaRConfidence: 0.90}
	assert.InDelta(t, -0.03, a90.VaR(returns), 1e-12)
	assert.InDelta(t, -0.04, a90.CVaR(returns), 1e-12)

	assert.Equal(t, 0.0, a.VaR(nil))
	assert.Equal(t, 0.0, a.CVaR(nil))
}

func TestVaRShortSeriesFallsBackToMinimum(t *testing.T) {
	a := NewAnalyzer()
	assert.InDelta(t, -0.02, a.VaR([]float64{0.01, -0.02, 0.03}), 1e-12)
}

func TestBeta(t *testing.T) {
	bench := []float64{0.01, -0.01, 0.02, -0.02}
	doubled := []float64{0.02, -0.02, 0.04, -0.04}

	assert.InDelta(t, 2.0, Beta(doubled, bench), 1e-9)
	assert.InDelta(t, 1.0, Beta(bench, bench), 1e-9)

	// flat benchmark defaults to market beta
	assert.Equal(t, 1.0, Beta(doubled, []float64{0.01, 0.01, 0.01, 0.01}))
	assert.Equal(t, 1.0, Beta(nil, nil))
}

func TestCorrelation(t *testing.T) {
	bench := []float64{0.01, -0.01, 0.02, -0.02}
	doubled := []float64{0.02, -0.02, 0.04, -0.04}
	inverted := []float64{-0.01, 0.01, -0.02, 0.02}

	assert.InDelta(t, 1.0, Correlation(doubled, bench), 1e-9)
	assert.InDelta(t, -1.0, Correlation(inverted, bench), 1e-9)
	assert.Equal(t, 0.0, Correlation(bench, []float64{0.01, 0.01, 0.01, 0.01}))
	assert.Equal(t, 0.0, Correlation(nil, nil))
}

func TestCompute(t *testing.T) {
	a := NewAnalyzer()

	values := []float64{100000, 101000, 99000, 103000}
	trades := []core.Trade{
		{Type: core.TradeBuy},
		{Type: core.TradeSell, RealizedPL: 50},
		{Type: core.TradeSell, RealizedPL: -10},
		{Type: core.TradeSell, RealizedPL: 0},
	}

	m := a.Compute(values, values, trades)

	assert.InDelta(t, 0.03, m.TotalReturn, 1e-12)
	assert.InDelta(t, MaxDrawdown(values), m.MaxDrawdown, 1e-12)
	assert.InDelta(t, 1.0, m.Beta, 1e-9)
	assert.InDelta(t, 1.0, m.Correlation, 1e-9)
	assert.Equal(t, 0.95, m.VaRConfidence)

	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 1, m.WinningTrades)
	assert.Equal(t, 2, m.LosingTrades)
	assert.InDelta(t, 100.0/3.0, m.WinRate, 1e-9)
}

func TestComputeEmpty(t *testing.T) {
	a := NewAnalyzer()
	m := a.Compute(nil, nil, nil)

	assert.Equal(t, 0.0, m.TotalReturn)
	assert.Equal(t, 0.0, m.Volatility)
	assert.Equal(t, 0.0, m.SharpeRatio)
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.Equal(t, 1.0, m.Beta)
	assert.Equal(t, 0, m.TotalTrades)
	assert.Equal(t, 0.0, m.WinRate)
}
