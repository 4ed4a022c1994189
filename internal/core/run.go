package core

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of a backtest run
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal returns true if the status is a final state
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether moving to the target status is a legal
// forward transition. Backward transitions and leaving a terminal state
// are never allowed.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusRunning || to == StatusFailed || to == StatusCancelled
	case StatusRunning:
		return to.IsTerminal()
	default:
		return false
	}
}

// BacktestConfig holds the immutable parameters of a backtest run
type BacktestConfig struct {
	Symbols            []string  `json:"symbols"`
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	InitialCash        float64   `json:"initial_cash"`
	CommissionRate     float64   `json:"commission_rate"`
	SlippageRate       float64   `json:"slippage_rate"`
	MaxPositionSize    float64   `json:"max_position_size"`
	RebalanceFrequency string    `json:"rebalance_frequency,omitempty"`
	StrategyID         string    `json:"strategy_id"`
	BenchmarkSymbol    string    `json:"benchmark_symbol,omitempty"`
}

// Validate checks the config against the documented bounds.
func (c BacktestConfig) Validate() error {
	if len(c.Symbols) == 0 {
		return WrapError(ErrConfigInvalid, fmt.Errorf("symbols must not be empty"))
	}
	if !c.Start.Before(c.End) {
		return WrapError(ErrConfigInvalid, fmt.Errorf("start %s must be before end %s",
			c.Start.Format("2006-01-02"), c.End.Format("2006-01-02")))
	}
	if c.End.After(time.Now()) {
		return WrapError(ErrConfigInvalid, fmt.Errorf("end date must not be in the future"))
	}
	if c.InitialCash <= 0 {
		return WrapError(ErrConfigInvalid, fmt.Errorf("initial_cash must be positive, got %f", c.InitialCash))
	}
	if c.CommissionRate < 0 || c.CommissionRate > 0.1 {
		return WrapError(ErrConfigInvalid, fmt.Errorf("commission_rate must be in [0, 0.1], got %f", c.CommissionRate))
	}
	if c.SlippageRate < 0 || c.SlippageRate > 0.05 {
		return WrapError(ErrConfigInvalid, fmt.Errorf("slippage_rate must be in [0, 0.05], got %f", c.SlippageRate))
	}
	if c.MaxPositionSize <= 0 || c.MaxPositionSize > 1 {
		return WrapError(ErrConfigInvalid, fmt.Errorf("max_position_size must be in (0, 1], got %f", c.MaxPositionSize))
	}
	if c.StrategyID == "" {
		return WrapError(ErrConfigInvalid, fmt.Errorf("strategy_id is required"))
	}
	return nil
}

// Run represents one backtest run identity and its lifecycle state
type Run struct {
	ID           string         `json:"id"`
	Config       BacktestConfig `json:"config"`
	Status       Status         `json:"status"`
	StartTime    *time.Time     `json:"start_time,omitempty"`
	EndTime      *time.Time     `json:"end_time,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// PerformanceMetrics holds the derived risk/return statistics of a run.
// Recomputed each run, never mutated afterward.
type PerformanceMetrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	CalmarRatio      float64 `json:"calmar_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"` // magnitude, [0, 1]
	VaR              float64 `json:"var"`
	CVaR             float64 `json:"cvar"`
	VaRConfidence    float64 `json:"var_confidence"`
	Beta             float64 `json:"beta"`
	Correlation      float64 `json:"correlation"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"` // percentage of profitable closed trades
}

// Result is the persisted output of a completed backtest run
type Result struct {
	RunID       string             `json:"run_id"`
	Config      BacktestConfig     `json:"config"`
	Trades      []Trade            `json:"trades"`
	EquityCurve []EquityPoint      `json:"equity_curve"`
	Metrics     PerformanceMetrics `json:"metrics"`
	FinalValue  float64            `json:"final_value"`
	SymbolsUsed []string           `json:"symbols_used"`
	CompletedAt time.Time          `json:"completed_at"`
}
