// Package engine simulates order fills against a single portfolio with a
// deterministic slippage and commission cost model.
package engine

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/quantfold/backtest/internal/core"
	"go.uber.org/zap"
)

// Engine owns one Portfolio and an append-only trade ledger. Every call is
// atomic relative to the portfolio; callers running parallel backtests must
// use distinct Engine instances.
type Engine struct {
	portfolio       *Portfolio
	commissionRate  float64
	slippageRate    float64
	maxPositionSize float64
	trades          []core.Trade
	logger          *zap.Logger
}

// New creates an Engine with a fresh portfolio. A nil logger disables logging.
func New(initialCash, commissionRate, slippageRate, maxPositionSize float64, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		portfolio:       NewPortfolio(initialCash),
		commissionRate:  commissionRate,
		slippageRate:    slippageRate,
		maxPositionSize: maxPositionSize,
		logger:          logger,
	}
}

// Portfolio returns the engine's portfolio
func (e *Engine) Portfolio() *Portfolio {
	return e.portfolio
}

// Ledger returns a copy of the trade ledger
func (e *Engine) Ledger() []core.Trade {
	out := make([]core.Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// ExecuteOrder simulates one order. A rejected order returns nil with no
// state mutation: insufficient funds and oversized sells are expected
// outcomes of a simulation, not errors.
//
// Cost model: slippage = price * slippageRate, execution price is
// price+slippage on buys and price-slippage on sells, commission =
// execPrice * quantity * commissionRate.
func (e *Engine) ExecuteOrder(symbol string, quantity, price float64, orderType core.OrderType, tradeType core.TradeType, ts time.Time) *core.Trade {
	if symbol == "" || quantity <= 0 || price <= 0 {
		return nil
	}
	_ = orderType // all fills are simulated at the given price

	slippage := price * e.slippageRate

	switch tradeType {
	case core.TradeBuy:
		return e.executeBuy(symbol, quantity, price, slippage, ts)
	case core.TradeSell:
		return e.executeSell(symbol, quantity, price, slippage, ts)
	default:
		return nil
	}
}

func (e *Engine) executeBuy(symbol string, quantity, price, slippage float64, ts time.Time) *core.Trade {
	execPrice := price + slippage
	commission := execPrice * quantity * e.commissionRate
	totalCost := execPrice*quantity + commission

	if totalCost > e.portfolio.Cash {
		e.logger.Debug("buy rejected: insufficient funds",
			zap.String("symbol", symbol),
			zap.Float64("cost", totalCost),
			zap.Float64("cash", e.portfolio.Cash),
		)
		return nil
	}

	e.portfolio.Cash -= totalCost
	e.portfolio.applyBuy(symbol, quantity, execPrice, ts)

	trade := core.Trade{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Type:       core.TradeBuy,
		Quantity:   quantity,
		Price:      execPrice,
		Commission: commission,
		Slippage:   slippage,
		Time:       ts,
	}
	e.trades = append(e.trades, trade)
	return &trade
}

func (e *Engine) executeSell(symbol string, quantity, price, slippage float64, ts time.Time) *core.Trade {
	pos, ok := e.portfolio.Positions[symbol]
	if !ok || quantity > pos.Quantity {
		e.logger.Debug("sell rejected: insufficient position",
			zap.String("symbol", symbol),
			zap.Float64("quantity", quantity),
		)
		return nil
	}

	execPrice := price - slippage
	commission := execPrice * quantity * e.commissionRate
	proceeds := execPrice*quantity - commission

	e.portfolio.Cash += proceeds
	realized := e.portfolio.applySell(symbol, quantity, execPrice)

	trade := core.Trade{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Type:       core.TradeSell,
		Quantity:   quantity,
		Price:      execPrice,
		Commission: commission,
		Slippage:   slippage,
		RealizedPL: realized - commission,
		Time:       ts,
	}
	e.trades = append(e.trades, trade)
	return &trade
}

// ExecuteSignal maps a signal action onto ExecuteOrder. HOLD produces no
// trade.
func (e *Engine) ExecuteSignal(sig core.Signal, quantity, price float64) *core.Trade {
	switch sig.Action {
	case core.ActionBuy:
		return e.ExecuteOrder(sig.Symbol, quantity, price, core.OrderMarket, core.TradeBuy, sig.Time)
	case core.ActionSell:
		return e.ExecuteOrder(sig.Symbol, quantity, price, core.OrderMarket, core.TradeSell, sig.Time)
	default:
		return nil
	}
}

// SizeOrder returns the whole-share quantity for a signal. Buys target
// maxPositionSize of the given portfolio value, capped by available cash
// including costs; sells liquidate the full position.
func (e *Engine) SizeOrder(action core.Action, symbol string, price, portfolioValue float64) float64 {
	if price <= 0 {
		return 0
	}

	switch action {
	case core.ActionBuy:
		unitCost := (price + price*e.slippageRate) * (1 + e.commissionRate)
		budget := e.maxPositionSize * portfolioValue
		if budget > e.portfolio.Cash {
			budget = e.portfolio.Cash
		}
		return math.Floor(budget / unitCost)
	case core.ActionSell:
		pos, ok := e.portfolio.Positions[symbol]
		if !ok {
			return 0
		}
		return pos.Quantity
	default:
		return 0
	}
}
