package core

import "time"

// PriceBar represents one OHLCV bar for a symbol
type PriceBar struct {
	Symbol      string
	Time        time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	AdjClose    float64 // optional, 0 when the source has no adjusted series
	Dividend    float64
	SplitFactor float64
}

// Action represents a trading signal action
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Signal represents a timestamped trading signal from a strategy
type Signal struct {
	Symbol   string
	Time     time.Time
	Action   Action
	Strength float64 // [0, 1]
	Strategy string
	Reason   string
}

// TradeType represents the direction of an executed trade
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// OrderType represents the order execution type
type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

// Trade is one executed fill. Trades are immutable once created and
// accumulate in an append-only ledger.
type Trade struct {
	ID         string
	Symbol     string
	Type       TradeType
	Quantity   float64
	Price      float64 // execution price after slippage
	Commission float64
	Slippage   float64 // per-share slippage amount
	RealizedPL float64 // nonzero only on sells
	Time       time.Time
}

// EquityPoint is one snapshot on the portfolio value series
type EquityPoint struct {
	Time  time.Time
	Value float64
}
