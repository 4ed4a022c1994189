package engine

import "time"

// Position represents a holding in a single symbol. Positions are owned
// exclusively by the Portfolio that created them and quantities never go
// negative: this model does not short.
type Position struct {
	Symbol     string
	Quantity   float64
	AvgCost    float64 // weighted-average cost basis per share
	RealizedPL float64
	FirstBuy   time.Time
}

// Portfolio holds cash and positions. It is mutated only by the Engine,
// one trade at a time, never concurrently.
type Portfolio struct {
	Cash        float64
	InitialCash float64
	Positions   map[string]*Position
	RealizedPL  float64 // aggregate, survives positions closed to zero
}

// NewPortfolio creates a portfolio holding only cash
func NewPortfolio(initialCash float64) *Portfolio {
	return &Portfolio{
		Cash:        initialCash,
		InitialCash: initialCash,
		Positions:   make(map[string]*Position),
	}
}

// Position returns a copy of the position for the symbol
func (p *Portfolio) Position(symbol string) (Position, bool) {
	pos, ok := p.Positions[symbol]
	if !ok {
		return Position{Symbol: symbol}, false
	}
	return *pos, true
}

// TotalValue returns cash plus the market value of every position at the
// given prices. Positions without a price contribute at their cost basis.
func (p *Portfolio) TotalValue(prices map[string]float64) float64 {
	total := p.Cash
	for symbol, pos := range p.Positions {
		price, ok := prices[symbol]
		if !ok {
			price = pos.AvgCost
		}
		total += pos.Quantity * price
	}
	return total
}

// UnrealizedPL returns the total unrealized profit/loss at the given prices
func (p *Portfolio) UnrealizedPL(prices map[string]float64) float64 {
	var total float64
	for symbol, pos := range p.Positions {
		price, ok := prices[symbol]
		if !ok {
			continue
		}
		total += (price - pos.AvgCost) * pos.Quantity
	}
	return total
}

// applyBuy adds quantity at the execution price using weighted-average-cost
// accounting:
//
//	new avg cost = (old_qty*old_cost + exec_price*qty) / (old_qty + qty)
func (p *Portfolio) applyBuy(symbol string, quantity, execPrice float64, ts time.Time) {
	pos, ok := p.Positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol, FirstBuy: ts}
		p.Positions[symbol] = pos
	}

	totalCost := pos.Quantity*pos.AvgCost + execPrice*quantity
	pos.Quantity += quantity
	pos.AvgCost = totalCost / pos.Quantity
}

// applySell reduces quantity and books realized P&L against the average
// cost. The position is removed once its quantity reaches zero. Returns the
// realized P&L of this fill.
func (p *Portfolio) applySell(symbol string, quantity, execPrice float64) float64 {
	pos := p.Positions[symbol]

	realized := (execPrice - pos.AvgCost) * quantity
	pos.RealizedPL += realized
	p.RealizedPL += realized
	pos.Quantity -= quantity

	if pos.Quantity == 0 {
		delete(p.Positions, symbol)
	}
	return realized
}
