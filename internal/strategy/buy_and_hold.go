package strategy

import "github.com/quantfold/backtest/internal/core"

// BuyAndHold buys on the first bar and never sells
type BuyAndHold struct{}

// NewBuyAndHold creates a buy-and-hold strategy
func NewBuyAndHold() *BuyAndHold {
	return &BuyAndHold{}
}

func (s *BuyAndHold) Name() string {
	return "buy_and_hold"
}

func (s *BuyAndHold) Variant() Variant {
	return VariantBuyAndHold
}

func (s *BuyAndHold) GenerateSignals(series []core.PriceBar) ([]core.Signal, error) {
	if len(series) == 0 {
		return nil, nil
	}

	return []core.Signal{{
		Symbol:   series[0].Symbol,
		Time:     series[0].Time,
		Action:   core.ActionBuy,
		Strength: 1,
		Reason:   "buy and hold entry",
	}}, nil
}
