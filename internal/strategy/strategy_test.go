package strategy

import (
	"errors"
	"testing"
	"time"

	"github.com/quantfold/backtest/internal/core"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func bars(symbol string, closes ...float64) []core.PriceBar {
	out := make([]core.PriceBar, len(closes))
	for i, c := range closes {
		out[i] = core.PriceBar{
			Symbol: symbol,
			Time:   day0.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewBuyAndHold())

	s, err := reg.Resolve("buy_and_hold")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s.Variant() != VariantBuyAndHold {
		t.Errorf("Variant = %s", s.Variant())
	}

	_, err = reg.Resolve("no_such_strategy")
	if !errors.Is(err, core.ErrStrategyNotFound) {
		t.Errorf("expected ErrStrategyNotFound, got %v", err)
	}
}

func TestSMACrossover_GoldenAndDeathCross(t *testing.T) {
	s := NewSMACrossover(2, 3)
	series := bars("X", 10, 9, 8, 7, 8, 10, 12, 9, 7)

	signals, err := s.GenerateSignals(series)
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 2 {
		t.Fatalf("len(signals) = %d, want 2", len(signals))
	}

	if signals[0].Action != core.ActionBuy || !signals[0].Time.Equal(series[5].Time) {
		t.Errorf("first signal = %s at %s, want BUY at %s",
			signals[0].Action, signals[0].Time, series[5].Time)
	}
	if signals[1].Action != core.ActionSell || !signals[1].Time.Equal(series[8].Time) {
		t.Errorf("second signal = %s at %s, want SELL at %s",
			signals[1].Action, signals[1].Time, series[8].Time)
	}
	for _, sig := range signals {
		if sig.Strength < 0 || sig.Strength > 1 {
			t.Errorf("strength %f out of [0,1]", sig.Strength)
		}
	}
}

func TestSMACrossover_InsufficientData(t *testing.T) {
	s := NewSMACrossover(5, 20)
	signals, err := s.GenerateSignals(bars("X", 1, 2, 3))
	if err != nil || len(signals) != 0 {
		t.Errorf("short series should yield no signals, got %d, err %v", len(signals), err)
	}
}

func TestRSIMeanReversion(t *testing.T) {
	s := NewRSIMeanReversion(3, 30, 70)
	series := bars("X", 100, 101, 102, 103, 95, 90, 85, 100, 110)

	signals, err := s.GenerateSignals(series)
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 2 {
		t.Fatalf("len(signals) = %d, want 2", len(signals))
	}
	if signals[0].Action != core.ActionBuy || !signals[0].Time.Equal(series[4].Time) {
		t.Errorf("first = %s at %s, want BUY on oversold entry", signals[0].Action, signals[0].Time)
	}
	if signals[1].Action != core.ActionSell || !signals[1].Time.Equal(series[8].Time) {
		t.Errorf("second = %s at %s, want SELL on overbought entry", signals[1].Action, signals[1].Time)
	}
}

func TestMomentum(t *testing.T) {
	s := NewMomentum(2, 0.05)
	series := bars("X", 100, 100, 100, 100, 110, 120, 110, 100, 90)

	signals, err := s.GenerateSignals(series)
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 2 {
		t.Fatalf("len(signals) = %d, want 2", len(signals))
	}
	if signals[0].Action != core.ActionBuy || !signals[0].Time.Equal(series[4].Time) {
		t.Errorf("first = %s at %s, want BUY", signals[0].Action, signals[0].Time)
	}
	if signals[1].Action != core.ActionSell || !signals[1].Time.Equal(series[7].Time) {
		t.Errorf("second = %s at %s, want SELL", signals[1].Action, signals[1].Time)
	}
}

func TestBuyAndHold(t *testing.T) {
	s := NewBuyAndHold()
	series := bars("X", 100, 101, 102)

	signals, err := s.GenerateSignals(series)
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 1 {
		t.Fatalf("len(signals) = %d, want 1", len(signals))
	}
	if signals[0].Action != core.ActionBuy || !signals[0].Time.Equal(series[0].Time) {
		t.Errorf("expected single BUY on first bar")
	}
	if signals[0].Strength != 1 {
		t.Errorf("strength = %f, want 1", signals[0].Strength)
	}

	if sigs, _ := s.GenerateSignals(nil); len(sigs) != 0 {
		t.Error("empty series should yield no signals")
	}
}
