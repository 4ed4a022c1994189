package strategy

import (
	"errors"
	"testing"

	"github.com/quantfold/backtest/internal/core"
)

// scriptedStrategy returns canned signals regardless of input
type scriptedStrategy struct {
	name    string
	signals map[string][]core.Signal // keyed by symbol of first bar
	err     error
}

func (s *scriptedStrategy) Name() string     { return s.name }
func (s *scriptedStrategy) Variant() Variant { return VariantBuyAndHold }

func (s *scriptedStrategy) GenerateSignals(series []core.PriceBar) ([]core.Signal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(series) == 0 {
		return nil, nil
	}
	return s.signals[series[0].Symbol], nil
}

func TestExecutor_FiltersHold(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&scriptedStrategy{
		name: "scripted",
		signals: map[string][]core.Signal{
			"X": {
				{Symbol: "X", Time: day0, Action: core.ActionBuy, Strength: 0.8},
				{Symbol: "X", Time: day0.AddDate(0, 0, 1), Action: core.ActionHold, Strength: 0.5},
				{Symbol: "X", Time: day0.AddDate(0, 0, 2), Action: core.ActionSell, Strength: 0.7},
			},
		},
	})
	exec := NewExecutor(reg, nil)

	signals, err := exec.GenerateSignals("scripted", map[string][]core.PriceBar{
		"X": bars("X", 1, 2, 3),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 2 {
		t.Fatalf("len = %d, want 2 (HOLD filtered)", len(signals))
	}
	for _, sig := range signals {
		if sig.Action == core.ActionHold {
			t.Error("HOLD signal leaked through")
		}
		if sig.Strategy != "scripted" {
			t.Errorf("Strategy not stamped: %q", sig.Strategy)
		}
	}
}

func TestExecutor_DeterministicOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&scriptedStrategy{
		name: "scripted",
		signals: map[string][]core.Signal{
			"BBB": {{Symbol: "BBB", Time: day0, Action: core.ActionBuy}},
			"AAA": {{Symbol: "AAA", Time: day0, Action: core.ActionBuy}},
			"CCC": {{Symbol: "CCC", Time: day0.AddDate(0, 0, -1), Action: core.ActionBuy}},
		},
	})
	exec := NewExecutor(reg, nil)

	input := map[string][]core.PriceBar{
		"BBB": bars("BBB", 1),
		"AAA": bars("AAA", 1),
		"CCC": bars("CCC", 1),
	}

	for i := 0; i < 10; i++ {
		signals, err := exec.GenerateSignals("scripted", input)
		if err != nil {
			t.Fatal(err)
		}
		if len(signals) != 3 {
			t.Fatalf("len = %d, want 3", len(signals))
		}
		// Earliest timestamp first, ties broken by symbol
		if signals[0].Symbol != "CCC" || signals[1].Symbol != "AAA" || signals[2].Symbol != "BBB" {
			t.Fatalf("unstable order: %s %s %s",
				signals[0].Symbol, signals[1].Symbol, signals[2].Symbol)
		}
	}
}

func TestExecutor_UnknownStrategy(t *testing.T) {
	exec := NewExecutor(NewRegistry(), nil)

	_, err := exec.GenerateSignals("missing", map[string][]core.PriceBar{})
	if !errors.Is(err, core.ErrStrategyNotFound) {
		t.Errorf("expected ErrStrategyNotFound, got %v", err)
	}
}

func TestExecutor_EmptyInput(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewBuyAndHold())
	exec := NewExecutor(reg, nil)

	signals, err := exec.GenerateSignals("buy_and_hold", map[string][]core.PriceBar{})
	if err != nil {
		t.Fatalf("empty input should not error: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("len = %d, want 0", len(signals))
	}
}

func TestExecutor_StrategyError(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&scriptedStrategy{name: "broken", err: errors.New("boom")})
	exec := NewExecutor(reg, nil)

	_, err := exec.GenerateSignals("broken", map[string][]core.PriceBar{
		"X": bars("X", 1, 2),
	})
	if !errors.Is(err, core.ErrExecutionFailed) {
		t.Errorf("expected ErrExecutionFailed, got %v", err)
	}
}
