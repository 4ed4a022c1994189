package dataproc

import (
	"testing"
	"time"

	"github.com/quantfold/backtest/internal/core"
)

var baseTime = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func makeSeries(symbol string, closes ...float64) []core.PriceBar {
	bars := make([]core.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = core.PriceBar{
			Symbol: symbol,
			Time:   baseTime.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func defaultProcessor(minPoints int) *Processor {
	return NewProcessor(minPoints, []string{"open", "high", "low", "close", "volume"}, nil)
}

func TestProcess_ForwardBackwardFill(t *testing.T) {
	p := defaultProcessor(4)
	raw := map[string][]core.PriceBar{
		"X": makeSeries("X", 100, 0, 0, 103),
	}

	cleaned, dropped := p.Process(raw)

	if len(dropped) != 0 {
		t.Fatalf("unexpected drops: %v", dropped)
	}
	got := cleaned["X"]
	if got[1].Close != 100 || got[2].Close != 100 {
		t.Errorf("forward fill failed: %v %v", got[1].Close, got[2].Close)
	}
	if got[3].Close != 103 {
		t.Errorf("valid value overwritten: %v", got[3].Close)
	}
}

func TestProcess_LeadingGapBackwardFill(t *testing.T) {
	p := defaultProcessor(4)
	raw := map[string][]core.PriceBar{
		"X": makeSeries("X", 0, 0, 102, 103),
	}

	cleaned, dropped := p.Process(raw)

	if len(dropped) != 0 {
		t.Fatalf("unexpected drops: %v", dropped)
	}
	got := cleaned["X"]
	if got[0].Close != 102 || got[1].Close != 102 {
		t.Errorf("backward fill failed: %v %v", got[0].Close, got[1].Close)
	}
}

func TestProcess_OutlierClip(t *testing.T) {
	p := defaultProcessor(4)
	closes := []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 500}
	raw := map[string][]core.PriceBar{
		"X": makeSeries("X", closes...),
	}

	cleaned, dropped := p.Process(raw)

	if len(dropped) != 0 {
		t.Fatalf("unexpected drops: %v", dropped)
	}
	got := cleaned["X"]
	// Q1=102, Q3=107, IQR=5, upper fence 114.5: the 500 tick is clamped
	last := got[len(got)-1].Close
	if last != 114.5 {
		t.Errorf("outlier not clamped to fence: got %v, want 114.5", last)
	}
	// In-range values untouched
	if got[0].Close != 100 {
		t.Errorf("in-range value changed: %v", got[0].Close)
	}
}

func TestProcess_DropsMissingColumn(t *testing.T) {
	p := defaultProcessor(2)
	series := makeSeries("X", 100, 101, 102)
	for i := range series {
		series[i].Volume = 0
	}
	raw := map[string][]core.PriceBar{"X": series}

	cleaned, dropped := p.Process(raw)

	if len(cleaned) != 0 {
		t.Errorf("symbol with missing volume column should be dropped")
	}
	if dropped["X"] == "" {
		t.Error("drop reason missing")
	}
}

func TestProcess_DropsInsufficientRows(t *testing.T) {
	p := defaultProcessor(10)
	raw := map[string][]core.PriceBar{
		"X": makeSeries("X", 100, 101, 102),
	}

	cleaned, dropped := p.Process(raw)

	if len(cleaned) != 0 {
		t.Error("short series should be dropped")
	}
	if dropped["X"] == "" {
		t.Error("drop reason missing")
	}
}

func TestProcess_DropIsPerSymbol(t *testing.T) {
	p := defaultProcessor(3)
	raw := map[string][]core.PriceBar{
		"GOOD": makeSeries("GOOD", 100, 101, 102, 103),
		"BAD":  makeSeries("BAD", 100),
	}

	cleaned, dropped := p.Process(raw)

	if _, ok := cleaned["GOOD"]; !ok {
		t.Error("good symbol should survive")
	}
	if _, ok := dropped["BAD"]; !ok {
		t.Error("bad symbol should be dropped")
	}
}

func TestProcess_DedupesAndSorts(t *testing.T) {
	p := defaultProcessor(2)
	series := makeSeries("X", 100, 101, 102, 103)
	// Shuffle order and duplicate a timestamp
	series[0], series[2] = series[2], series[0]
	dup := series[1]
	series = append(series, dup)

	cleaned, dropped := p.Process(map[string][]core.PriceBar{"X": series})

	if len(dropped) != 0 {
		t.Fatalf("unexpected drops: %v", dropped)
	}
	got := cleaned["X"]
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4 after dedupe", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Time.Before(got[i].Time) {
			t.Errorf("series not strictly ascending at %d", i)
		}
	}
}

func TestProcess_PureFunction(t *testing.T) {
	p := defaultProcessor(2)
	raw := map[string][]core.PriceBar{
		"X": makeSeries("X", 100, 0, 102),
	}
	original := raw["X"][1].Close

	p.Process(raw)

	if raw["X"][1].Close != original {
		t.Error("Process mutated its input")
	}
}

func TestProcess_EmptyInput(t *testing.T) {
	p := defaultProcessor(2)
	cleaned, dropped := p.Process(map[string][]core.PriceBar{})
	if len(cleaned) != 0 || len(dropped) != 0 {
		t.Error("empty input should produce empty output")
	}
}
