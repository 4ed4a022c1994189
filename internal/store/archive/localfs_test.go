package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantfold/backtest/internal/core"
)

func sampleResult(runID string) *core.Result {
	return &core.Result{
		RunID:      runID,
		FinalValue: 104500.25,
		Trades: []core.Trade{
			{ID: "t1", Symbol: "AAPL", Type: core.TradeBuy, Quantity: 10, Price: 150.075},
		},
		EquityCurve: []core.EquityPoint{
			{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Value: 100000},
			{Time: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Value: 104500.25},
		},
		SymbolsUsed: []string{"AAPL"},
		CompletedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLocalFSRoundTrip(t *testing.T) {
	a, err := NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	ctx := context.Background()

	want := sampleResult("run-1")
	if err := a.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := a.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.RunID != want.RunID || got.FinalValue != want.FinalValue {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if len(got.Trades) != 1 || got.Trades[0].Symbol != "AAPL" {
		t.Errorf("trades not preserved: %+v", got.Trades)
	}
	if len(got.EquityCurve) != 2 {
		t.Errorf("equity curve not preserved: %+v", got.EquityCurve)
	}
}

func TestLocalFSLoadMissing(t *testing.T) {
	a, _ := NewLocalFS(t.TempDir())
	_, err := a.Load(context.Background(), "missing")
	if !errors.Is(err, core.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestLocalFSListAndExists(t *testing.T) {
	a, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	ids, err := a.List(ctx)
	if err != nil {
		t.Fatalf("List on empty archive: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty archive, got %v", ids)
	}

	_ = a.Save(ctx, sampleResult("run-a"))
	_ = a.Save(ctx, sampleResult("run-b"))

	ids, err = a.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 archived results, got %v", ids)
	}

	ok, err := a.Exists(ctx, "run-a")
	if err != nil || !ok {
		t.Errorf("expected run-a to exist, got %v, %v", ok, err)
	}
	ok, err = a.Exists(ctx, "run-z")
	if err != nil || ok {
		t.Errorf("expected run-z to not exist, got %v, %v", ok, err)
	}
}

func TestLocalFSDelete(t *testing.T) {
	a, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	_ = a.Save(ctx, sampleResult("run-1"))
	if err := a.Delete(ctx, "run-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	ok, _ := a.Exists(ctx, "run-1")
	if ok {
		t.Error("expected result deleted")
	}
}
