// Package orchestrator coordinates a backtest run end to end: data
// collection, cleaning, signal generation, trade replay, analytics and
// persistence. Runs move through a strict lifecycle and each run executes
// at most once.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quantfold/backtest/internal/analytics"
	"github.com/quantfold/backtest/internal/core"
	"github.com/quantfold/backtest/internal/dataproc"
	"github.com/quantfold/backtest/internal/engine"
	"github.com/quantfold/backtest/internal/logger"
	"github.com/quantfold/backtest/internal/marketdata"
	"github.com/quantfold/backtest/internal/metrics"
	"github.com/quantfold/backtest/internal/store"
	"github.com/quantfold/backtest/internal/store/archive"
	"github.com/quantfold/backtest/internal/strategy"
)

// Options holds the orchestrator dependencies. Store, Provider, Processor,
// Executor and Analyzer are required; Archive, Metrics and Logger are
// optional.
type Options struct {
	Store        store.ResultStore
	Provider     marketdata.Provider
	Processor    *dataproc.Processor
	Executor     *strategy.Executor
	Analyzer     *analytics.Analyzer
	Archive      archive.Archive
	Metrics      *metrics.Registry
	Logger       *zap.Logger
	FetchTimeout time.Duration
}

// Orchestrator drives backtest runs through their lifecycle
type Orchestrator struct {
	store        store.ResultStore
	provider     marketdata.Provider
	processor    *dataproc.Processor
	executor     *strategy.Executor
	analyzer     *analytics.Analyzer
	archive      archive.Archive
	metrics      *metrics.Registry
	logger       *zap.Logger
	fetchTimeout time.Duration

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// New creates an Orchestrator from the given dependencies
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}

	return &Orchestrator{
		store:        opts.Store,
		provider:     opts.Provider,
		processor:    opts.Processor,
		executor:     opts.Executor,
		analyzer:     opts.Analyzer,
		archive:      opts.Archive,
		metrics:      opts.Metrics,
		logger:       logger,
		fetchTimeout: fetchTimeout,
	}
}

// CreateRun validates the config and registers a new PENDING run
func (o *Orchestrator) CreateRun(ctx context.Context, cfg core.BacktestConfig) (*core.Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return o.store.CreateRun(ctx, cfg)
}

// GetRun retrieves a run by ID
func (o *Orchestrator) GetRun(ctx context.Context, id string) (*core.Run, error) {
	return o.store.GetRun(ctx, id)
}

// GetResult retrieves the result of a completed run
func (o *Orchestrator) GetResult(ctx context.Context, id string) (*core.Result, error) {
	return o.store.GetResult(ctx, id)
}

// ListRuns returns all known runs
func (o *Orchestrator) ListRuns(ctx context.Context) ([]core.Run, error) {
	return o.store.ListRuns(ctx)
}

// Cancel requests cancellation of a run. An executing run stops at its
// next stage boundary; a PENDING run is cancelled immediately. Returns
// false if the run is unknown or already terminal.
func (o *Orchestrator) Cancel(ctx context.Context, id string) bool {
	o.mu.Lock()
	cancel, executing := o.active[id]
	o.mu.Unlock()

	if executing {
		cancel()
		return true
	}

	run, err := o.store.GetRun(ctx, id)
	if err != nil || run.Status != core.StatusPending {
		return false
	}
	if err := o.store.UpdateStatus(ctx, id, core.StatusCancelled, ""); err != nil {
		return false
	}
	o.logger.Info("run cancelled before start", zap.String("run_id", id))
	return true
}

// Execute runs a PENDING backtest to completion. A run executes at most
// once: concurrent calls for the same ID beyond the first fail with
// ErrRunActive, and re-execution of a finished run fails with
// ErrRunTerminal.
func (o *Orchestrator) Execute(ctx context.Context, runID string) error {
	run, runCtx, err := o.acquire(ctx, runID)
	if err != nil {
		return err
	}
	defer o.release(runID)

	if err := o.store.UpdateStatus(ctx, runID, core.StatusRunning, ""); err != nil {
		return err
	}
	o.metrics.RunStarted()
	start := time.Now()

	status, errMsg := o.run(runCtx, run)

	o.metrics.RunFinished()
	o.metrics.RecordRun(string(status), time.Since(start).Seconds())

	// Persist the terminal state with the parent context so cancellation
	// of the run context cannot lose the transition.
	runLog := logger.ForRun(o.logger, runID)
	if err := o.store.UpdateStatus(ctx, runID, status, errMsg); err != nil {
		runLog.Error("persisting terminal status", zap.Error(err))
		return err
	}

	runLog.Info("run finished",
		zap.String("status", string(status)),
		zap.Duration("elapsed", time.Since(start)))

	if status == core.StatusFailed {
		return core.WrapError(core.ErrExecutionFailed, errors.New(errMsg))
	}
	return nil
}

// acquire registers the run as executing, enforcing single execution,
// and returns the cancellable run context.
func (o *Orchestrator) acquire(ctx context.Context, runID string) (*core.Run, context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.active[runID]; ok {
		return nil, nil, core.ErrRunActive
	}

	run, err := o.store.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case run.Status.IsTerminal():
		return nil, nil, core.WrapError(core.ErrRunTerminal,
			fmt.Errorf("run %s is %s", runID, run.Status))
	case run.Status != core.StatusPending:
		return nil, nil, core.ErrRunActive
	}

	if o.active == nil {
		o.active = make(map[string]context.CancelFunc)
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.active[runID] = cancel
	return run, runCtx, nil
}

func (o *Orchestrator) release(runID string) {
	o.mu.Lock()
	if cancel, ok := o.active[runID]; ok {
		cancel()
		delete(o.active, runID)
	}
	o.mu.Unlock()
}

// run executes the pipeline stages and returns the terminal status plus
// an error message for FAILED.
func (o *Orchestrator) run(ctx context.Context, run *core.Run) (core.Status, string) {
	cfg := run.Config
	runLog := logger.ForRun(o.logger, run.ID)

	raw, fetchFailures := o.collectData(ctx, cfg)
	if ctx.Err() != nil {
		return core.StatusCancelled, ""
	}

	cleaned, dropped := o.processor.Process(raw)
	for sym, reason := range dropped {
		o.metrics.RecordSymbolDropped("validation")
		runLog.Warn("symbol dropped",
			zap.String("symbol", sym), zap.String("reason", reason))
	}
	if len(cleaned) == 0 {
		return core.StatusFailed, core.ErrNoData.Message
	}

	symbolsUsed := make([]string, 0, len(cleaned))
	for sym := range cleaned {
		symbolsUsed = append(symbolsUsed, sym)
	}
	sort.Strings(symbolsUsed)

	signals, err := o.executor.GenerateSignals(cfg.StrategyID, cleaned)
	if err != nil {
		return core.StatusFailed, err.Error()
	}
	for _, sig := range signals {
		o.metrics.RecordSignal(sig.Strategy, string(sig.Action))
	}
	if ctx.Err() != nil {
		return core.StatusCancelled, ""
	}

	trades, equity, cancelled := o.replay(ctx, cfg, cleaned, signals)
	if cancelled {
		return core.StatusCancelled, ""
	}

	result := o.assembleResult(run, cfg, cleaned, symbolsUsed, trades, equity)

	if err := o.store.SaveResult(ctx, result); err != nil {
		return core.StatusFailed, fmt.Sprintf("saving result: %v", err)
	}
	if o.archive != nil {
		// Archive failures do not fail the run; the result is already in
		// the primary store.
		if err := o.archive.Save(ctx, result); err != nil {
			runLog.Warn("archiving result", zap.Error(err))
		}
	}

	if len(fetchFailures) > 0 {
		runLog.Info("run completed with partial data",
			zap.Int("symbols_used", len(symbolsUsed)),
			zap.Int("symbols_failed", len(fetchFailures)))
	}
	return core.StatusCompleted, ""
}

type fetchResult struct {
	symbol string
	bars   []core.PriceBar
	err    error
}

// collectData fetches all symbols concurrently, one goroutine per symbol
// with an individual timeout. Failed symbols are reported, not fatal.
func (o *Orchestrator) collectData(ctx context.Context, cfg core.BacktestConfig) (map[string][]core.PriceBar, map[string]error) {
	ch := make(chan fetchResult, len(cfg.Symbols))
	var wg sync.WaitGroup

	for _, sym := range cfg.Symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
			defer cancel()
			bars, err := o.provider.GetBars(fetchCtx, sym, cfg.Start, cfg.End)
			ch <- fetchResult{symbol: sym, bars: bars, err: err}
		}(sym)
	}
	wg.Wait()
	close(ch)

	raw := make(map[string][]core.PriceBar)
	failures := make(map[string]error)
	for res := range ch {
		if res.err != nil {
			err := res.err
			if errors.Is(err, context.DeadlineExceeded) {
				err = core.WrapError(core.ErrFetchTimeout, res.err)
				o.metrics.RecordSymbolDropped("timeout")
			} else {
				o.metrics.RecordSymbolDropped("fetch_failed")
			}
			failures[res.symbol] = err
			o.logger.Warn("symbol fetch failed",
				zap.String("symbol", res.symbol), zap.Error(res.err))
			continue
		}
		raw[res.symbol] = res.bars
	}
	return raw, failures
}

// replay walks the merged timeline chronologically, executing signals at
// their timestamps against the trade engine and snapshotting equity.
func (o *Orchestrator) replay(ctx context.Context, cfg core.BacktestConfig, series map[string][]core.PriceBar, signals []core.Signal) ([]core.Trade, []core.EquityPoint, bool) {
	eng := engine.New(cfg.InitialCash, cfg.CommissionRate, cfg.SlippageRate, cfg.MaxPositionSize, o.logger)

	timeline := mergeTimeline(series)
	barsAt := indexBars(series)
	signalsAt := indexSignals(signals)
	snap := newSnapshotter(cfg.RebalanceFrequency)

	lastPrice := make(map[string]float64, len(series))
	var equity []core.EquityPoint

	for i, ts := range timeline {
		if ctx.Err() != nil {
			return nil, nil, true
		}

		for sym, bar := range barsAt[ts] {
			lastPrice[sym] = bar.Close
		}

		for _, sig := range signalsAt[ts] {
			price, ok := lastPrice[sig.Symbol]
			if !ok || price <= 0 {
				continue
			}
			value := eng.Portfolio().TotalValue(lastPrice)
			qty := eng.SizeOrder(sig.Action, sig.Symbol, price, value)
			trade := eng.ExecuteSignal(sig, qty, price)
			if trade == nil {
				if sig.Action != core.ActionHold {
					o.metrics.RecordRejection("insufficient_funds_or_position")
				}
				continue
			}
			o.metrics.RecordTrade(string(trade.Type))
		}

		if snap.due(ts) || i == len(timeline)-1 {
			equity = append(equity, core.EquityPoint{
				Time:  ts,
				Value: eng.Portfolio().TotalValue(lastPrice),
			})
		}
	}

	return eng.Ledger(), equity, false
}

func (o *Orchestrator) assembleResult(run *core.Run, cfg core.BacktestConfig, series map[string][]core.PriceBar, symbolsUsed []string, trades []core.Trade, equity []core.EquityPoint) *core.Result {
	values := make([]float64, len(equity))
	for i, pt := range equity {
		values[i] = pt.Value
	}

	bench := benchmarkValues(cfg, series, equity)
	m := o.analyzer.Compute(values, bench, trades)

	finalValue := cfg.InitialCash
	if len(values) > 0 {
		finalValue = values[len(values)-1]
	}

	return &core.Result{
		RunID:       run.ID,
		Config:      cfg,
		Trades:      trades,
		EquityCurve: equity,
		Metrics:     m,
		FinalValue:  finalValue,
		SymbolsUsed: symbolsUsed,
		CompletedAt: time.Now(),
	}
}

// benchmarkValues builds a benchmark value series aligned to the equity
// snapshots. The configured benchmark symbol is used when its data
// survived cleaning; otherwise an equal-weight basket of all usable
// symbols stands in.
func benchmarkValues(cfg core.BacktestConfig, series map[string][]core.PriceBar, equity []core.EquityPoint) []float64 {
	if len(equity) == 0 {
		return nil
	}

	closeAt := make(map[string]map[time.Time]float64, len(series))
	first := make(map[string]float64, len(series))
	symbols := make([]string, 0, len(series))
	for sym, bars := range series {
		m := make(map[time.Time]float64, len(bars))
		for _, b := range bars {
			m[b.Time] = b.Close
		}
		if len(bars) == 0 || bars[0].Close <= 0 {
			continue
		}
		closeAt[sym] = m
		first[sym] = bars[0].Close
		symbols = append(symbols, sym)
	}
	if len(symbols) == 0 {
		return nil
	}
	sort.Strings(symbols)

	if _, ok := closeAt[cfg.BenchmarkSymbol]; ok {
		symbols = []string{cfg.BenchmarkSymbol}
	}

	last := make(map[string]float64, len(symbols))
	values := make([]float64, 0, len(equity))
	for _, pt := range equity {
		var sum float64
		for _, sym := range symbols {
			if c, ok := closeAt[sym][pt.Time]; ok {
				last[sym] = c
			}
			c, ok := last[sym]
			if !ok {
				c = first[sym]
			}
			sum += c / first[sym]
		}
		values = append(values, sum/float64(len(symbols)))
	}
	return values
}

// mergeTimeline returns the sorted union of all bar timestamps
func mergeTimeline(series map[string][]core.PriceBar) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, bars := range series {
		for _, b := range bars {
			seen[b.Time] = struct{}{}
		}
	}
	timeline := make([]time.Time, 0, len(seen))
	for ts := range seen {
		timeline = append(timeline, ts)
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Before(timeline[j]) })
	return timeline
}

func indexBars(series map[string][]core.PriceBar) map[time.Time]map[string]core.PriceBar {
	idx := make(map[time.Time]map[string]core.PriceBar)
	for sym, bars := range series {
		for _, b := range bars {
			if idx[b.Time] == nil {
				idx[b.Time] = make(map[string]core.PriceBar)
			}
			idx[b.Time][sym] = b
		}
	}
	return idx
}

func indexSignals(signals []core.Signal) map[time.Time][]core.Signal {
	idx := make(map[time.Time][]core.Signal)
	for _, sig := range signals {
		idx[sig.Time] = append(idx[sig.Time], sig)
	}
	return idx
}

// snapshotter decides which timeline steps get an equity point. The
// rebalance frequency only controls snapshot cadence; signals always
// execute on their own timestamps.
type snapshotter struct {
	frequency string
	lastYear  int
	lastISO   int // ISO week or month depending on frequency
	started   bool
}

func newSnapshotter(frequency string) *snapshotter {
	return &snapshotter{frequency: frequency}
}

func (s *snapshotter) due(ts time.Time) bool {
	switch s.frequency {
	case "weekly":
		year, week := ts.ISOWeek()
		if !s.started || year != s.lastYear || week != s.lastISO {
			s.started = true
			s.lastYear, s.lastISO = year, week
			return true
		}
		return false
	case "monthly":
		year, month := ts.Year(), int(ts.Month())
		if !s.started || year != s.lastYear || month != s.lastISO {
			s.started = true
			s.lastYear, s.lastISO = year, month
			return true
		}
		return false
	default:
		// daily or unset: every bar
		return true
	}
}
