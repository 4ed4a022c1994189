package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics for the backtest engine.
type Registry struct {
	*prometheus.Registry

	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	symbolsDropped   *prometheus.CounterVec
	signalsGenerated *prometheus.CounterVec
	tradesExecuted   *prometheus.CounterVec
	ordersRejected   *prometheus.CounterVec
	runsActive       prometheus.Gauge
	queueDepth       prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_runs_total",
				Help: "Total number of backtest runs by terminal status",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backtest_run_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
		),
		symbolsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_symbols_dropped_total",
				Help: "Symbols dropped from runs by reason",
			},
			[]string{"reason"},
		),
		signalsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_signals_generated_total",
				Help: "Signals generated by strategy and action",
			},
			[]string{"strategy", "action"},
		),
		tradesExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_trades_executed_total",
				Help: "Simulated trades executed by side",
			},
			[]string{"side"},
		),
		ordersRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_orders_rejected_total",
				Help: "Simulated orders rejected by reason",
			},
			[]string{"reason"},
		),
		runsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backtest_runs_active",
				Help: "Number of runs currently executing",
			},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backtest_queue_depth",
				Help: "Number of runs waiting in the worker pool queue",
			},
		),
	}

	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.runDuration)
	reg.MustRegister(r.symbolsDropped)
	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.tradesExecuted)
	reg.MustRegister(r.ordersRejected)
	reg.MustRegister(r.runsActive)
	reg.MustRegister(r.queueDepth)

	return r
}

// RecordRun records a finished run with its terminal status.
func (r *Registry) RecordRun(status string, duration float64) {
	if r == nil {
		return
	}
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(duration)
}

// RecordSymbolDropped records a symbol dropped from a run.
func (r *Registry) RecordSymbolDropped(reason string) {
	if r == nil {
		return
	}
	r.symbolsDropped.WithLabelValues(reason).Inc()
}

// RecordSignal records a generated signal.
func (r *Registry) RecordSignal(strategy, action string) {
	if r == nil {
		return
	}
	r.signalsGenerated.WithLabelValues(strategy, action).Inc()
}

// RecordTrade records an executed trade.
func (r *Registry) RecordTrade(side string) {
	if r == nil {
		return
	}
	r.tradesExecuted.WithLabelValues(side).Inc()
}

// RecordRejection records a rejected order.
func (r *Registry) RecordRejection(reason string) {
	if r == nil {
		return
	}
	r.ordersRejected.WithLabelValues(reason).Inc()
}

// RunStarted increments the active-runs gauge.
func (r *Registry) RunStarted() {
	if r == nil {
		return
	}
	r.runsActive.Inc()
}

// RunFinished decrements the active-runs gauge.
func (r *Registry) RunFinished() {
	if r == nil {
		return
	}
	r.runsActive.Dec()
}

// SetQueueDepth sets the worker pool queue depth.
func (r *Registry) SetQueueDepth(depth int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(depth))
}
