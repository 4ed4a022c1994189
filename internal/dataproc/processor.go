// Package dataproc cleans and validates raw per-symbol price series before
// any strategy or simulation code sees them.
package dataproc

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/quantfold/backtest/internal/core"
	"go.uber.org/zap"
)

// column describes a numeric bar field the processor knows how to validate,
// fill and clip.
type column struct {
	get  func(*core.PriceBar) float64
	set  func(*core.PriceBar, float64)
	fill bool // forward/backward fill missing values
}

var columns = map[string]column{
	"open": {
		get:  func(b *core.PriceBar) float64 { return b.Open },
		set:  func(b *core.PriceBar, v float64) { b.Open = v },
		fill: true,
	},
	"high": {
		get:  func(b *core.PriceBar) float64 { return b.High },
		set:  func(b *core.PriceBar, v float64) { b.High = v },
		fill: true,
	},
	"low": {
		get:  func(b *core.PriceBar) float64 { return b.Low },
		set:  func(b *core.PriceBar, v float64) { b.Low = v },
		fill: true,
	},
	"close": {
		get:  func(b *core.PriceBar) float64 { return b.Close },
		set:  func(b *core.PriceBar, v float64) { b.Close = v },
		fill: true,
	},
	"volume": {
		get:  func(b *core.PriceBar) float64 { return b.Volume },
		set:  func(b *core.PriceBar, v float64) { b.Volume = v },
		fill: false,
	},
	"adj_close": {
		get:  func(b *core.PriceBar) float64 { return b.AdjClose },
		set:  func(b *core.PriceBar, v float64) { b.AdjClose = v },
		fill: true,
	},
}

// Processor cleans raw price series. It is a pure function of its inputs:
// the raw map is never mutated and no state is kept between calls.
type Processor struct {
	minDataPoints   int
	requiredColumns []string
	logger          *zap.Logger
}

// NewProcessor creates a Processor. A nil logger disables logging.
func NewProcessor(minDataPoints int, requiredColumns []string, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		minDataPoints:   minDataPoints,
		requiredColumns: requiredColumns,
		logger:          logger,
	}
}

// Process cleans every symbol's series. Symbols that fail validation are
// dropped, not errors: the second return value maps each dropped symbol to
// the reason. An empty input yields an empty output.
func (p *Processor) Process(raw map[string][]core.PriceBar) (map[string][]core.PriceBar, map[string]string) {
	cleaned := make(map[string][]core.PriceBar, len(raw))
	dropped := make(map[string]string)

	for symbol, series := range raw {
		out, reason := p.cleanSeries(series)
		if reason != "" {
			p.logger.Warn("dropping symbol",
				zap.String("symbol", symbol),
				zap.String("reason", reason),
			)
			dropped[symbol] = reason
			continue
		}
		cleaned[symbol] = out
	}

	return cleaned, dropped
}

// cleanSeries returns the cleaned copy of one series, or a non-empty drop
// reason when the series cannot be salvaged.
func (p *Processor) cleanSeries(series []core.PriceBar) ([]core.PriceBar, string) {
	if len(series) == 0 {
		return nil, "empty series"
	}

	out := make([]core.PriceBar, len(series))
	copy(out, series)

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	out = dedupeTimestamps(out)

	for _, name := range p.requiredColumns {
		col, ok := columns[name]
		if !ok {
			return nil, fmt.Sprintf("unknown required column %q", name)
		}
		if !hasColumn(out, col) {
			return nil, fmt.Sprintf("missing column %q", name)
		}
	}

	for _, name := range p.requiredColumns {
		col := columns[name]
		if col.fill {
			fillMissing(out, col)
		}
		clipOutliers(out, col)
	}

	if len(out) < p.minDataPoints {
		return nil, fmt.Sprintf("insufficient rows: %d < %d", len(out), p.minDataPoints)
	}

	return out, ""
}

// dedupeTimestamps removes bars sharing a timestamp with an earlier bar.
// The input must already be sorted by time.
func dedupeTimestamps(series []core.PriceBar) []core.PriceBar {
	out := series[:1]
	for _, bar := range series[1:] {
		if bar.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, bar)
	}
	return out
}

// hasColumn reports whether the column carries any usable value at all.
func hasColumn(series []core.PriceBar, col column) bool {
	for i := range series {
		v := col.get(&series[i])
		if !isMissing(v) {
			return true
		}
	}
	return false
}

// isMissing treats NaN and non-positive values as gaps. Volume can be a
// legitimate zero but a whole-zero column fails hasColumn anyway.
func isMissing(v float64) bool {
	return math.IsNaN(v) || v <= 0
}

// fillMissing forward-fills gaps from the previous valid value, then
// backward-fills any leading gap from the first valid value.
func fillMissing(series []core.PriceBar, col column) {
	last := math.NaN()
	for i := range series {
		v := col.get(&series[i])
		if isMissing(v) {
			if !math.IsNaN(last) {
				col.set(&series[i], last)
			}
		} else {
			last = v
		}
	}

	// Backward fill the leading gap
	first := math.NaN()
	for i := range series {
		v := col.get(&series[i])
		if !isMissing(v) {
			first = v
			break
		}
	}
	if math.IsNaN(first) {
		return
	}
	for i := range series {
		if isMissing(col.get(&series[i])) {
			col.set(&series[i], first)
		} else {
			break
		}
	}
}

// clipOutliers clamps values outside the interquartile-range fence
// [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. Values are clamped, never dropped, so a
// single bad tick cannot corrupt downstream statistics.
func clipOutliers(series []core.PriceBar, col column) {
	if len(series) < 4 {
		return
	}

	values := make([]float64, 0, len(series))
	for i := range series {
		v := col.get(&series[i])
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) < 4 {
		return
	}

	q, err := stats.Quartile(values)
	if err != nil {
		return
	}
	iqr := q.Q3 - q.Q1
	lo := q.Q1 - 1.5*iqr
	hi := q.Q3 + 1.5*iqr

	for i := range series {
		v := col.get(&series[i])
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			col.set(&series[i], lo)
		} else if v > hi {
			col.set(&series[i], hi)
		}
	}
}
