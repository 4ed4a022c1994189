package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/quantfold/backtest/internal/core"
)

// CSVProvider reads historical bars from per-symbol CSV files in a directory.
// Expected layout: <dir>/<SYMBOL>.csv with a header row of
// time,open,high,low,close,volume[,adj_close]. Timestamps are RFC 3339 or
// plain dates (2006-01-02).
type CSVProvider struct {
	dir string
}

// NewCSVProvider creates a CSVProvider rooted at the given directory
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

// Name returns the provider identifier
func (p *CSVProvider) Name() string {
	return "csv"
}

// GetBars loads and filters bars for one symbol
func (p *CSVProvider) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]core.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(p.dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, core.WrapError(core.ErrDataUnavailable, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, core.WrapError(core.ErrDataUnavailable, err)
	}
	if len(records) < 2 {
		return nil, core.WrapError(core.ErrDataUnavailable,
			fmt.Errorf("%s: no data rows", path))
	}

	idx, err := headerIndex(records[0])
	if err != nil {
		return nil, core.WrapError(core.ErrDataUnavailable, err)
	}

	var bars []core.PriceBar
	for line, rec := range records[1:] {
		bar, err := parseRow(symbol, rec, idx)
		if err != nil {
			return nil, core.WrapError(core.ErrDataUnavailable,
				fmt.Errorf("%s line %d: %w", path, line+2, err))
		}
		if bar.Time.Before(start) || bar.Time.After(end) {
			continue
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// headerIndex maps column names to positions, requiring the base OHLCV set
func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"time", "open", "high", "low", "close", "volume"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("missing column %q in header", required)
		}
	}
	return idx, nil
}

func parseRow(symbol string, rec []string, idx map[string]int) (core.PriceBar, error) {
	ts, err := parseTime(rec[idx["time"]])
	if err != nil {
		return core.PriceBar{}, err
	}

	bar := core.PriceBar{Symbol: symbol, Time: ts}
	fields := []struct {
		name string
		dst  *float64
	}{
		{"open", &bar.Open},
		{"high", &bar.High},
		{"low", &bar.Low},
		{"close", &bar.Close},
		{"volume", &bar.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[f.name]]), 64)
		if err != nil {
			return core.PriceBar{}, fmt.Errorf("parsing %s: %w", f.name, err)
		}
		*f.dst = v
	}

	if i, ok := idx["adj_close"]; ok && i < len(rec) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64); err == nil {
			bar.AdjClose = v
		}
	}

	return bar, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
