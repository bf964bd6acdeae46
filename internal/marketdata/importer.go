package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/strategyconfig"
)

// BarSink stores daily bars
type BarSink interface {
	SaveBars(ctx context.Context, bars []contracts.Bar) error
}

// ImportStats counts bars copied per ticker
type ImportStats map[string]int

// Total is the number of bars copied across tickers
func (s ImportStats) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// Import copies the bars of every declared observable from src to dst.
// Tickers shared by several observables are copied once.
func Import(ctx context.Context, src BarLoader, dst BarSink, observables []strategyconfig.Observable, from, to time.Time) (ImportStats, error) {
	stats := make(ImportStats, len(observables))
	for _, o := range observables {
		if _, done := stats[o.Ticker]; done {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		bars, err := src.LoadBars(ctx, o.Ticker, contracts.Day(from), contracts.Day(to))
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", o.Ticker, err)
		}
		if err := dst.SaveBars(ctx, bars); err != nil {
			return stats, fmt.Errorf("write %s: %w", o.Ticker, err)
		}
		stats[o.Ticker] = len(bars)
	}
	return stats, nil
}
