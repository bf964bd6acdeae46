package marketdata

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/strategyconfig"
)

// BarLoader reads stored daily bars for a ticker within [from, to].
// Implementations read local storage only; nothing here fetches over the network.
type BarLoader interface {
	LoadBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.Bar, error)
}

// maxParallelLoads bounds concurrent LoadBars calls in Build
const maxParallelLoads = 4

// Build loads every declared observable and registers it under its index name.
// Observables load concurrently; registration keeps declaration order.
func Build(ctx context.Context, loader BarLoader, observables []strategyconfig.Observable, from, to time.Time) (*Registry, error) {
	loaded := make([]*Observable, len(observables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for i, o := range observables {
		g.Go(func() error {
			bars, err := loader.LoadBars(gctx, o.Ticker, contracts.Day(from), contracts.Day(to))
			if err != nil {
				return fmt.Errorf("load %s (%s): %w", o.Name, o.Ticker, err)
			}
			if len(bars) == 0 {
				return fmt.Errorf("%w: no bars for %s (%s) between %s and %s", ErrNoData, o.Name, o.Ticker,
					from.Format(contracts.DateLayout), to.Format(contracts.DateLayout))
			}
			loaded[i] = FromBars(o.Name, bars)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reg := NewRegistry()
	for _, o := range loaded {
		if err := reg.Add(o); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// filterBars keeps bars within [from, to] with normalised dates
func filterBars(bars []contracts.Bar, from, to time.Time) []contracts.Bar {
	out := bars[:0]
	for _, b := range bars {
		b.Date = contracts.Day(b.Date)
		if contracts.InRange(b.Date, from, to) {
			out = append(out, b)
		}
	}
	return out
}
