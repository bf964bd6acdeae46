package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/marketdata"
	"github.com/wonny/spreadindex/internal/perfstats"
	"github.com/wonny/spreadindex/internal/results"
	"github.com/wonny/spreadindex/internal/rules"
	"github.com/wonny/spreadindex/internal/strategyconfig"
	"github.com/wonny/spreadindex/internal/timeseries"
	"github.com/wonny/spreadindex/pkg/logger"
	"github.com/wonny/spreadindex/pkg/metrics"
)

// ResultStore persists finished runs
type ResultStore interface {
	Save(ctx context.Context, run *results.Run, levels *timeseries.Series) error
}

// Result is everything a finished run produced
type Result struct {
	RunID      string
	ConfigHash string
	Summary    *rules.RunResult
	Index      *rules.SpreadIndex
	Levels     *timeseries.Series
	Stats      *perfstats.Table
	Quality    *marketdata.QualityReport
	Persisted  bool

	QualityFailures []string
}

// Options tune an IndexService
type Options struct {
	Periods []perfstats.Period // stats columns; defaults to All plus each calendar year
	Store   ResultStore        // nil disables persistence
	Quality marketdata.QualityConfig
	Now     func() time.Time

	// StrategyYAML is the source the strategy was parsed from, stored with each run
	StrategyYAML []byte
}

// IndexService loads market data, runs the index and keeps the latest result.
// Runs are serialised; each one builds and owns a fresh engine.
type IndexService struct {
	strategy *strategyconfig.Config
	snapshot *strategyconfig.RunSnapshot
	loader   marketdata.BarLoader
	opts     Options
	gate     *marketdata.QualityGate
	log      *logger.Logger
	rec      *metrics.Recorder

	runMu  sync.Mutex
	mu     sync.RWMutex
	latest *Result
}

// New creates a new index service
func New(strategy *strategyconfig.Config, loader marketdata.BarLoader, opts Options, log *logger.Logger, rec *metrics.Recorder) (*IndexService, error) {
	snapshot, err := strategyconfig.NewRunSnapshot(strategy, opts.StrategyYAML)
	if err != nil {
		return nil, fmt.Errorf("snapshot strategy: %w", err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Quality.MinCoverage == 0 {
		opts.Quality = marketdata.DefaultQualityConfig
	}
	if log == nil {
		log = logger.Nop()
	}

	return &IndexService{
		strategy: strategy,
		snapshot: snapshot,
		loader:   loader,
		opts:     opts,
		gate:     marketdata.NewQualityGate(opts.Quality),
		log:      log.WithField("strategy", strategy.Meta.StrategyID),
		rec:      rec,
	}, nil
}

// Strategy returns the configuration the service runs
func (s *IndexService) Strategy() *strategyconfig.Config { return s.strategy }

// Latest returns the most recent successful result
func (s *IndexService) Latest() (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Run computes the index up to end (today when zero)
func (s *IndexService) Run(ctx context.Context, end time.Time) (*Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if end.IsZero() {
		end = s.opts.Now()
	}
	end = contracts.Day(end)
	from := s.strategy.HistoryFrom()
	log := s.log.WithDate("to", end)

	reg, err := marketdata.Build(ctx, s.loader, s.strategy.Observables, from, end)
	if err != nil {
		return nil, fmt.Errorf("load market data: %w", err)
	}

	report, err := s.gate.Check(reg, s.strategy.Observables, s.strategy.Base(), end)
	if err != nil {
		return nil, fmt.Errorf("quality check: %w", err)
	}
	failures := s.gate.Failures(report)
	for _, failure := range failures {
		log.WithField("check", failure).Warn("Market data quality below threshold")
	}

	idx, err := rules.NewSpreadIndex(s.strategy, reg, s.log, s.rec)
	if err != nil {
		return nil, err
	}
	summary, err := idx.Run(end)
	if err != nil {
		return nil, err
	}

	levels, err := idx.State().TimeSeries(rules.SignalIndexLevel, summary.Start, summary.End)
	if err != nil {
		return nil, err
	}

	stats, err := s.stats(idx, levels, summary)
	if err != nil {
		return nil, fmt.Errorf("perf stats: %w", err)
	}

	result := &Result{
		RunID:      results.NewRunID(),
		ConfigHash: s.snapshot.ConfigHash,
		Summary:    summary,
		Index:      idx,
		Levels:     levels,
		Stats:      stats,
		Quality:    report,

		QualityFailures: failures,
	}

	if s.opts.Store != nil {
		run := &results.Run{
			RunID:      result.RunID,
			StrategyID: s.strategy.Meta.StrategyID,
			ConfigHash: s.snapshot.ConfigHash,
			ConfigYAML: s.snapshot.ConfigYAML,
			Start:      summary.Start,
			End:        summary.End,
			FinalLevel: summary.FinalLevel,
		}
		if err := s.opts.Store.Save(ctx, run, levels); err != nil {
			return nil, fmt.Errorf("persist run: %w", err)
		}
		result.Persisted = true
		log.WithField("run_id", result.RunID).Info("Run persisted")
	}

	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()

	return result, nil
}

// stats reports on the index and each underlying over the run window
func (s *IndexService) stats(idx *rules.SpreadIndex, levels *timeseries.Series, summary *rules.RunResult) (*perfstats.Table, error) {
	curves := []perfstats.Curve{{Name: s.strategy.Meta.StrategyID, Series: levels}}
	for _, u := range s.strategy.Underlyings {
		series, err := idx.Series(u, summary.Start, summary.End, s.strategy.FieldOf(u))
		if err != nil {
			return nil, err
		}
		curves = append(curves, perfstats.Curve{Name: u, Series: series})
	}

	periods := s.opts.Periods
	if len(periods) == 0 {
		periods = DefaultPeriods(summary.Start, summary.End)
	}
	return perfstats.Compute(curves, periods, perfstats.DefaultMetrics)
}

// DefaultPeriods is All followed by every calendar year in [start, end]
func DefaultPeriods(start, end time.Time) []perfstats.Period {
	periods := []perfstats.Period{perfstats.All()}
	for y := start.Year(); y <= end.Year(); y++ {
		periods = append(periods, perfstats.Year(y))
	}
	return periods
}
