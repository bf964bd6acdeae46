package rules

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/spreadindex/internal/calendar"
	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/marketdata"
	"github.com/wonny/spreadindex/internal/state"
	"github.com/wonny/spreadindex/internal/strategyconfig"
	"github.com/wonny/spreadindex/internal/timeseries"
	"github.com/wonny/spreadindex/pkg/logger"
	"github.com/wonny/spreadindex/pkg/metrics"
)

// ErrCycle is returned when a signal re-enters itself for the same date
var ErrCycle = fmt.Errorf("%w: signal dependency cycle", contracts.ErrConfiguration)

// Rules is a concrete rule set driven by the engine
type Rules interface {
	// DefineSchedules creates the schedules the rule set evaluates on
	DefineSchedules(cal *calendar.Calendar, cfg *strategyconfig.Config, reg *marketdata.Registry) error
	// IndexLevel is the terminal signal the run loop drives
	IndexLevel(date time.Time) (float64, error)
}

// Unimplemented can be embedded by rule sets that are built up incrementally.
// Every method fails with ErrNotImplemented.
type Unimplemented struct{}

// DefineSchedules implements Rules
func (Unimplemented) DefineSchedules(*calendar.Calendar, *strategyconfig.Config, *marketdata.Registry) error {
	return fmt.Errorf("%w: DefineSchedules", contracts.ErrNotImplemented)
}

// IndexLevel implements Rules
func (Unimplemented) IndexLevel(time.Time) (float64, error) {
	return 0, fmt.Errorf("%w: IndexLevel", contracts.ErrNotImplemented)
}

type memoKey struct {
	signal string
	date   time.Time
}

// Engine evaluates memoised signals over a calendar.
// ⭐ SSOT: every derived value goes through Memo, so each (signal, date) is computed at most once.
// An engine serves exactly one run and is not safe for concurrent use.
type Engine struct {
	cfg      *strategyconfig.Config
	base     time.Time
	cal      *calendar.Calendar
	store    *state.Store
	registry *marketdata.Registry
	states   *stateSource
	rules    Rules

	inProgress   map[memoKey]struct{}
	computations map[string]int

	log *logger.Logger
	rec *metrics.Recorder
}

// RunResult summarises a finished run
type RunResult struct {
	Strategy   string        `json:"strategy"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Dates      int           `json:"dates"`
	Rebalances int           `json:"rebalances"`
	FinalLevel float64       `json:"final_level"`
	Duration   time.Duration `json:"duration"`
}

// NewEngine validates cfg and builds the calendar through rules
func NewEngine(cfg *strategyconfig.Config, registry *marketdata.Registry, rules Rules, log *logger.Logger, rec *metrics.Recorder) (*Engine, error) {
	if rules == nil {
		return nil, fmt.Errorf("%w: no rule set", contracts.ErrNotImplemented)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: no rule configuration", contracts.ErrConfiguration)
	}
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, err
	}
	if registry == nil {
		registry = marketdata.NewRegistry()
	}
	if log == nil {
		log = logger.Nop()
	}

	cal := calendar.New()
	if err := rules.DefineSchedules(cal, cfg, registry); err != nil {
		return nil, fmt.Errorf("define schedules: %w", err)
	}

	store := state.NewStore()
	return &Engine{
		cfg:          cfg,
		base:         cfg.Base(),
		cal:          cal,
		store:        store,
		registry:     registry,
		states:       &stateSource{store: store, components: cfg.Underlyings},
		rules:        rules,
		inProgress:   make(map[memoKey]struct{}),
		computations: make(map[string]int),
		log:          log.WithField("strategy", cfg.Meta.StrategyID),
		rec:          rec,
	}, nil
}

// Config returns the read-only rule configuration
func (e *Engine) Config() *strategyconfig.Config { return e.cfg }

// Base returns the base date
func (e *Engine) Base() time.Time { return e.base }

// Calendar returns the run's schedules
func (e *Engine) Calendar() *calendar.Calendar { return e.cal }

// State returns the signal store
func (e *Engine) State() *state.Store { return e.store }

// Registry returns the observable registry
func (e *Engine) Registry() *marketdata.Registry { return e.registry }

// Computations returns how many times the body of signal has executed
func (e *Engine) Computations(signal string) int { return e.computations[signal] }

// Memo returns the cached value of (signal, date) or computes it with body and caches it.
// Errors are returned as-is and never cached.
func (e *Engine) Memo(signal string, date time.Time, body func() (state.Value, error)) (state.Value, error) {
	date = contracts.Day(date)

	if v, err := e.store.Get(signal, date); err == nil {
		e.rec.RecordCacheHit(signal)
		return v, nil
	} else if !errors.Is(err, state.ErrNoValue) {
		return nil, err
	}

	key := memoKey{signal: signal, date: date}
	if _, busy := e.inProgress[key]; busy {
		return nil, fmt.Errorf("%w: %s on %s", ErrCycle, signal, date.Format(contracts.DateLayout))
	}
	e.inProgress[key] = struct{}{}
	defer delete(e.inProgress, key)

	e.computations[signal]++
	e.rec.RecordComputation(signal)

	v, err := body()
	if err != nil {
		return nil, err
	}

	e.store.Set(signal, date, v)
	return v, nil
}

func (e *Engine) source(name string) Source {
	if e.registry.Has(name) {
		return e.registry
	}
	return e.states
}

// Value returns signal at date: an observable field, or a cached derived signal
func (e *Engine) Value(signal string, date time.Time, field string) (float64, error) {
	return e.source(signal).ValueAt(signal, date, field)
}

// Series returns signal over [start, end] with the same dispatch as Value
func (e *Engine) Series(signal string, start, end time.Time, field string) (*timeseries.Series, error) {
	return e.source(signal).SeriesOver(signal, start, end, field)
}

// Run evaluates the index on every calculation date from the base date to end,
// in ascending order. Any error aborts the run.
func (e *Engine) Run(end time.Time) (*RunResult, error) {
	started := time.Now()
	end = contracts.Day(end)

	dates, err := e.cal.DateList(calendar.Calculation, e.base, end)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		err := fmt.Errorf("%w: no calculation dates between %s and %s", contracts.ErrRange,
			e.base.Format(contracts.DateLayout), end.Format(contracts.DateLayout))
		e.rec.RecordRun(e.cfg.Meta.StrategyID, time.Since(started).Seconds(), err)
		return nil, err
	}

	e.log.WithDate("from", dates[0]).WithDate("to", dates[len(dates)-1]).Info("Index run started")

	var level float64
	for _, d := range dates {
		level, err = e.rules.IndexLevel(d)
		if err != nil {
			err = fmt.Errorf("index level on %s: %w", d.Format(contracts.DateLayout), err)
			e.log.WithError(err).Error("Index run failed")
			e.rec.RecordRun(e.cfg.Meta.StrategyID, time.Since(started).Seconds(), err)
			return nil, err
		}
		if e.log.Enabled(zerolog.DebugLevel) {
			e.log.WithDate("date", d).WithField("level", level).Debug("Calculated index level")
		}
	}

	rebalances, _ := e.cal.DateList(calendar.Rebalance, e.base, end)

	result := &RunResult{
		Strategy:   e.cfg.Meta.StrategyID,
		Start:      dates[0],
		End:        dates[len(dates)-1],
		Dates:      len(dates),
		Rebalances: len(rebalances),
		FinalLevel: level,
		Duration:   time.Since(started),
	}

	e.log.WithFields(map[string]interface{}{
		"from":  result.Start.Format(contracts.DateLayout),
		"to":    result.End.Format(contracts.DateLayout),
		"dates": result.Dates,
		"level": result.FinalLevel,
	}).Info("Index run completed")

	e.rec.RecordRun(e.cfg.Meta.StrategyID, result.Duration.Seconds(), nil)
	e.rec.RecordLevel(e.cfg.Meta.StrategyID, level)
	return result, nil
}
