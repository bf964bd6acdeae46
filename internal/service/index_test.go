package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/results"
	"github.com/wonny/spreadindex/internal/strategyconfig"
	"github.com/wonny/spreadindex/internal/timeseries"
)

// fixtureLoader serves synthetic weekday bars for AAA and BBB
type fixtureLoader struct {
	dates []time.Time
}

func newFixtureLoader(n int) *fixtureLoader {
	var dates []time.Time
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for len(dates) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return &fixtureLoader{dates: dates}
}

func (l *fixtureLoader) LoadBars(_ context.Context, ticker string, from, to time.Time) ([]contracts.Bar, error) {
	var out []contracts.Bar
	for i, d := range l.dates {
		if !contracts.InRange(d, from, to) {
			continue
		}
		var px float64
		switch ticker {
		case "AAA":
			px = 100 + 0.5*float64(i) + math.Sin(float64(i))
		case "BBB":
			px = 50 + math.Cos(float64(i))
		default:
			return nil, errors.New("unknown ticker")
		}
		out = append(out, contracts.Bar{Symbol: ticker, Date: d, Open: px, High: px, Low: px, Close: px, Volume: 1})
	}
	return out, nil
}

type memStore struct {
	runs   []*results.Run
	levels []*timeseries.Series
}

func (m *memStore) Save(_ context.Context, run *results.Run, levels *timeseries.Series) error {
	m.runs = append(m.runs, run)
	m.levels = append(m.levels, levels)
	return nil
}

func strategy(t *testing.T, base time.Time) *strategyconfig.Config {
	t.Helper()
	lag := -1
	cfg := &strategyconfig.Config{
		Meta:           strategyconfig.Meta{StrategyID: "svc_test"},
		BaseDate:       base.Format(contracts.DateLayout),
		HistoryStart:   "2023-12-01",
		Underlyings:    []string{"A", "B"},
		CorrelationLag: &lag,
		VolLookBack:    -5,
		DailyLeverage:  -10,
		Observables: []strategyconfig.Observable{
			{Name: "A", Ticker: "AAA"},
			{Name: "B", Ticker: "BBB"},
		},
	}
	require.NoError(t, strategyconfig.ApplyDefaults(cfg))
	require.NoError(t, strategyconfig.Validate(cfg))
	return cfg
}

func TestIndexService_Run(t *testing.T) {
	loader := newFixtureLoader(30)
	base := loader.dates[10]
	store := &memStore{}

	svc, err := New(strategy(t, base), loader, Options{Store: store, StrategyYAML: []byte("meta: {strategy_id: svc_test}")}, nil, nil)
	require.NoError(t, err)

	_, ok := svc.Latest()
	assert.False(t, ok)

	res, err := svc.Run(context.Background(), loader.dates[29])
	require.NoError(t, err)

	assert.Equal(t, base, res.Summary.Start)
	assert.Equal(t, loader.dates[29], res.Summary.End)
	assert.Equal(t, 20, res.Summary.Dates)
	assert.Equal(t, 20, res.Levels.Len())
	first, err := res.Levels.FirstValue()
	require.NoError(t, err)
	assert.Equal(t, 100.0, first)
	assert.Len(t, res.ConfigHash, 64)
	assert.True(t, res.Persisted)

	require.Len(t, store.runs, 1)
	assert.Equal(t, res.RunID, store.runs[0].RunID)
	assert.Equal(t, res.Summary.FinalLevel, store.runs[0].FinalLevel)
	assert.Equal(t, "meta: {strategy_id: svc_test}", store.runs[0].ConfigYAML)
	assert.Equal(t, res.ConfigHash, store.runs[0].ConfigHash)
	assert.Equal(t, 20, store.levels[0].Len())

	// index plus both underlyings, four metrics each
	assert.Len(t, res.Stats.Rows, 12)
	assert.Equal(t, []string{"All", "2024"}, res.Stats.Periods)

	assert.Equal(t, 1.0, res.Quality.Coverage["B"])
	assert.Empty(t, res.QualityFailures)

	latest, ok := svc.Latest()
	require.True(t, ok)
	assert.Same(t, res, latest)
}

func TestIndexService_RunBeforeBase(t *testing.T) {
	loader := newFixtureLoader(30)
	svc, err := New(strategy(t, loader.dates[10]), loader, Options{}, nil, nil)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), loader.dates[5])
	assert.ErrorIs(t, err, contracts.ErrRange)

	_, ok := svc.Latest()
	assert.False(t, ok, "failed runs never replace the latest result")
}

func TestIndexService_DefaultEnd(t *testing.T) {
	loader := newFixtureLoader(30)
	now := func() time.Time { return loader.dates[20].Add(15 * time.Hour) }
	svc, err := New(strategy(t, loader.dates[10]), loader, Options{Now: now}, nil, nil)
	require.NoError(t, err)

	res, err := svc.Run(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, loader.dates[20], res.Summary.End)
	assert.False(t, res.Persisted)
}

func TestDefaultPeriods(t *testing.T) {
	periods := DefaultPeriods(time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC))
	assert.Len(t, periods, 4)
}
