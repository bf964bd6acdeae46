package marketdata

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/strategyconfig"
	"github.com/wonny/spreadindex/pkg/redis"
)

func day(s string) time.Time {
	d, err := contracts.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func bars(symbol string, closes map[string]float64) []contracts.Bar {
	out := make([]contracts.Bar, 0, len(closes))
	for d, c := range closes {
		out = append(out, contracts.Bar{Symbol: symbol, Date: day(d), Open: c, High: c, Low: c, Close: c, Volume: 10})
	}
	return out
}

// memLoader serves fixed bars and counts calls
type memLoader struct {
	bars  map[string][]contracts.Bar
	mu    sync.Mutex
	calls int
}

func (m *memLoader) LoadBars(_ context.Context, ticker string, from, to time.Time) ([]contracts.Bar, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	b, ok := m.bars[ticker]
	if !ok {
		return nil, errors.New("unknown ticker")
	}
	return filterBars(append([]contracts.Bar(nil), b...), from, to), nil
}

func TestObservable(t *testing.T) {
	o := FromBars("A", bars("AAA", map[string]float64{
		"2024-01-03": 101,
		"2024-01-02": 100,
		"2024-01-05": 102,
	}))

	assert.Equal(t, "A", o.Name())
	assert.Equal(t, []string{"Close", "High", "Low", "Open", "Volume"}, o.Fields())

	v, err := o.Value(contracts.FieldClose, day("2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 101.0, v)

	vol, err := o.Value(contracts.FieldVolume, day("2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 10.0, vol)

	_, err = o.Value(contracts.FieldClose, day("2024-01-04"))
	assert.ErrorIs(t, err, ErrNoData)
	assert.ErrorIs(t, err, contracts.ErrMissingData)

	_, err = o.Value("Adj", day("2024-01-03"))
	assert.ErrorIs(t, err, ErrNoData)

	dates, err := o.Dates(contracts.FieldClose, day("2024-01-03"), day("2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-01-03"), day("2024-01-05")}, dates)

	s, err := o.Series(contracts.FieldClose, day("2024-01-01"), day("2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 101}, s.Values())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(FromBars("B", bars("BBB", map[string]float64{"2024-01-02": 50}))))
	require.NoError(t, reg.Add(FromBars("A", bars("AAA", map[string]float64{"2024-01-02": 100}))))

	err := reg.Add(FromBars("A", nil))
	assert.ErrorIs(t, err, ErrDuplicateObservable)
	assert.ErrorIs(t, err, contracts.ErrConfiguration)

	assert.Equal(t, []string{"A", "B"}, reg.Names())
	assert.Equal(t, 2, reg.Len())
	assert.True(t, reg.Has("A"))
	assert.False(t, reg.Has("index_level"))

	v, err := reg.ValueAt("B", day("2024-01-02"), contracts.FieldClose)
	require.NoError(t, err)
	assert.Equal(t, 50.0, v)

	_, err = reg.ValueAt("Z", day("2024-01-02"), contracts.FieldClose)
	assert.ErrorIs(t, err, ErrUnknownObservable)

	s, err := reg.SeriesOver("A", day("2024-01-01"), day("2024-01-31"), contracts.FieldClose)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestReadBarsCSV(t *testing.T) {
	in := "Date,Close\n2024-01-02,10\n2024-01-03,null\n2024-01-04,11.5\n"

	got, err := ReadBarsCSV(strings.NewReader(in), "X")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day("2024-01-04"), got[1].Date)
	assert.Equal(t, 11.5, got[1].Close)
	assert.Equal(t, 11.5, got[1].Open, "missing open falls back to close")
	assert.Equal(t, "X", got[1].Symbol)

	_, err = ReadBarsCSV(strings.NewReader("Date,Open\n2024-01-02,1\n"), "X")
	assert.Error(t, err)

	_, err = ReadBarsCSV(strings.NewReader("Date,Close\nbad,1\n"), "X")
	assert.Error(t, err)
}

func TestCSVLoader(t *testing.T) {
	loader := NewCSVLoader("testdata")
	ctx := context.Background()

	got, err := loader.LoadBars(ctx, "AAA", day("2024-01-03"), day("2024-01-05"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day("2024-01-03"), got[0].Date)
	assert.Equal(t, 102.0, got[1].Close)
	assert.Equal(t, int64(1200), got[1].Volume)

	_, err = loader.LoadBars(ctx, "MISSING", day("2024-01-01"), day("2024-12-31"))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestBuild(t *testing.T) {
	loader := &memLoader{bars: map[string][]contracts.Bar{
		"AAA": bars("AAA", map[string]float64{"2024-01-02": 100, "2024-01-03": 101}),
		"BBB": bars("BBB", map[string]float64{"2024-01-02": 50}),
	}}
	obs := []strategyconfig.Observable{
		{Name: "A", Ticker: "AAA", Field: "Close"},
		{Name: "B", Ticker: "BBB", Field: "Close"},
	}

	reg, err := Build(context.Background(), loader, obs, day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, reg.Names())

	_, err = Build(context.Background(), loader, obs, day("2025-01-01"), day("2025-01-31"))
	assert.ErrorIs(t, err, ErrNoData)

	obs = append(obs, strategyconfig.Observable{Name: "C", Ticker: "CCC", Field: "Close"})
	_, err = Build(context.Background(), loader, obs, day("2024-01-01"), day("2024-01-31"))
	assert.Error(t, err)
}

func TestCachedLoader_DisabledPassesThrough(t *testing.T) {
	inner := &memLoader{bars: map[string][]contracts.Bar{
		"AAA": bars("AAA", map[string]float64{"2024-01-02": 100}),
	}}
	cache := redis.NewCache(redis.NewFromRedis(nil), "test")
	loader := NewCachedLoader(inner, cache, 0, nil)

	for i := 0; i < 2; i++ {
		got, err := loader.LoadBars(context.Background(), "AAA", day("2024-01-01"), day("2024-01-31"))
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, 2, inner.calls)
}

func TestQualityGate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(FromBars("A", bars("AAA", map[string]float64{
		"2024-01-02": 100, "2024-01-03": 101, "2024-01-04": 102, "2024-01-05": 103,
	}))))
	require.NoError(t, reg.Add(FromBars("B", bars("BBB", map[string]float64{
		"2024-01-02": 50, "2024-01-03": 0, "2024-01-05": 52,
	}))))
	obs := []strategyconfig.Observable{
		{Name: "A", Ticker: "AAA", Field: "Close"},
		{Name: "B", Ticker: "BBB", Field: "Close"},
	}

	gate := NewQualityGate(DefaultQualityConfig)
	report, err := gate.Check(reg, obs, day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)

	assert.Equal(t, "A", report.Reference)
	assert.Equal(t, 1.0, report.Coverage["A"])
	assert.Equal(t, 0.75, report.Coverage["B"])
	assert.Equal(t, 1, report.NonPositive["B"])

	failures := gate.Failures(report)
	require.Len(t, failures, 2)
	assert.Contains(t, failures[0], "B covers 75.0%")
	assert.Contains(t, failures[1], "non-positive")
}

type memSink struct {
	saved []contracts.Bar
}

func (m *memSink) SaveBars(_ context.Context, bars []contracts.Bar) error {
	m.saved = append(m.saved, bars...)
	return nil
}

func TestImport(t *testing.T) {
	loader := &memLoader{bars: map[string][]contracts.Bar{
		"AAA": bars("AAA", map[string]float64{"2024-01-02": 100, "2024-01-03": 101, "2024-02-01": 102}),
		"BBB": bars("BBB", map[string]float64{"2024-01-02": 50}),
	}}
	obs := []strategyconfig.Observable{
		{Name: "A", Ticker: "AAA", Field: "Close"},
		{Name: "A_open", Ticker: "AAA", Field: "Open"},
		{Name: "B", Ticker: "BBB", Field: "Close"},
	}
	sink := &memSink{}

	stats, err := Import(context.Background(), loader, sink, obs, day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, ImportStats{"AAA": 2, "BBB": 1}, stats)
	assert.Equal(t, 3, stats.Total())
	assert.Len(t, sink.saved, 3)
	assert.Equal(t, 2, loader.calls, "shared tickers are read once")

	obs = append(obs, strategyconfig.Observable{Name: "C", Ticker: "CCC", Field: "Close"})
	_, err = Import(context.Background(), loader, sink, obs, day("2024-01-01"), day("2024-01-31"))
	assert.Error(t, err)
}
