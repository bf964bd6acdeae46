package state

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/timeseries"
)

var (
	ErrNoValue   = fmt.Errorf("%w: no value cached", contracts.ErrMissingData)
	ErrNotScalar = fmt.Errorf("%w: signal is not scalar", contracts.ErrConfiguration)
)

// Value is a computed signal value: a scalar (length 1) or a small
// fixed-size vector, one entry per underlying
type Value []float64

// Scalar wraps a single number
func Scalar(x float64) Value { return Value{x} }

// Vector wraps one number per underlying
func Vector(xs ...float64) Value { return Value(xs) }

// IsScalar reports whether the value holds exactly one number
func (v Value) IsScalar() bool { return len(v) == 1 }

// Float returns the scalar; callers check IsScalar first
func (v Value) Float() float64 { return v[0] }

// Store caches computed values keyed by (signal, date).
// ⭐ SSOT: pure cache, no computation logic. Lives for a single run, never pruned.
type Store struct {
	values map[string]map[time.Time]Value
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{values: make(map[string]map[time.Time]Value)}
}

// Set stores value for (signal, date), overwriting any previous entry
func (s *Store) Set(signal string, date time.Time, value Value) {
	bySignal, ok := s.values[signal]
	if !ok {
		bySignal = make(map[time.Time]Value)
		s.values[signal] = bySignal
	}

	stored := make(Value, len(value))
	copy(stored, value)
	bySignal[contracts.Day(date)] = stored
}

// Get returns the cached value for (signal, date)
func (s *Store) Get(signal string, date time.Time) (Value, error) {
	date = contracts.Day(date)
	v, ok := s.values[signal][date]
	if !ok {
		return nil, fmt.Errorf("%w: %s @ %s", ErrNoValue, signal, date.Format(contracts.DateLayout))
	}

	out := make(Value, len(v))
	copy(out, v)
	return out, nil
}

// Has reports whether (signal, date) is cached
func (s *Store) Has(signal string, date time.Time) bool {
	_, ok := s.values[signal][contracts.Day(date)]
	return ok
}

// HasSignal reports whether signal has at least one cached entry
func (s *Store) HasSignal(signal string) bool {
	return len(s.values[signal]) > 0
}

// Len returns the number of cached entries across all signals
func (s *Store) Len() int {
	n := 0
	for _, bySignal := range s.values {
		n += len(bySignal)
	}
	return n
}

// Signals returns the names of all signals with at least one entry, sorted
func (s *Store) Signals() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TimeSeries builds a series from the cached entries of a scalar signal
// within [start, end]
func (s *Store) TimeSeries(signal string, start, end time.Time) (*timeseries.Series, error) {
	return s.series(signal, start, end, func(v Value) (float64, error) {
		if !v.IsScalar() {
			return 0, fmt.Errorf("%w: %s has %d components", ErrNotScalar, signal, len(v))
		}
		return v[0], nil
	})
}

// ComponentSeries builds a series from component i of a vector signal
func (s *Store) ComponentSeries(signal string, i int, start, end time.Time) (*timeseries.Series, error) {
	return s.series(signal, start, end, func(v Value) (float64, error) {
		if i < 0 || i >= len(v) {
			return 0, fmt.Errorf("%w: %s has no component %d", contracts.ErrRange, signal, i)
		}
		return v[i], nil
	})
}

func (s *Store) series(signal string, start, end time.Time, pick func(Value) (float64, error)) (*timeseries.Series, error) {
	start, end = contracts.Day(start), contracts.Day(end)

	points := make([]timeseries.Point, 0, len(s.values[signal]))
	for date, v := range s.values[signal] {
		if !contracts.InRange(date, start, end) {
			continue
		}
		x, err := pick(v)
		if err != nil {
			return nil, err
		}
		points = append(points, timeseries.Point{Date: date, Value: x})
	}

	return timeseries.FromPoints(points), nil
}
