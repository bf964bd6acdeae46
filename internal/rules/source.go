package rules

import (
	"fmt"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/state"
	"github.com/wonny/spreadindex/internal/timeseries"
)

// ErrUnknownSignal is returned for names that are neither observables nor computed signals
var ErrUnknownSignal = fmt.Errorf("%w: unknown signal", contracts.ErrMissingData)

// Source resolves a named signal to a point or a series.
// Market observables and derived signals are two backends of the same capability.
type Source interface {
	ValueAt(name string, date time.Time, field string) (float64, error)
	SeriesOver(name string, start, end time.Time, field string) (*timeseries.Series, error)
}

// stateSource reads derived signals from the state store.
// field is empty for scalar signals or names an underlying for vector signals.
type stateSource struct {
	store      *state.Store
	components []string
}

func (s *stateSource) component(name, field string) (int, error) {
	for i, c := range s.components {
		if c == field {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s has no component %q", state.ErrNotScalar, name, field)
}

// ValueAt implements Source
func (s *stateSource) ValueAt(name string, date time.Time, field string) (float64, error) {
	v, err := s.store.Get(name, date)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if field == "" {
		if !v.IsScalar() {
			return 0, fmt.Errorf("%w: %s has %d components", state.ErrNotScalar, name, len(v))
		}
		return v.Float(), nil
	}

	i, err := s.component(name, field)
	if err != nil {
		return 0, err
	}
	if i >= len(v) {
		return 0, fmt.Errorf("%w: %s has %d components", state.ErrNotScalar, name, len(v))
	}
	return v[i], nil
}

// SeriesOver implements Source
func (s *stateSource) SeriesOver(name string, start, end time.Time, field string) (*timeseries.Series, error) {
	if !s.store.HasSignal(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSignal, name)
	}
	if field == "" {
		return s.store.TimeSeries(name, start, end)
	}
	i, err := s.component(name, field)
	if err != nil {
		return nil, err
	}
	return s.store.ComponentSeries(name, i, start, end)
}
