package marketdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/timeseries"
)

var (
	ErrDuplicateObservable = fmt.Errorf("%w: duplicate observable", contracts.ErrConfiguration)
	ErrUnknownObservable   = fmt.Errorf("%w: unknown observable", contracts.ErrMissingData)
)

// Registry holds the observables of one run.
// It is built once before evaluation and passed to the engine explicitly.
type Registry struct {
	observables map[string]*Observable
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{observables: make(map[string]*Observable)}
}

// Add registers an observable; names are unique
func (r *Registry) Add(o *Observable) error {
	if _, ok := r.observables[o.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateObservable, o.Name())
	}
	r.observables[o.Name()] = o
	return nil
}

// Get returns the observable called name
func (r *Registry) Get(name string) (*Observable, error) {
	o, ok := r.observables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObservable, name)
	}
	return o, nil
}

// Has reports whether name is a registered observable
func (r *Registry) Has(name string) bool {
	_, ok := r.observables[name]
	return ok
}

// Names returns registered names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.observables))
	for k := range r.observables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of observables
func (r *Registry) Len() int { return len(r.observables) }

// ValueAt returns field of observable name at date
func (r *Registry) ValueAt(name string, date time.Time, field string) (float64, error) {
	o, err := r.Get(name)
	if err != nil {
		return 0, err
	}
	return o.Value(field, date)
}

// SeriesOver returns field of observable name over [start, end]
func (r *Registry) SeriesOver(name string, start, end time.Time, field string) (*timeseries.Series, error) {
	o, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return o.Series(field, start, end)
}
