package marketdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/timeseries"
)

// ErrNoData is returned when an observable has no value for a field or date
var ErrNoData = fmt.Errorf("%w: no market data", contracts.ErrMissingData)

var barFields = []string{
	contracts.FieldOpen,
	contracts.FieldHigh,
	contracts.FieldLow,
	contracts.FieldClose,
	contracts.FieldVolume,
}

// Observable is one raw market quantity (a ticker) with one series per field
type Observable struct {
	name   string
	fields map[string]*timeseries.Series
}

// NewObservable wraps prebuilt field series
func NewObservable(name string, fields map[string]*timeseries.Series) *Observable {
	copied := make(map[string]*timeseries.Series, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &Observable{name: name, fields: copied}
}

// FromBars builds an observable with Open/High/Low/Close/Volume fields
func FromBars(name string, bars []contracts.Bar) *Observable {
	points := make(map[string][]timeseries.Point, len(barFields))
	for _, b := range bars {
		for _, f := range barFields {
			v, _ := b.Field(f)
			points[f] = append(points[f], timeseries.Point{Date: b.Date, Value: v})
		}
	}

	fields := make(map[string]*timeseries.Series, len(barFields))
	for _, f := range barFields {
		fields[f] = timeseries.FromPoints(points[f])
	}
	return &Observable{name: name, fields: fields}
}

// Name returns the observable name
func (o *Observable) Name() string { return o.name }

// Fields returns the available field names, sorted
func (o *Observable) Fields() []string {
	names := make([]string, 0, len(o.fields))
	for k := range o.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (o *Observable) field(name string) (*timeseries.Series, error) {
	s, ok := o.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no field %q", ErrNoData, o.name, name)
	}
	return s, nil
}

// Value returns field at date
func (o *Observable) Value(field string, date time.Time) (float64, error) {
	s, err := o.field(field)
	if err != nil {
		return 0, err
	}
	v, ok := s.Value(date)
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s on %s", ErrNoData, o.name, field, contracts.Day(date).Format(contracts.DateLayout))
	}
	return v, nil
}

// Series returns field over [start, end] as an independent series
func (o *Observable) Series(field string, start, end time.Time) (*timeseries.Series, error) {
	s, err := o.field(field)
	if err != nil {
		return nil, err
	}
	return s.Range(start, end), nil
}

// Dates returns the dates with a value for field within [start, end]
func (o *Observable) Dates(field string, start, end time.Time) ([]time.Time, error) {
	s, err := o.Series(field, start, end)
	if err != nil {
		return nil, err
	}
	return s.Dates(), nil
}

// All returns the full series of a field
func (o *Observable) All(field string) (*timeseries.Series, error) {
	return o.field(field)
}
