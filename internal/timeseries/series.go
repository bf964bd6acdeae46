package timeseries

import (
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
)

// ErrEmptySeries is returned by first/last accessors on an empty series
var ErrEmptySeries = fmt.Errorf("%w: empty time series", contracts.ErrMissingData)

// Point is one dated observation
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is an ascending, date-unique sequence of values.
// A Series is never mutated after construction; derived series are copies.
type Series struct {
	dates  []time.Time
	values []float64
}

// New builds a series from a date -> value map
func New(data map[time.Time]float64) *Series {
	points := make([]Point, 0, len(data))
	for d, v := range data {
		points = append(points, Point{Date: d, Value: v})
	}
	return FromPoints(points)
}

// FromPoints builds a series from points in any order.
// When a day appears more than once the later point wins.
func FromPoints(points []Point) *Series {
	byDay := make(map[time.Time]float64, len(points))
	for _, p := range points {
		byDay[contracts.Day(p.Date)] = p.Value
	}

	dates := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	values := make([]float64, len(dates))
	for i, d := range dates {
		values[i] = byDay[d]
	}

	return &Series{dates: dates, values: values}
}

// fromSorted wraps already sorted, unique slices without copying
func fromSorted(dates []time.Time, values []float64) *Series {
	return &Series{dates: dates, values: values}
}

// Len returns the number of points
func (s *Series) Len() int { return len(s.dates) }

// First returns the earliest point
func (s *Series) First() (Point, error) {
	if len(s.dates) == 0 {
		return Point{}, ErrEmptySeries
	}
	return Point{Date: s.dates[0], Value: s.values[0]}, nil
}

// Last returns the latest point
func (s *Series) Last() (Point, error) {
	n := len(s.dates)
	if n == 0 {
		return Point{}, ErrEmptySeries
	}
	return Point{Date: s.dates[n-1], Value: s.values[n-1]}, nil
}

// FirstDate returns the date of the earliest point
func (s *Series) FirstDate() (time.Time, error) {
	p, err := s.First()
	return p.Date, err
}

// LastDate returns the date of the latest point
func (s *Series) LastDate() (time.Time, error) {
	p, err := s.Last()
	return p.Date, err
}

// FirstValue returns the value of the earliest point
func (s *Series) FirstValue() (float64, error) {
	p, err := s.First()
	return p.Value, err
}

// LastValue returns the value of the latest point
func (s *Series) LastValue() (float64, error) {
	p, err := s.Last()
	return p.Value, err
}

// Value returns the value on date, ok=false when absent
func (s *Series) Value(date time.Time) (float64, bool) {
	date = contracts.Day(date)
	i := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(date) })
	if i < len(s.dates) && s.dates[i].Equal(date) {
		return s.values[i], true
	}
	return 0, false
}

// All iterates over (date, value) in ascending date order.
// Each call starts a fresh pass.
func (s *Series) All() iter.Seq2[time.Time, float64] {
	return func(yield func(time.Time, float64) bool) {
		for i, d := range s.dates {
			if !yield(d, s.values[i]) {
				return
			}
		}
	}
}

// Points returns a copy of the series as points
func (s *Series) Points() []Point {
	out := make([]Point, len(s.dates))
	for i, d := range s.dates {
		out[i] = Point{Date: d, Value: s.values[i]}
	}
	return out
}

// Dates returns a copy of the dates
func (s *Series) Dates() []time.Time {
	out := make([]time.Time, len(s.dates))
	copy(out, s.dates)
	return out
}

// Values returns a copy of the values
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Map converts back to the native date -> value form
func (s *Series) Map() map[time.Time]float64 {
	out := make(map[time.Time]float64, len(s.dates))
	for i, d := range s.dates {
		out[d] = s.values[i]
	}
	return out
}

// Range returns an independent series restricted to start <= date <= end
func (s *Series) Range(start, end time.Time) *Series {
	start, end = contracts.Day(start), contracts.Day(end)
	lo := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(start) })
	hi := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(end) })
	if lo >= hi {
		return fromSorted([]time.Time{}, []float64{})
	}

	dates := make([]time.Time, hi-lo)
	values := make([]float64, hi-lo)
	copy(dates, s.dates[lo:hi])
	copy(values, s.values[lo:hi])
	return fromSorted(dates, values)
}

// SimpleReturns returns v[i]/v[i-1]-1, dated at the later point
func (s *Series) SimpleReturns() *Series {
	if len(s.values) < 2 {
		return fromSorted([]time.Time{}, []float64{})
	}

	dates := make([]time.Time, len(s.values)-1)
	values := make([]float64, len(s.values)-1)
	for i := 1; i < len(s.values); i++ {
		dates[i-1] = s.dates[i]
		values[i-1] = s.values[i]/s.values[i-1] - 1
	}
	return fromSorted(dates, values)
}

// Align returns the values of a and b on the dates both series share
func Align(a, b *Series) ([]float64, []float64) {
	xs := make([]float64, 0, min(a.Len(), b.Len()))
	ys := make([]float64, 0, min(a.Len(), b.Len()))

	i, j := 0, 0
	for i < len(a.dates) && j < len(b.dates) {
		switch {
		case a.dates[i].Equal(b.dates[j]):
			xs = append(xs, a.values[i])
			ys = append(ys, b.values[j])
			i++
			j++
		case a.dates[i].Before(b.dates[j]):
			i++
		default:
			j++
		}
	}
	return xs, ys
}
