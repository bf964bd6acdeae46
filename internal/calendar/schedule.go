package calendar

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
)

var (
	ErrDuplicateDate     = fmt.Errorf("%w: duplicate date in schedule", contracts.ErrConfiguration)
	ErrOffsetOutOfRange  = fmt.Errorf("%w: offset out of range", contracts.ErrRange)
	ErrScheduleNotFound  = fmt.Errorf("%w: schedule not found", contracts.ErrConfiguration)
	ErrScheduleExists    = fmt.Errorf("%w: schedule already defined", contracts.ErrConfiguration)
	errNothingBeforeDate = errors.New("no schedule date on or before")
)

// Schedule is a named, strictly increasing sequence of trading days.
// ⭐ SSOT: all business-day arithmetic is index arithmetic over a Schedule,
// never calendar-day arithmetic
type Schedule struct {
	name  string
	dates []time.Time
}

// NewSchedule builds a schedule from dates in any order.
// Dates are normalised to days; a repeated day fails with ErrDuplicateDate.
func NewSchedule(name string, dates []time.Time) (*Schedule, error) {
	sorted := make([]time.Time, len(dates))
	for i, d := range dates {
		sorted[i] = contracts.Day(d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Equal(sorted[i-1]) {
			return nil, fmt.Errorf("%w: %s in %q", ErrDuplicateDate, sorted[i].Format(contracts.DateLayout), name)
		}
	}

	return &Schedule{name: name, dates: sorted}, nil
}

// Name returns the schedule name
func (s *Schedule) Name() string { return s.name }

// Len returns the number of dates
func (s *Schedule) Len() int { return len(s.dates) }

// At returns the i-th date
func (s *Schedule) At(i int) time.Time { return s.dates[i] }

// Dates returns a copy of the dates
func (s *Schedule) Dates() []time.Time {
	out := make([]time.Time, len(s.dates))
	copy(out, s.dates)
	return out
}

// First returns the earliest date, ok=false when empty
func (s *Schedule) First() (time.Time, bool) {
	if len(s.dates) == 0 {
		return time.Time{}, false
	}
	return s.dates[0], true
}

// Last returns the latest date, ok=false when empty
func (s *Schedule) Last() (time.Time, bool) {
	if len(s.dates) == 0 {
		return time.Time{}, false
	}
	return s.dates[len(s.dates)-1], true
}

// Contains reports whether t is a schedule date
func (s *Schedule) Contains(t time.Time) bool {
	t = contracts.Day(t)
	i := s.searchAfter(t)
	return i > 0 && s.dates[i-1].Equal(t)
}

// searchAfter is the right insertion point of t (first index with date > t)
func (s *Schedule) searchAfter(t time.Time) int {
	return sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(t) })
}

// locate returns the index of the last date <= t, shifted down by one more when
// t itself is in the schedule. Offset adds the one back, so offset 0 on a
// schedule date is that date and offset -1 is its strict predecessor.
func (s *Schedule) locate(t time.Time) int {
	idx := s.searchAfter(t)
	if idx > 0 && s.dates[idx-1].Equal(t) {
		return idx - 2
	}
	return idx - 1
}

// Offset moves step schedule positions from t.
// A t outside the schedule is anchored between its neighbours: step 0 gives the
// next date after t and step -1 the last date before it.
func (s *Schedule) Offset(t time.Time, step int) (time.Time, error) {
	t = contracts.Day(t)
	pos := s.locate(t) + step + 1
	if pos < 0 {
		return time.Time{}, fmt.Errorf("%w: %s%+d is before the start of schedule %q",
			ErrOffsetOutOfRange, t.Format(contracts.DateLayout), step, s.name)
	}
	if pos >= len(s.dates) {
		return time.Time{}, fmt.Errorf("%w: %s%+d is after the end of schedule %q",
			ErrOffsetOutOfRange, t.Format(contracts.DateLayout), step, s.name)
	}
	return s.dates[pos], nil
}

// Before returns the last schedule date strictly before t
func (s *Schedule) Before(t time.Time) (time.Time, error) {
	t = contracts.Day(t)
	idx := s.locate(t)
	if idx < 0 {
		return time.Time{}, fmt.Errorf("%w: %v %s in %q", contracts.ErrRange, errNothingBeforeDate, t.Format(contracts.DateLayout), s.name)
	}
	return s.dates[idx], nil
}

// OnOrBefore returns t when it is a schedule date, otherwise Before(t)
func (s *Schedule) OnOrBefore(t time.Time) (time.Time, error) {
	if s.Contains(t) {
		return contracts.Day(t), nil
	}
	return s.Before(t)
}

// DateList returns every date with start <= date <= end, ascending
func (s *Schedule) DateList(start, end time.Time) []time.Time {
	start, end = contracts.Day(start), contracts.Day(end)
	lo := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(start) })
	hi := s.searchAfter(end)
	if lo >= hi {
		return []time.Time{}
	}
	out := make([]time.Time, hi-lo)
	copy(out, s.dates[lo:hi])
	return out
}

// Crop returns an independent schedule bounded by start and end (inclusive).
// With includeStart=false the result begins at the first date after start.
func (s *Schedule) Crop(name string, start, end time.Time, includeStart bool) *Schedule {
	start, end = contracts.Day(start), contracts.Day(end)
	var lo int
	if includeStart {
		lo = sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(start) })
	} else {
		lo = s.searchAfter(start)
	}
	hi := s.searchAfter(end)

	dates := []time.Time{}
	if lo < hi {
		dates = make([]time.Time, hi-lo)
		copy(dates, s.dates[lo:hi])
	}
	return &Schedule{name: name, dates: dates}
}
