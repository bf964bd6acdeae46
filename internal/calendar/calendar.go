package calendar

import (
	"fmt"
	"sort"
	"time"
)

// Well-known schedule names used by rule sets
const (
	CalculationInfinite = "calculation_infinite"
	Calculation         = "calculation"
	Rebalance           = "rebalance"
)

// Calendar owns the named schedules of one index run.
// Schedules are immutable once created, so redefining a name fails.
type Calendar struct {
	schedules map[string]*Schedule
}

// New creates an empty calendar
func New() *Calendar {
	return &Calendar{schedules: make(map[string]*Schedule)}
}

// Create builds and registers a schedule
func (c *Calendar) Create(name string, dates []time.Time) (*Schedule, error) {
	if _, exists := c.schedules[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrScheduleExists, name)
	}

	s, err := NewSchedule(name, dates)
	if err != nil {
		return nil, err
	}

	c.schedules[name] = s
	return s, nil
}

// Crop derives a new schedule from source and registers it under name
func (c *Calendar) Crop(name, source string, start, end time.Time, includeStart bool) (*Schedule, error) {
	src, err := c.Get(source)
	if err != nil {
		return nil, err
	}
	if _, exists := c.schedules[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrScheduleExists, name)
	}

	s := src.Crop(name, start, end, includeStart)
	c.schedules[name] = s
	return s, nil
}

// Get returns the named schedule
func (c *Calendar) Get(name string) (*Schedule, error) {
	s, ok := c.schedules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrScheduleNotFound, name)
	}
	return s, nil
}

// Names returns the registered schedule names, sorted
func (c *Calendar) Names() []string {
	names := make([]string, 0, len(c.schedules))
	for name := range c.schedules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Offset resolves t shifted by step positions on the named schedule
func (c *Calendar) Offset(name string, t time.Time, step int) (time.Time, error) {
	s, err := c.Get(name)
	if err != nil {
		return time.Time{}, err
	}
	return s.Offset(t, step)
}

// DateList returns the named schedule's dates within [start, end]
func (c *Calendar) DateList(name string, start, end time.Time) ([]time.Time, error) {
	s, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	return s.DateList(start, end), nil
}

// InSchedule reports whether t belongs to the named schedule
func (c *Calendar) InSchedule(name string, t time.Time) (bool, error) {
	s, err := c.Get(name)
	if err != nil {
		return false, err
	}
	return s.Contains(t), nil
}

// Before returns the last date of the named schedule strictly before t
func (c *Calendar) Before(name string, t time.Time) (time.Time, error) {
	s, err := c.Get(name)
	if err != nil {
		return time.Time{}, err
	}
	return s.Before(t)
}

// OnOrBefore returns t if scheduled, else the last date before it
func (c *Calendar) OnOrBefore(name string, t time.Time) (time.Time, error) {
	s, err := c.Get(name)
	if err != nil {
		return time.Time{}, err
	}
	return s.OnOrBefore(t)
}
