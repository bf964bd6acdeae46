package perfstats

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
)

type periodKind int

const (
	kindAll periodKind = iota
	kindYear
	kindYTD
	kindMTD
	kindRange
)

// Period selects the window a metric is computed over
type Period struct {
	kind  periodKind
	year  int
	start time.Time
	end   time.Time
	label string
}

// Year is one calendar year, starting at the last weekday of the previous year
func Year(y int) Period { return Period{kind: kindYear, year: y} }

// YTD runs from the last weekday of the previous year to the series end
func YTD() Period { return Period{kind: kindYTD} }

// MTD runs from the last weekday of the previous month to the series end
func MTD() Period { return Period{kind: kindMTD} }

// All covers the whole series
func All() Period { return Period{kind: kindAll} }

// Between is an explicit range; the bounds may be given in either order
func Between(a, b time.Time) Period {
	a, b = contracts.Day(a), contracts.Day(b)
	if b.Before(a) {
		a, b = b, a
	}
	return Period{kind: kindRange, start: a, end: b}
}

// Named returns a copy of p reported under label
func (p Period) Named(label string) Period {
	p.label = label
	return p
}

// Resolve returns the column name and window of p for a series spanning [first, last]
func (p Period) Resolve(first, last time.Time) (string, time.Time, time.Time) {
	var name string
	var start, end time.Time

	switch p.kind {
	case kindYear:
		name = strconv.Itoa(p.year)
		start = WeekdayRollBack(yearEnd(p.year - 1))
		end = minDate(last, WeekdayRollBack(yearEnd(p.year)))
	case kindYTD:
		name = "YTD"
		start = WeekdayRollBack(yearEnd(last.Year() - 1))
		end = last
	case kindMTD:
		name = "MTD"
		start = lastWeekdayOfPrevMonth(last)
		end = last
	case kindRange:
		name = fmt.Sprintf("%s_%s", p.start.Format(contracts.DateLayout), p.end.Format(contracts.DateLayout))
		start, end = p.start, p.end
	default:
		name = "All"
		start, end = first, last
	}

	if p.label != "" {
		name = p.label
	}
	return name, start, end
}

// ParsePeriod reads "2021", "YTD", "MTD", "All" or "YYYY-MM-DD:YYYY-MM-DD".
// A "label=" prefix names the column.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	label := ""
	if i := strings.Index(s, "="); i >= 0 {
		label, s = s[:i], s[i+1:]
	}

	var p Period
	switch {
	case strings.EqualFold(s, "YTD"):
		p = YTD()
	case strings.EqualFold(s, "MTD"):
		p = MTD()
	case strings.EqualFold(s, "All"):
		p = All()
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		a, err := contracts.ParseDay(parts[0])
		if err != nil {
			return Period{}, fmt.Errorf("period %q: %w", s, err)
		}
		b, err := contracts.ParseDay(parts[1])
		if err != nil {
			return Period{}, fmt.Errorf("period %q: %w", s, err)
		}
		p = Between(a, b)
	default:
		y, err := strconv.Atoi(s)
		if err != nil || y < 1900 || y > 2200 {
			return Period{}, fmt.Errorf("%w: unknown period %q", contracts.ErrConfiguration, s)
		}
		p = Year(y)
	}
	return p.Named(label), nil
}

// WeekdayRollBack returns t, or the Friday before it when t falls on a weekend
func WeekdayRollBack(t time.Time) time.Time {
	t = contracts.Day(t)
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, -2)
	default:
		return t
	}
}

func lastWeekdayOfPrevMonth(t time.Time) time.Time {
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return WeekdayRollBack(firstOfMonth.AddDate(0, 0, -1))
}

func yearEnd(y int) time.Time {
	return time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
