package contracts

import "time"

// DateLayout is the date format used in configs, CLI flags and the API
const DateLayout = "2006-01-02"

// Day truncates t to its calendar day in UTC.
// All dates used as schedule entries or map keys go through here.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a normalised day
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// InRange reports whether start <= t <= end
func InRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
