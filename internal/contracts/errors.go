package contracts

import "errors"

// Error taxonomy shared by every engine package.
// ⭐ SSOT: package-specific errors wrap one of these so callers can match with errors.Is
var (
	// ErrConfiguration covers bad schedules, malformed underlyings and dependency cycles
	ErrConfiguration = errors.New("configuration error")

	// ErrRange is returned when an offset, crop or date list falls outside a schedule
	ErrRange = errors.New("range error")

	// ErrMissingData is returned when a signal or observable has no value for a date
	ErrMissingData = errors.New("missing data")

	// ErrNotImplemented is returned when a rule set omits a required override
	ErrNotImplemented = errors.New("not implemented")
)
