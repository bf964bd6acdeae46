package strategyconfig

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/spreadindex/internal/contracts"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report yaml names so errors point at the file, not the Go struct
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError is a fatal configuration problem
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap classifies every validation failure as a configuration error
func (e ValidationError) Unwrap() error {
	return contracts.ErrConfiguration
}

// Validate checks struct tags, then the rules that span several fields.
// Defaults must already be applied.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fromFieldError(fieldErrs[0])
		}
		return ValidationError{"config", err.Error()}
	}

	// === Window ===
	// at least two returns between the lookback start and the lag
	if cfg.VolLookBack > cfg.Lag()-2 {
		return ValidationError{
			Field:   "vol_look_back",
			Message: fmt.Sprintf("must be <= correlation_lag-2 (%d), got %d", cfg.Lag()-2, cfg.VolLookBack),
		}
	}

	// === Dates ===
	if cfg.HistoryStart != "" && !cfg.HistoryFrom().Before(cfg.Base()) {
		return ValidationError{"history_start", "must be before base_date"}
	}

	// === Observables ===
	seen := make(map[string]bool, len(cfg.Observables))
	for i, o := range cfg.Observables {
		if seen[o.Name] {
			return ValidationError{
				Field:   fmt.Sprintf("observables[%d].name", i),
				Message: fmt.Sprintf("duplicate observable %q", o.Name),
			}
		}
		seen[o.Name] = true
	}
	for i, u := range cfg.Underlyings {
		if !seen[u] {
			return ValidationError{
				Field:   fmt.Sprintf("underlyings[%d]", i),
				Message: fmt.Sprintf("%q is not declared in observables", u),
			}
		}
	}

	return nil
}

func fromFieldError(fe validator.FieldError) ValidationError {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	return ValidationError{Field: field, Message: fieldMessage(fe)}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "len":
		return fmt.Sprintf("must have exactly %s entries", fe.Param())
	case "unique":
		return "entries must be unique"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return "must be YYYY-MM-DD"
	case "gt":
		return fmt.Sprintf("must be > %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be < %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
