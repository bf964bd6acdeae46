package marketdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/spreadindex/internal/strategyconfig"
)

// QualityConfig holds quality gate thresholds
type QualityConfig struct {
	MinCoverage float64 // share of reference dates each observable must cover
}

// DefaultQualityConfig is used by the index service
var DefaultQualityConfig = QualityConfig{MinCoverage: 0.95}

// QualityReport summarises loaded data before a run
type QualityReport struct {
	Reference   string             `json:"reference"`
	From        time.Time          `json:"from"`
	To          time.Time          `json:"to"`
	Coverage    map[string]float64 `json:"coverage"`     // observable -> share of reference dates present
	NonPositive map[string]int     `json:"non_positive"` // observable -> values <= 0 in its price field
}

// QualityGate checks loaded observables against the first one's trading dates.
// ⭐ SSOT: loaded data is checked here before the engine sees it
type QualityGate struct {
	config QualityConfig
}

// NewQualityGate creates a new QualityGate
func NewQualityGate(config QualityConfig) *QualityGate {
	return &QualityGate{config: config}
}

// Check measures coverage and price sanity over [from, to]
func (g *QualityGate) Check(reg *Registry, observables []strategyconfig.Observable, from, to time.Time) (*QualityReport, error) {
	if len(observables) == 0 {
		return nil, fmt.Errorf("%w: no observables to check", ErrNoData)
	}

	ref := observables[0]
	refDates, err := g.dates(reg, ref, from, to)
	if err != nil {
		return nil, err
	}

	report := &QualityReport{
		Reference:   ref.Name,
		From:        from,
		To:          to,
		Coverage:    make(map[string]float64, len(observables)),
		NonPositive: make(map[string]int, len(observables)),
	}

	for _, o := range observables {
		s, err := reg.SeriesOver(o.Name, from, to, o.Field)
		if err != nil {
			return nil, err
		}

		present := 0
		for _, d := range refDates {
			if _, ok := s.Value(d); ok {
				present++
			}
		}
		if len(refDates) > 0 {
			report.Coverage[o.Name] = float64(present) / float64(len(refDates))
		}

		for _, v := range s.All() {
			if v <= 0 {
				report.NonPositive[o.Name]++
			}
		}
	}

	return report, nil
}

// Failures lists human readable threshold violations
func (g *QualityGate) Failures(report *QualityReport) []string {
	var out []string
	for name, cov := range report.Coverage {
		if cov < g.config.MinCoverage {
			out = append(out, fmt.Sprintf("%s covers %.1f%% of %s dates (min %.1f%%)",
				name, cov*100, report.Reference, g.config.MinCoverage*100))
		}
	}
	for name, n := range report.NonPositive {
		if n > 0 {
			out = append(out, fmt.Sprintf("%s has %d non-positive prices", name, n))
		}
	}
	sort.Strings(out)
	return out
}

func (g *QualityGate) dates(reg *Registry, o strategyconfig.Observable, from, to time.Time) ([]time.Time, error) {
	obs, err := reg.Get(o.Name)
	if err != nil {
		return nil, err
	}
	return obs.Dates(o.Field, from, to)
}
