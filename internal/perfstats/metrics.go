package perfstats

import (
	"fmt"
	"math"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/timeseries"
)

// ErrInsufficientData is returned when a series is too short for a metric
var ErrInsufficientData = fmt.Errorf("%w: series too short", contracts.ErrMissingData)

const daysPerYear = 365.0

func spanDays(s *timeseries.Series) (float64, error) {
	first, err := s.First()
	if err != nil {
		return 0, err
	}
	last, err := s.Last()
	if err != nil {
		return 0, err
	}
	return last.Date.Sub(first.Date).Hours() / 24, nil
}

// PeriodReturn is last/first - 1
func PeriodReturn(s *timeseries.Series) (float64, error) {
	first, err := s.First()
	if err != nil {
		return 0, err
	}
	last, err := s.Last()
	if err != nil {
		return 0, err
	}
	if first.Value == 0 {
		return 0, fmt.Errorf("%w: first value is zero", ErrInsufficientData)
	}
	return last.Value/first.Value - 1, nil
}

// AnnualReturn compounds the period return to a 365-day year
func AnnualReturn(s *timeseries.Series) (float64, error) {
	net, err := PeriodReturn(s)
	if err != nil {
		return 0, err
	}
	days, err := spanDays(s)
	if err != nil {
		return 0, err
	}
	if days <= 0 {
		return 0, fmt.Errorf("%w: zero-length period", ErrInsufficientData)
	}
	return math.Pow(1+net, daysPerYear/days) - 1, nil
}

// ConditionalAnnualReturn annualises periods longer than a year and
// reports the plain period return otherwise
func ConditionalAnnualReturn(s *timeseries.Series) (float64, error) {
	days, err := spanDays(s)
	if err != nil {
		return 0, err
	}
	if days > 366 {
		return AnnualReturn(s)
	}
	return PeriodReturn(s)
}

// LogReturns returns ln(v[i]/v[i-1])
func LogReturns(s *timeseries.Series) []float64 {
	values := s.Values()
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = math.Log(values[i] / values[i-1])
	}
	return out
}

// PointsPerYear estimates the sampling frequency of s
func PointsPerYear(s *timeseries.Series) (int, error) {
	days, err := spanDays(s)
	if err != nil {
		return 0, err
	}
	if days <= 0 {
		return 0, fmt.Errorf("%w: zero-length period", ErrInsufficientData)
	}
	return int(float64(s.Len()) / (days / daysPerYear)), nil
}

// AnnualVolatility is sqrt(pointsPerYear) times the population stdev of log returns
func AnnualVolatility(s *timeseries.Series) (float64, error) {
	returns := LogReturns(s)
	if len(returns) == 0 {
		return 0, fmt.Errorf("%w: need at least two points", ErrInsufficientData)
	}
	ppy, err := PointsPerYear(s)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(float64(ppy)) * stdev(returns), nil
}

// Sharpe is annual return over annual volatility, with no risk-free rate.
// A flat series has a Sharpe of 0.
func Sharpe(s *timeseries.Series) (float64, error) {
	ret, err := AnnualReturn(s)
	if err != nil {
		return 0, err
	}
	vol, err := AnnualVolatility(s)
	if err != nil {
		return 0, err
	}
	if vol == 0 {
		return 0, nil
	}
	return ret / vol, nil
}

// MaxDrawdown is the largest fall from a running peak, as a positive fraction
func MaxDrawdown(s *timeseries.Series) (float64, error) {
	if s.Len() < 2 {
		return 0, fmt.Errorf("%w: need at least two points", ErrInsufficientData)
	}

	maxDrawdown := 0.0
	first := true
	var peak float64
	for _, v := range s.All() {
		if first {
			peak, first = v, false
			continue
		}
		peak = math.Max(peak, v)
		if drawdown := 1 - v/peak; drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown, nil
}

// stdev is the population standard deviation
func stdev(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		diff := x - mean
		variance += diff * diff
	}
	variance /= float64(len(xs))

	return math.Sqrt(variance)
}

// Metric is a named statistic with its display format
type Metric struct {
	Name    string
	Compute func(*timeseries.Series) (float64, error)
	Format  func(float64) string
}

func formatPercent(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }
func formatTwoDp(v float64) string   { return fmt.Sprintf("%.2f", v) }

var (
	MetricReturn           = Metric{"Return", ConditionalAnnualReturn, formatPercent}
	MetricAnnualVolatility = Metric{"AnnualVolatility", AnnualVolatility, formatPercent}
	MetricSharpe           = Metric{"Sharpe", Sharpe, formatTwoDp}
	MetricMaxDrawdown      = Metric{"MaxDrawDown", MaxDrawdown, formatPercent}
)

// DefaultMetrics are reported when no metric list is given
var DefaultMetrics = []Metric{MetricReturn, MetricAnnualVolatility, MetricSharpe, MetricMaxDrawdown}

// MetricByName looks up one of the default metrics
func MetricByName(name string) (Metric, bool) {
	for _, m := range DefaultMetrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}
