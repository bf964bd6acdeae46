package rules

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/spreadindex/internal/calendar"
	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/internal/marketdata"
	"github.com/wonny/spreadindex/internal/state"
	"github.com/wonny/spreadindex/internal/strategyconfig"
	"github.com/wonny/spreadindex/internal/timeseries"
	"github.com/wonny/spreadindex/pkg/logger"
	"github.com/wonny/spreadindex/pkg/metrics"
)

// Signal names as stored in the state store
const (
	SignalAssetVol         = "AssetVol"
	SignalAssetCorrelation = "AssetCorrelation"
	SignalAssetReturn      = "AssetReturn"
	SignalTargetLeverage   = "TargetLeverage"
	SignalTargetUnits      = "TargetUnits"
	SignalFee              = "fee"
	SignalIndexLevel       = "index_level"
)

// Signals lists every derived signal of the spread index in dependency order
var Signals = []string{
	SignalAssetVol,
	SignalAssetCorrelation,
	SignalAssetReturn,
	SignalTargetLeverage,
	SignalTargetUnits,
	SignalFee,
	SignalIndexLevel,
}

// ErrInsufficientHistory is returned when a window holds too few returns
var ErrInsufficientHistory = fmt.Errorf("%w: insufficient history in window", contracts.ErrMissingData)

// SpreadIndex is a two-asset mean-reversion index.
// Each day it sizes a long/short position in both underlyings against the
// return the other one implied, given their correlation and volatility ratio.
type SpreadIndex struct {
	*Engine
}

// NewSpreadIndex builds the rule set and its engine
func NewSpreadIndex(cfg *strategyconfig.Config, registry *marketdata.Registry, log *logger.Logger, rec *metrics.Recorder) (*SpreadIndex, error) {
	s := &SpreadIndex{}
	e, err := NewEngine(cfg, registry, s, log, rec)
	if err != nil {
		return nil, err
	}
	s.Engine = e
	return s, nil
}

// DefineSchedules derives all schedules from the first underlying's trading dates
func (s *SpreadIndex) DefineSchedules(cal *calendar.Calendar, cfg *strategyconfig.Config, reg *marketdata.Registry) error {
	first := cfg.Underlyings[0]
	obs, err := reg.Get(first)
	if err != nil {
		return err
	}
	all, err := obs.All(cfg.FieldOf(first))
	if err != nil {
		return err
	}
	last, err := all.LastDate()
	if err != nil {
		return fmt.Errorf("%s: %w", first, err)
	}

	if _, err := cal.Create(calendar.CalculationInfinite, all.Dates()); err != nil {
		return err
	}
	if _, err := cal.Crop(calendar.Calculation, calendar.CalculationInfinite, cfg.Base(), last, true); err != nil {
		return err
	}
	// positions sized on a date take effect from the next one
	if _, err := cal.Crop(calendar.Rebalance, calendar.CalculationInfinite, cfg.Base(), last, false); err != nil {
		return err
	}
	return nil
}

// seed reports whether date is on or before the base date, where the
// index level is fixed at its initial value
func (s *SpreadIndex) seed(date time.Time) bool {
	return !contracts.Day(date).After(s.base)
}

func (s *SpreadIndex) isBase(date time.Time) bool {
	return contracts.Day(date).Equal(s.base)
}

func (s *SpreadIndex) prev(date time.Time) (time.Time, error) {
	return s.cal.Offset(calendar.CalculationInfinite, date, -1)
}

func (s *SpreadIndex) level(name string, date time.Time) (float64, error) {
	return s.Value(name, date, s.cfg.FieldOf(name))
}

// windowReturns returns each underlying's one-step returns over
// [offset(date, volLookBack), offset(date, correlationLag)]
func (s *SpreadIndex) windowReturns(date time.Time) ([]*timeseries.Series, error) {
	start, err := s.cal.Offset(calendar.CalculationInfinite, date, s.cfg.VolLookBack)
	if err != nil {
		return nil, fmt.Errorf("vol window start: %w", err)
	}
	end, err := s.cal.Offset(calendar.CalculationInfinite, date, s.cfg.Lag())
	if err != nil {
		return nil, fmt.Errorf("vol window end: %w", err)
	}

	out := make([]*timeseries.Series, len(s.cfg.Underlyings))
	for i, u := range s.cfg.Underlyings {
		prices, err := s.Series(u, start, end, s.cfg.FieldOf(u))
		if err != nil {
			return nil, err
		}
		out[i] = prices.SimpleReturns()
	}
	return out, nil
}

// AssetVol returns the annualised volatility of each underlying
func (s *SpreadIndex) AssetVol(date time.Time) ([]float64, error) {
	return s.Memo(SignalAssetVol, date, func() (state.Value, error) {
		returns, err := s.windowReturns(date)
		if err != nil {
			return nil, err
		}

		vols := make(state.Value, len(returns))
		for i, r := range returns {
			if r.Len() < 2 {
				return nil, fmt.Errorf("%w: %s has %d returns", ErrInsufficientHistory, s.cfg.Underlyings[i], r.Len())
			}
			vols[i] = math.Sqrt(tradingDaysPerYear) * sampleStdev(r.Values())
		}
		return vols, nil
	})
}

// AssetCorrelation returns the correlation of the two underlyings' returns
func (s *SpreadIndex) AssetCorrelation(date time.Time) (float64, error) {
	v, err := s.Memo(SignalAssetCorrelation, date, func() (state.Value, error) {
		returns, err := s.windowReturns(date)
		if err != nil {
			return nil, err
		}
		xs, ys := timeseries.Align(returns[0], returns[1])
		if len(xs) < 2 {
			return nil, fmt.Errorf("%w: %d common returns", ErrInsufficientHistory, len(xs))
		}
		return state.Scalar(pearson(xs, ys)), nil
	})
	if err != nil {
		return 0, err
	}
	return v.Float(), nil
}

// AssetReturn returns each underlying's one-step return into date
func (s *SpreadIndex) AssetReturn(date time.Time) ([]float64, error) {
	return s.Memo(SignalAssetReturn, date, func() (state.Value, error) {
		prevT, err := s.prev(date)
		if err != nil {
			return nil, err
		}

		returns := make(state.Value, len(s.cfg.Underlyings))
		for i, u := range s.cfg.Underlyings {
			levelT, err := s.level(u, date)
			if err != nil {
				return nil, err
			}
			levelPrevT, err := s.level(u, prevT)
			if err != nil {
				return nil, err
			}
			returns[i] = levelT/levelPrevT - 1
		}
		return returns, nil
	})
}

// TargetLeverage returns the unclamped leverage of each underlying.
// Zero on the base date.
func (s *SpreadIndex) TargetLeverage(date time.Time) ([]float64, error) {
	return s.Memo(SignalTargetLeverage, date, func() (state.Value, error) {
		if s.isBase(date) {
			return state.Vector(0, 0), nil
		}

		r, err := s.AssetReturn(date)
		if err != nil {
			return nil, err
		}
		rho, err := s.AssetCorrelation(date)
		if err != nil {
			return nil, err
		}
		vol, err := s.AssetVol(date)
		if err != nil {
			return nil, err
		}

		dl := s.cfg.DailyLeverage
		l1 := dl * (rho*ratio(vol[1], vol[0])*r[0] - r[1])
		l2 := dl * (rho*ratio(vol[0], vol[1])*r[1] - r[0])
		return state.Vector(l1, l2), nil
	})
}

// TargetUnits returns the units of each underlying held from the next date.
// Zero on the base date. A position sized on the trading day before a
// non-trading base date is computed from its own history.
func (s *SpreadIndex) TargetUnits(date time.Time) ([]float64, error) {
	return s.Memo(SignalTargetUnits, date, func() (state.Value, error) {
		if s.isBase(date) {
			return state.Vector(0, 0), nil
		}

		prevT, err := s.prev(date)
		if err != nil {
			return nil, err
		}
		levelPrevT, err := s.IndexLevel(prevT)
		if err != nil {
			return nil, err
		}
		leverage, err := s.TargetLeverage(date)
		if err != nil {
			return nil, err
		}

		units := make(state.Value, len(s.cfg.Underlyings))
		for i, u := range s.cfg.Underlyings {
			price, err := s.level(u, date)
			if err != nil {
				return nil, err
			}
			units[i] = levelPrevT * clamp(leverage[i], s.cfg.MaxLeverage) / price
		}
		return units, nil
	})
}

// Fee returns the cost charged on date
func (s *SpreadIndex) Fee(date time.Time) (float64, error) {
	v, err := s.Memo(SignalFee, date, func() (state.Value, error) {
		return state.Scalar(s.cfg.Fee), nil
	})
	if err != nil {
		return 0, err
	}
	return v.Float(), nil
}

// IndexLevel returns the index level on date
func (s *SpreadIndex) IndexLevel(date time.Time) (float64, error) {
	v, err := s.Memo(SignalIndexLevel, date, func() (state.Value, error) {
		if s.seed(date) {
			return state.Scalar(s.cfg.InitialIndexLevel), nil
		}

		prevT, err := s.prev(date)
		if err != nil {
			return nil, err
		}
		levelPrevT, err := s.IndexLevel(prevT)
		if err != nil {
			return nil, err
		}
		units, err := s.TargetUnits(prevT)
		if err != nil {
			return nil, err
		}
		fee, err := s.Fee(date)
		if err != nil {
			return nil, err
		}

		pnl := 0.0
		for i, u := range s.cfg.Underlyings {
			levelT, err := s.level(u, date)
			if err != nil {
				return nil, err
			}
			underlyingPrevT, err := s.level(u, prevT)
			if err != nil {
				return nil, err
			}
			pnl += units[i] * (levelT - underlyingPrevT)
		}
		return state.Scalar(levelPrevT + pnl - fee), nil
	})
	if err != nil {
		return 0, err
	}
	return v.Float(), nil
}
