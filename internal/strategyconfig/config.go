package strategyconfig

import (
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
)

// Config is the full parameter set of one spread index.
// Read-only once loaded: every signal function reads it, none writes it.
type Config struct {
	Meta              Meta         `yaml:"meta" json:"meta"`
	BaseDate          string       `yaml:"base_date" json:"base_date" validate:"required,datetime=2006-01-02"`
	HistoryStart      string       `yaml:"history_start" json:"history_start" validate:"omitempty,datetime=2006-01-02"`
	Underlyings       []string     `yaml:"underlyings" json:"underlyings" validate:"len=2,unique,dive,required"`
	InitialIndexLevel float64      `yaml:"initial_index_level" json:"initial_index_level" default:"100" validate:"gt=0"`
	CorrelationLag    *int         `yaml:"correlation_lag" json:"correlation_lag" default:"-1" validate:"required,lte=0"`
	VolLookBack       int          `yaml:"vol_look_back" json:"vol_look_back" default:"-252" validate:"lt=0"`
	MaxLeverage       float64      `yaml:"max_leverage" json:"max_leverage" default:"2" validate:"gt=0"`
	DailyLeverage     float64      `yaml:"daily_leverage" json:"daily_leverage"`
	Fee               float64      `yaml:"fee" json:"fee" validate:"gte=0"`
	Observables       []Observable `yaml:"observables" json:"observables" validate:"required,min=1,dive"`
}

// Meta identifies the strategy for provenance
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id" validate:"required"`
	Version    string `yaml:"version" json:"version"`
}

// Observable maps an index-level name to a stored ticker and price field
type Observable struct {
	Name   string `yaml:"name" json:"name" validate:"required"`
	Ticker string `yaml:"ticker" json:"ticker" validate:"required"`
	Field  string `yaml:"field" json:"field" default:"Close" validate:"oneof=Open High Low Close Volume"`
}

// RunSnapshot pins the exact configuration a run was computed with
type RunSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Base returns the parsed base date
func (c *Config) Base() time.Time {
	d, _ := contracts.ParseDay(c.BaseDate)
	return d
}

// HistoryFrom returns the first date to load market data from.
// Defaults to two years of calendar days before the base date.
func (c *Config) HistoryFrom() time.Time {
	if c.HistoryStart != "" {
		if d, err := contracts.ParseDay(c.HistoryStart); err == nil {
			return d
		}
	}
	return c.Base().AddDate(-2, 0, 0)
}

// Lag returns the correlation lag (0 when unset)
func (c *Config) Lag() int {
	if c.CorrelationLag == nil {
		return 0
	}
	return *c.CorrelationLag
}

// Observable returns the declaration for name
func (c *Config) Observable(name string) (Observable, bool) {
	for _, o := range c.Observables {
		if o.Name == name {
			return o, true
		}
	}
	return Observable{}, false
}

// FieldOf returns the price field used for an underlying
func (c *Config) FieldOf(name string) string {
	if o, ok := c.Observable(name); ok {
		return o.Field
	}
	return contracts.FieldClose
}
