package marketdata

import (
	"context"
	"time"

	"github.com/wonny/spreadindex/internal/contracts"
	"github.com/wonny/spreadindex/pkg/logger"
	"github.com/wonny/spreadindex/pkg/redis"
)

// CachedLoader serves bar histories from Redis and falls back to the wrapped loader
type CachedLoader struct {
	inner BarLoader
	cache *redis.Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedLoader wraps inner with cache
func NewCachedLoader(inner BarLoader, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedLoader {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CachedLoader{inner: inner, cache: cache, ttl: ttl, log: log}
}

// LoadBars implements BarLoader
func (l *CachedLoader) LoadBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.Bar, error) {
	key := redis.BarsKey(ticker, from.Format(contracts.DateLayout), to.Format(contracts.DateLayout))

	var cached []contracts.Bar
	found, err := l.cache.Get(ctx, key, &cached)
	if err != nil {
		l.log.WithError(err).WithField("ticker", ticker).Warn("bar cache read failed")
	}
	if found {
		for i := range cached {
			cached[i].Date = contracts.Day(cached[i].Date)
		}
		return cached, nil
	}

	bars, err := l.inner.LoadBars(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}

	// empty results are not cached so freshly imported data shows up
	if len(bars) > 0 {
		if err := l.cache.Set(ctx, key, bars, l.ttl); err != nil {
			l.log.WithError(err).WithField("ticker", ticker).Warn("bar cache write failed")
		}
	}
	return bars, nil
}
