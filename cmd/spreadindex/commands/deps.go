package commands

import (
	"context"
	"fmt"

	"github.com/wonny/spreadindex/internal/marketdata"
	"github.com/wonny/spreadindex/internal/perfstats"
	"github.com/wonny/spreadindex/internal/results"
	"github.com/wonny/spreadindex/internal/service"
	"github.com/wonny/spreadindex/pkg/config"
	"github.com/wonny/spreadindex/pkg/database"
	"github.com/wonny/spreadindex/pkg/metrics"
	"github.com/wonny/spreadindex/pkg/redis"
)

// cachePrefix namespaces every Redis key this binary writes
const cachePrefix = "spreadindex"

// deps holds the infrastructure a command wired up
type deps struct {
	db     *database.DB
	redis  *redis.Client
	loader marketdata.BarLoader
	store  service.ResultStore
	rec    *metrics.Recorder
}

// connect wires storage per config. persist forces a result store.
// ⭐ SSOT: infrastructure wiring for every command happens here
func (a *app) connect(ctx context.Context, persist bool) (*deps, error) {
	d := &deps{}
	if a.cfg.MetricsEnabled {
		d.rec = metrics.New()
	}

	if a.cfg.NeedsDatabase() || persist {
		if a.cfg.Database.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required to persist results")
		}
		db, err := database.New(ctx, a.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		d.db = db
		a.log.Info("Connected to database")
	}

	var loader marketdata.BarLoader
	switch a.cfg.DataSource {
	case config.DataSourcePostgres:
		loader = marketdata.NewPostgresLoader(d.db.Pool)
	default:
		loader = marketdata.NewCSVLoader(a.cfg.DataDir)
	}

	client, err := redis.New(ctx, a.cfg)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	d.redis = client
	if client.Enabled() {
		loader = marketdata.NewCachedLoader(loader, redis.NewCache(client, cachePrefix), a.cfg.Redis.TTL, a.log)
		a.log.Info("Market data cache enabled")
	}
	d.loader = loader

	if d.db != nil && (a.cfg.PersistResults || persist) {
		d.store = results.NewRepository(d.db.Pool)
	}

	return d, nil
}

// newService builds the index service on top of the wired deps
func (a *app) newService(d *deps, periods []perfstats.Period) (*service.IndexService, error) {
	return service.New(a.strategy, d.loader, service.Options{
		Periods:      periods,
		Store:        d.store,
		StrategyYAML: a.yaml,
	}, a.log, d.rec)
}

// Close releases every connection
func (d *deps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}
