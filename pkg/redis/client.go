package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/spreadindex/pkg/config"
)

const connectTimeout = 3 * time.Second

// Client is the optional bar cache connection in front of the market data
// loaders. A client without a connection is disabled: Cache turns every
// call into a miss and the index reads straight from CSV or Postgres.
//
// ⭐ SSOT: Redis connections are created only in this package
type Client struct {
	rdb *redis.Client
}

// New connects when REDIS_ENABLED is set and returns a disabled client
// otherwise. An unreachable server is an error rather than a silent
// fallback, so a misconfigured cache shows up at startup.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{}, nil
	}

	rdb := redis.NewClient(options(cfg.Redis))

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", rdb.Options().Addr, err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromRedis wraps an existing connection; nil yields a disabled client
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: connectTimeout,
	}
}

// Close releases the connection, if any
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Enabled reports whether bars are cached
func (c *Client) Enabled() bool {
	return c.rdb != nil
}

// Redis exposes the connection to Cache
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
