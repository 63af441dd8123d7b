// Package redis connects the optional Redis status cache backend.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"semaforo/internal/platform/config"
)

// Client is a connected go-redis client. It satisfies redis.Cmdable, which is
// all the status cache needs.
type Client struct {
	*redis.Client
}

// New dials Redis and pings it once. An empty URL means the backend is not
// configured and yields (nil, nil).
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	applyOverrides(opts, cfg)

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return &Client{Client: client}, nil
}

// applyOverrides copies the positive settings from cfg onto opts; zero keeps
// whatever the URL or go-redis defaults chose.
func applyOverrides(opts *redis.Options, cfg config.RedisConfig) {
	setInt := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	setInt(&opts.PoolSize, cfg.PoolSize)
	setInt(&opts.MinIdleConns, cfg.MinIdleConns)
	for dst, v := range map[*time.Duration]time.Duration{
		&opts.DialTimeout:  cfg.DialTimeout,
		&opts.ReadTimeout:  cfg.ReadTimeout,
		&opts.WriteTimeout: cfg.WriteTimeout,
	} {
		if v > 0 {
			*dst = v
		}
	}
}

// Health backs the /readyz check for the cache backend.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
