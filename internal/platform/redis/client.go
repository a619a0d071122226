// Package redis dials the Redis instance backing the reference-data cache.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"credentia/internal/platform/config"
)

// Client carries the shared go-redis connection pool.
type Client struct {
	*redis.Client
}

// New dials Redis using cfg and verifies the connection with a ping. An
// empty URL means the deployment runs without a cache; callers get a nil
// client and fall back to the database.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health reports whether Redis still answers.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.Client.Close()
}
