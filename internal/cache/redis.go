// Package cache remembers extracted listing records between runs so a
// repeated search can skip pages it has already visited recently.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

// RecordCache stores records keyed by listing URL.
type RecordCache interface {
	// Get returns types.ErrCacheMiss when url has no live entry.
	Get(ctx context.Context, url string) (*types.Record, error)
	Set(ctx context.Context, rec *types.Record) error
	Close() error
}

// New returns a RedisCache when caching is enabled and a NopCache otherwise.
func New(cfg *config.CacheConfig, logger *slog.Logger) RecordCache {
	if !cfg.Enabled {
		return NopCache{}
	}
	return NewRedisCache(cfg.Addr, cfg.Prefix, cfg.TTL, logger)
}

// RedisCache stores records as JSON strings with a TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache initializes a Redis-backed RecordCache.
func NewRedisCache(addr, prefix string, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:        addr,
			DialTimeout: 2 * time.Second,
			MaxRetries:  1,
		}),
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With("component", "redis_cache"),
	}
}

// Key returns the Redis key for a listing URL.
func (c *RedisCache) Key(url string) string { return c.prefix + url }

// Ping checks the server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get reads a cached record.
func (c *RedisCache) Get(ctx context.Context, url string) (*types.Record, error) {
	val, err := c.client.Get(ctx, c.Key(url)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, types.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec types.Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("decode cached record: %w", err)
	}
	return &rec, nil
}

// Set writes rec under its source URL.
func (c *RedisCache) Set(ctx context.Context, rec *types.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.Key(rec.SourceURL), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NopCache never hits and discards writes.
type NopCache struct{}

func (NopCache) Get(ctx context.Context, url string) (*types.Record, error) {
	return nil, types.ErrCacheMiss
}
func (NopCache) Set(ctx context.Context, rec *types.Record) error { return nil }
func (NopCache) Close() error                                     { return nil }
