// Package cache stores rendered JSON responses for the read endpoints.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"camtrap/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores response bodies under keys derived from the request
type Cache interface {
	// Key returns the cache key for a request in the current generation
	Key(ctx context.Context, path string, query url.Values) (string, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
	// Invalidate makes every existing key unreachable
	Invalidate(ctx context.Context) error
}

// Key builds a cache key. url.Values.Encode sorts by parameter name, so
// the same query in any order maps to the same key.
func Key(prefix string, generation int64, path string, query url.Values) string {
	k := prefix + ":v" + strconv.FormatInt(generation, 10) + ":" + path
	if q := query.Encode(); q != "" {
		k += "?" + q
	}
	return k
}

// Redis is a Cache backed by a Redis server. Invalidation bumps a
// generation counter that is part of every key; old entries expire by TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedis connects to Redis and verifies the connection
func NewRedis(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	logger.Info("response cache enabled", zap.String("addr", cfg.Addr), zap.Duration("ttl", ttl))
	return &Redis{client: client, prefix: cfg.Prefix, ttl: ttl, log: logger}, nil
}

func (r *Redis) generationKey() string {
	return r.prefix + ":generation"
}

func (r *Redis) Key(ctx context.Context, path string, query url.Values) (string, error) {
	gen, err := r.client.Get(ctx, r.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to read cache generation: %w", err)
	}
	return Key(r.prefix, gen, path, query), nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}
	return body, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, body []byte) error {
	if err := r.client.Set(ctx, key, body, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context) error {
	gen, err := r.client.Incr(ctx, r.generationKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to bump cache generation: %w", err)
	}
	r.log.Debug("response cache invalidated", zap.Int64("generation", gen))
	return nil
}

// Close releases the Redis connection pool
func (r *Redis) Close() error {
	return r.client.Close()
}

// Nop is a Cache that never stores anything
type Nop struct{}

func (Nop) Key(context.Context, string, url.Values) (string, error) { return "", nil }
func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte) error { return nil }
func (Nop) Invalidate(context.Context) error { return nil }
