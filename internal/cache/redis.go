package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a Redis server. Expiry is delegated to Redis
// via per-key TTLs, so there is no cleanup goroutine.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis creates a Redis-backed Store and verifies connectivity.
func NewRedis(addr, password string, db int, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &Redis{client: client, logger: logger}, nil
}

// Get returns the cached value for key. Backend errors are logged and
// reported as misses.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("redis get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

// Set stores value under key for ttl. Failures are logged and swallowed;
// a broken cache must not fail the request.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, key, value, effectiveTTL(ttl)).Err(); err != nil {
		r.logger.Warn("redis set failed", "key", key, "error", err)
	}
}

// Delete removes key. Failures are logged and swallowed.
func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Warn("redis delete failed", "key", key, "error", err)
	}
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
