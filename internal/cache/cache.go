// Package cache provides the extraction result cache with pluggable backends.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagelens/pagelens-api/internal/config"
)

const (
	// DefaultTTL is applied when a Set is issued without a positive TTL.
	DefaultTTL = 7 * 24 * time.Hour

	// cleanupInterval is how often expiring backends sweep stale entries.
	cleanupInterval = 10 * time.Minute
)

// Store is a byte-oriented cache with per-entry TTL. Implementations must be
// safe for concurrent use. Get returns ok=false on a miss; backend failures
// on reads are reported as misses so the caller can fall through to the
// source of truth.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

// New builds the Store selected by CACHE_BACKEND.
func New(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.CacheBackend {
	case config.CacheBackendMemory:
		return NewMemory(logger), nil
	case config.CacheBackendRedis:
		return NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	case config.CacheBackendSQLite:
		return NewSQLite(cfg.CacheDatabaseURL, logger)
	case config.CacheBackendNone:
		return NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

func effectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
