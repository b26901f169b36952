package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
`

// SQLite is a Store backed by a local libsql database, for deployments that
// want the cache to survive restarts without running Redis. Expired rows are
// filtered on read and purged periodically.
type SQLite struct {
	db       *sql.DB
	logger   *slog.Logger
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewSQLite opens (or creates) the cache database at dsn and starts the
// purge goroutine.
func NewSQLite(dsn string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	s := &SQLite{
		db:     db,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	go s.purgeLoop()

	return s, nil
}

// Get returns the cached value for key. Backend errors are logged and
// reported as misses.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE key = ? AND expires_at > ?`,
		key, time.Now().Unix(),
	).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("sqlite cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

// Set upserts value under key for ttl. Failures are logged and swallowed.
func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	expiresAt := time.Now().Add(effectiveTTL(ttl)).Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		s.logger.Warn("sqlite cache set failed", "key", key, "error", err)
	}
}

// Delete removes key. Failures are logged and swallowed.
func (s *SQLite) Delete(ctx context.Context, key string) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		s.logger.Warn("sqlite cache delete failed", "key", key, "error", err)
	}
}

// Close stops the purge goroutine and closes the database.
func (s *SQLite) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	return s.db.Close()
}

func (s *SQLite) purgeLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.purge()
		}
	}
}

func (s *SQLite) purge() {
	res, err := s.db.Exec(`DELETE FROM cache_entries WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		s.logger.Warn("sqlite cache purge failed", "error", err)
		return
	}
	if purged, err := res.RowsAffected(); err == nil && purged > 0 {
		s.logger.Debug("purged expired cache entries", "purged_count", purged)
	}
}
