package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Memory is an in-process Store backed by a mutex-guarded map. A background
// goroutine sweeps expired entries so the map doesn't grow unbounded between
// reads.
type Memory struct {
	mu       sync.RWMutex
	entries  map[string]*memoryEntry
	logger   *slog.Logger
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewMemory creates an in-memory Store and starts its cleanup goroutine.
func NewMemory(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Memory{
		entries: make(map[string]*memoryEntry),
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// Get returns the cached value for key, or ok=false on a miss or expiry.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || entry.expired(time.Now()) {
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key for ttl (DefaultTTL when ttl <= 0).
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	m.entries[key] = &memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(effectiveTTL(ttl)),
	}
	m.mu.Unlock()
}

// Delete removes key from the cache.
func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Close stops the cleanup goroutine.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	return nil
}

// Size returns the current number of entries, expired ones included.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *Memory) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	expired := 0
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
			expired++
		}
	}

	if expired > 0 {
		m.logger.Debug("cleaned up expired cache entries",
			"expired_count", expired,
			"remaining_count", len(m.entries),
		)
	}
}
