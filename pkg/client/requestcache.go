package client

import (
	"context"
	"sync"
	"time"

	"github.com/pagelens/pagelens-api/pkg/models"
)

const (
	// DefaultRequestCacheTTL is how long a completed extraction stays
	// shareable between callers.
	DefaultRequestCacheTTL = 5 * time.Minute

	sweepInterval = time.Minute
)

// call is a shared in-flight or completed extraction. Waiters block on done;
// after it closes the result fields are immutable.
type call struct {
	done      chan struct{}
	content   *models.ExtractedContent
	err       error
	expiresAt time.Time
}

func (c *call) expired(now time.Time) bool {
	select {
	case <-c.done:
		return now.After(c.expiresAt)
	default:
		// In-flight calls never expire; completion stamps expiresAt.
		return false
	}
}

// RequestCache de-duplicates extraction requests by URL. Concurrent callers
// for the same key share one underlying request, and completed results are
// served for DefaultRequestCacheTTL without a network round trip.
type RequestCache struct {
	mu       sync.Mutex
	calls    map[string]*call
	ttl      time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRequestCache creates a request cache and starts its sweep goroutine.
func NewRequestCache(ttl time.Duration) *RequestCache {
	if ttl <= 0 {
		ttl = DefaultRequestCacheTTL
	}

	rc := &RequestCache{
		calls: make(map[string]*call),
		ttl:   ttl,
		stopCh: make(chan struct{}),
	}

	go rc.sweepLoop()

	return rc
}

// Do returns the result for key, either by joining an in-flight call, reading
// a completed one, or running fn. The entry is published before fn runs so
// concurrent callers join rather than duplicate the request. Failed calls
// stay in the cache; callers decide whether to Delete and retry.
func (rc *RequestCache) Do(ctx context.Context, key string, fn func() (*models.ExtractedContent, error)) (*models.ExtractedContent, error) {
	rc.mu.Lock()
	if c, ok := rc.calls[key]; ok && !c.expired(time.Now()) {
		rc.mu.Unlock()
		select {
		case <-c.done:
			return c.content, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c := &call{done: make(chan struct{})}
	rc.calls[key] = c
	rc.mu.Unlock()

	c.content, c.err = fn()
	c.expiresAt = time.Now().Add(rc.ttl)
	close(c.done)

	return c.content, c.err
}

// Delete removes key so the next Do runs a fresh request.
func (rc *RequestCache) Delete(key string) {
	rc.mu.Lock()
	delete(rc.calls, key)
	rc.mu.Unlock()
}

// Len returns the number of cached entries, in-flight ones included.
func (rc *RequestCache) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.calls)
}

// Stop shuts down the sweep goroutine.
func (rc *RequestCache) Stop() {
	rc.stopOnce.Do(func() {
		close(rc.stopCh)
	})
}

func (rc *RequestCache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rc.stopCh:
			return
		case <-ticker.C:
			rc.sweep()
		}
	}
}

func (rc *RequestCache) sweep() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	now := time.Now()
	for key, c := range rc.calls {
		if c.expired(now) {
			delete(rc.calls, key)
		}
	}
}
