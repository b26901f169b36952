package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// ========================================
// Timeout Tests
// ========================================

func TestTimeout_FastRequestPasses(t *testing.T) {
	handler := Timeout(TimeoutConfig{
		Default:  100 * time.Millisecond,
		Extended: time.Second,
	})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestTimeout_SlowRequestTimesOut(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
			w.WriteHeader(http.StatusOK)
		}
	})

	handler := Timeout(TimeoutConfig{
		Default:  20 * time.Millisecond,
		Extended: time.Second,
	})(slow)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
}

func TestTimeout_ExtendedPatternGetsLongerDeadline(t *testing.T) {
	var deadlineIn time.Duration
	probe := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if deadline, ok := r.Context().Deadline(); ok {
			deadlineIn = time.Until(deadline)
		}
		w.WriteHeader(http.StatusOK)
	})

	handler := Timeout(TimeoutConfig{
		Default:          50 * time.Millisecond,
		Extended:         10 * time.Second,
		ExtendedPatterns: []string{"/extract-metadata"},
	})(probe)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/library/extract-metadata", nil))
	if deadlineIn < time.Second {
		t.Errorf("deadline = %v, want the extended timeout", deadlineIn)
	}
}

// ========================================
// Cache Tests
// ========================================

func TestCache_PolicyMatch(t *testing.T) {
	handler := Cache(DefaultCacheConfig())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=30" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestCache_PostIsNeverCached(t *testing.T) {
	handler := Cache(DefaultCacheConfig())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/library/extract-metadata", nil))
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestCache_DefaultPolicy(t *testing.T) {
	handler := Cache(DefaultCacheConfig())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unmatched", nil))
	if got := rec.Header().Get("Cache-Control"); got != "private, no-cache" {
		t.Errorf("Cache-Control = %q, want default policy", got)
	}
}
