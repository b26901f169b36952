// Package mw provides HTTP middleware for the PageLens API.
package mw

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds configuration for the extraction route limiter.
type RateLimitConfig struct {
	// Requests allowed per Window per caller.
	Requests int
	Window   time.Duration
}

// RateLimitByCaller returns a middleware that rate limits per caller on the
// extraction route. Callers presenting a bearer token are keyed by token so
// clients behind a shared NAT don't consume each other's budget; anonymous
// callers fall back to IP.
func RateLimitByCaller(cfg RateLimitConfig) func(http.Handler) http.Handler {
	limiter := httprate.NewRateLimiter(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if token := bearerToken(r); token != "" {
				return "token:" + token, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(rateLimitExceeded(cfg.Window)),
	)

	return limiter.Handler
}

// RateLimitByIP returns a middleware that rate limits by IP address.
// Useful as a coarse global fallback across all endpoints.
func RateLimitByIP(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}

// rateLimitExceeded writes the 429 body in the same envelope-free error shape
// the extraction handler uses, including a retryable hint.
func rateLimitExceeded(window time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if w.Header().Get("Retry-After") == "" {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"title":"Too Many Requests","detail":"Rate limit exceeded. Please wait before retrying.","retryable":true}`))
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
