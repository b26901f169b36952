package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pagelens/pagelens-api/internal/cache"
	"github.com/pagelens/pagelens-api/internal/config"
	"github.com/pagelens/pagelens-api/internal/llm"
	"github.com/pagelens/pagelens-api/internal/schema"
	"github.com/pagelens/pagelens-api/internal/urlutil"
)

type mockLLM struct {
	calls      int
	lastURL    string
	fields     *schema.Fields
	err        error
	configured bool
}

func (m *mockLLM) ExtractWebContent(_ context.Context, url, _ string) (*schema.Fields, error) {
	m.calls++
	m.lastURL = url
	if m.err != nil {
		return nil, m.err
	}
	return m.fields, nil
}

func (m *mockLLM) Model() string    { return "gpt-4o-mini" }
func (m *mockLLM) Configured() bool { return m.configured }

func newTestService(t *testing.T, mock *mockLLM) (*ExtractionService, *cache.Memory) {
	t.Helper()
	store := cache.NewMemory(nil)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{ExtractionCacheTTL: time.Hour}
	return NewExtractionService(cfg, mock, store, nil), store
}

func wantServiceError(t *testing.T, err error, status int) *ServiceError {
	t.Helper()
	var serr *ServiceError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want *ServiceError", err)
	}
	if serr.Status != status {
		t.Fatalf("Status = %d, want %d (message %q)", serr.Status, status, serr.Message)
	}
	return serr
}

// ========================================
// Validation Tests
// ========================================

func TestExtract_NotConfigured(t *testing.T) {
	mock := &mockLLM{configured: false}
	svc, _ := newTestService(t, mock)

	_, err := svc.Extract(context.Background(), ExtractInput{URL: "https://example.com"})
	serr := wantServiceError(t, err, http.StatusServiceUnavailable)
	if serr.Message != "OpenAI API key not configured" {
		t.Errorf("Message = %q", serr.Message)
	}
	if mock.calls != 0 {
		t.Errorf("LLM called %d times, want 0", mock.calls)
	}
}

func TestExtract_InvalidURL(t *testing.T) {
	mock := &mockLLM{configured: true}
	svc, _ := newTestService(t, mock)

	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"no scheme", "example.com/page"},
		{"ftp scheme", "ftp://example.com/file"},
		{"too long", "https://example.com/" + strings.Repeat("a", urlutil.MaxURLLength)},
		{"not a url", "not-a-valid-url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Extract(context.Background(), ExtractInput{URL: tt.url})
			serr := wantServiceError(t, err, http.StatusBadRequest)
			if serr.Message != "Invalid URL" {
				t.Errorf("Message = %q, want Invalid URL", serr.Message)
			}
		})
	}

	if mock.calls != 0 {
		t.Errorf("LLM called %d times for invalid URLs, want 0", mock.calls)
	}
}

// ========================================
// Extraction and Caching Tests
// ========================================

func TestExtract_Success(t *testing.T) {
	mock := &mockLLM{
		configured: true,
		fields:     &schema.Fields{Title: "A Title", Author: "An Author"},
	}
	svc, _ := newTestService(t, mock)

	content, err := svc.Extract(context.Background(), ExtractInput{URL: "https://example.com/article"})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if content.Title != "A Title" {
		t.Errorf("Title = %q", content.Title)
	}
	if content.Metadata.Confidence != DefaultConfidence {
		t.Errorf("Confidence = %v, want %v", content.Metadata.Confidence, DefaultConfidence)
	}
	if content.Metadata.LLMModel != "gpt-4o-mini" {
		t.Errorf("LLMModel = %q", content.Metadata.LLMModel)
	}
	if content.Metadata.Version != PromptVersion {
		t.Errorf("Version = %q, want %q", content.Metadata.Version, PromptVersion)
	}
	if content.Metadata.ExtractedAt.IsZero() {
		t.Error("ExtractedAt should be stamped")
	}
}

func TestExtract_CacheHit(t *testing.T) {
	mock := &mockLLM{configured: true, fields: &schema.Fields{Title: "Cached"}}
	svc, _ := newTestService(t, mock)
	ctx := context.Background()

	if _, err := svc.Extract(ctx, ExtractInput{URL: "https://example.com/article/?b=2&a=1"}); err != nil {
		t.Fatalf("first Extract() error: %v", err)
	}

	// An equivalent spelling of the same URL must hit the same cache entry.
	content, err := svc.Extract(ctx, ExtractInput{URL: "https://example.com/article?a=1&b=2"})
	if err != nil {
		t.Fatalf("second Extract() error: %v", err)
	}
	if content.Title != "Cached" {
		t.Errorf("Title = %q", content.Title)
	}
	if mock.calls != 1 {
		t.Errorf("LLM called %d times, want 1", mock.calls)
	}
}

func TestExtract_ForceRefresh(t *testing.T) {
	mock := &mockLLM{configured: true, fields: &schema.Fields{Title: "T"}}
	svc, _ := newTestService(t, mock)
	ctx := context.Background()

	if _, err := svc.Extract(ctx, ExtractInput{URL: "https://example.com"}); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if _, err := svc.Extract(ctx, ExtractInput{URL: "https://example.com", ForceRefresh: true}); err != nil {
		t.Fatalf("Extract() with ForceRefresh error: %v", err)
	}
	if mock.calls != 2 {
		t.Errorf("LLM called %d times, want 2", mock.calls)
	}
}

func TestExtract_NormalizesURLForLLM(t *testing.T) {
	mock := &mockLLM{configured: true, fields: &schema.Fields{Title: "T"}}
	svc, _ := newTestService(t, mock)

	if _, err := svc.Extract(context.Background(), ExtractInput{URL: "https://example.com/page/?b=2&a=1"}); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if mock.lastURL != "https://example.com/page?a=1&b=2" {
		t.Errorf("LLM received %q, want normalized URL", mock.lastURL)
	}
}

func TestExtract_UndecodableCacheEntryEvicted(t *testing.T) {
	mock := &mockLLM{configured: true, fields: &schema.Fields{Title: "Fresh"}}
	svc, store := newTestService(t, mock)
	ctx := context.Background()

	key := urlutil.CacheKey("https://example.com")
	store.Set(ctx, key, []byte("{not json"), time.Hour)

	content, err := svc.Extract(ctx, ExtractInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if content.Title != "Fresh" {
		t.Errorf("Title = %q, want Fresh", content.Title)
	}
	if mock.calls != 1 {
		t.Errorf("LLM called %d times, want 1", mock.calls)
	}
}

// ========================================
// Error Mapping Tests
// ========================================

func TestExtract_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantRetry  bool
	}{
		{
			name:       "validation failure",
			err:        &schema.ValidationError{Fields: []schema.FieldError{{Field: "title", Message: "missing"}}},
			wantStatus: http.StatusUnprocessableEntity,
			wantRetry:  false,
		},
		{
			name:       "no tool call",
			err:        &llm.Error{Err: llm.ErrNoToolCall, Category: "no_tool_call"},
			wantStatus: http.StatusUnprocessableEntity,
			wantRetry:  false,
		},
		{
			name:       "rate limited",
			err:        llm.ClassifyStatus(http.StatusTooManyRequests, "", "m"),
			wantStatus: http.StatusTooManyRequests,
			wantRetry:  true,
		},
		{
			name:       "provider timeout",
			err:        llm.ClassifyTransport(context.DeadlineExceeded, "m"),
			wantStatus: http.StatusGatewayTimeout,
			wantRetry:  true,
		},
		{
			name:       "provider unavailable",
			err:        llm.ClassifyStatus(http.StatusServiceUnavailable, "", "m"),
			wantStatus: http.StatusBadGateway,
			wantRetry:  true,
		},
		{
			name:       "invalid provider key",
			err:        llm.ClassifyStatus(http.StatusUnauthorized, "", "m"),
			wantStatus: http.StatusBadGateway,
			wantRetry:  false,
		},
		{
			name:       "unclassified",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantRetry:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockLLM{configured: true, err: tt.err}
			svc, _ := newTestService(t, mock)

			_, err := svc.Extract(context.Background(), ExtractInput{URL: "https://example.com"})
			serr := wantServiceError(t, err, tt.wantStatus)
			if serr.Retryable != tt.wantRetry {
				t.Errorf("Retryable = %v, want %v", serr.Retryable, tt.wantRetry)
			}
		})
	}
}

func TestExtract_ErrorsAreNotCached(t *testing.T) {
	mock := &mockLLM{configured: true, err: errors.New("boom")}
	svc, _ := newTestService(t, mock)
	ctx := context.Background()

	if _, err := svc.Extract(ctx, ExtractInput{URL: "https://example.com"}); err == nil {
		t.Fatal("expected error")
	}

	mock.err = nil
	mock.fields = &schema.Fields{Title: "Recovered"}
	content, err := svc.Extract(ctx, ExtractInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Extract() after recovery error: %v", err)
	}
	if content.Title != "Recovered" {
		t.Errorf("Title = %q, want Recovered", content.Title)
	}
	if mock.calls != 2 {
		t.Errorf("LLM called %d times, want 2", mock.calls)
	}
}
