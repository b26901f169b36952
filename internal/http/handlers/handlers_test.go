package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pagelens/pagelens-api/internal/cache"
	"github.com/pagelens/pagelens-api/internal/config"
	"github.com/pagelens/pagelens-api/internal/llm"
	"github.com/pagelens/pagelens-api/internal/service"
)

// fakeProvider runs an OpenAI-compatible completions endpoint returning a
// fixed tool call, counting the requests it serves.
type fakeProvider struct {
	srv   *httptest.Server
	calls atomic.Int64
}

func newFakeProvider(t *testing.T, args map[string]any, status int) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		argsJSON, _ := json.Marshal(args)
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"tool_calls": []map[string]any{
						{"function": map[string]any{
							"name":      "extract_content",
							"arguments": string(argsJSON),
						}},
					},
				}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func newHandler(t *testing.T, provider *fakeProvider) *ExtractionHandler {
	t.Helper()
	cfg := &config.Config{ExtractionCacheTTL: time.Hour}
	store := cache.NewMemory(nil)
	t.Cleanup(func() { _ = store.Close() })

	client := llm.New(llm.Config{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: provider.srv.URL,
	}, nil)

	svc := service.NewExtractionService(cfg, client, store, nil)
	return NewExtractionHandler(svc)
}

func extractReq(url string, force bool) *ExtractMetadataInput {
	input := &ExtractMetadataInput{}
	input.Body.URL = url
	input.Body.ForceRefresh = force
	return input
}

// ========================================
// ExtractMetadata Tests
// ========================================

func TestExtractMetadata_Success(t *testing.T) {
	provider := newFakeProvider(t, map[string]any{
		"title":             "Go Blog",
		"author":            "The Go Team",
		"suggestedCategory": "article",
	}, http.StatusOK)
	handler := newHandler(t, provider)

	out, err := handler.ExtractMetadata(context.Background(), extractReq("https://go.dev/blog/", false))
	if err != nil {
		t.Fatalf("ExtractMetadata() error: %v", err)
	}
	if !out.Body.Success {
		t.Error("Success = false, want true")
	}
	if out.Body.Data.Title != "Go Blog" {
		t.Errorf("Title = %q", out.Body.Data.Title)
	}
	if out.Body.Data.Metadata.LLMModel != "gpt-4o-mini" {
		t.Errorf("LLMModel = %q", out.Body.Data.Metadata.LLMModel)
	}
	if out.Body.Data.Metadata.Version != service.PromptVersion {
		t.Errorf("Metadata.Version = %q, want %q", out.Body.Data.Metadata.Version, service.PromptVersion)
	}
}

func TestExtractMetadata_EquivalentURLsShareCacheEntry(t *testing.T) {
	provider := newFakeProvider(t, map[string]any{"title": "Article"}, http.StatusOK)
	handler := newHandler(t, provider)
	ctx := context.Background()

	if _, err := handler.ExtractMetadata(ctx, extractReq("https://example.com/article/?b=2&a=1", false)); err != nil {
		t.Fatalf("first request error: %v", err)
	}
	if _, err := handler.ExtractMetadata(ctx, extractReq("https://example.com/article?a=1&b=2", false)); err != nil {
		t.Fatalf("second request error: %v", err)
	}

	if got := provider.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1 (second request should hit cache)", got)
	}
}

func TestExtractMetadata_ForceRefreshSkipsCache(t *testing.T) {
	provider := newFakeProvider(t, map[string]any{"title": "Article"}, http.StatusOK)
	handler := newHandler(t, provider)
	ctx := context.Background()

	if _, err := handler.ExtractMetadata(ctx, extractReq("https://example.com", false)); err != nil {
		t.Fatalf("first request error: %v", err)
	}
	if _, err := handler.ExtractMetadata(ctx, extractReq("https://example.com", true)); err != nil {
		t.Fatalf("forced request error: %v", err)
	}

	if got := provider.calls.Load(); got != 2 {
		t.Errorf("provider calls = %d, want 2", got)
	}
}

func TestExtractMetadata_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"not a URL", "not-a-valid-url"},
		{"empty", ""},
		{"over length limit", "https://example.com/" + strings.Repeat("a", 2100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider(t, map[string]any{"title": "T"}, http.StatusOK)
			handler := newHandler(t, provider)

			_, err := handler.ExtractMetadata(context.Background(), extractReq(tt.url, false))
			if err == nil {
				t.Fatal("expected error")
			}
			herr, ok := err.(*ExtractionError)
			if !ok {
				t.Fatalf("error = %T, want *ExtractionError", err)
			}
			if herr.GetStatus() != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", herr.GetStatus())
			}
			if herr.Detail != "Invalid URL" {
				t.Errorf("Detail = %q, want Invalid URL", herr.Detail)
			}
			if provider.calls.Load() != 0 {
				t.Error("provider should never be called for invalid URLs")
			}
		})
	}
}

func TestExtractMetadata_MissingTitleIs422(t *testing.T) {
	provider := newFakeProvider(t, map[string]any{"author": "Anonymous"}, http.StatusOK)
	handler := newHandler(t, provider)

	_, err := handler.ExtractMetadata(context.Background(), extractReq("https://example.com", false))
	herr, ok := err.(*ExtractionError)
	if !ok {
		t.Fatalf("error = %T, want *ExtractionError", err)
	}
	if herr.GetStatus() != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", herr.GetStatus())
	}
	if herr.Retryable {
		t.Error("validation failures should not be retryable")
	}
}

func TestExtractMetadata_ProviderRateLimitIs429(t *testing.T) {
	provider := newFakeProvider(t, nil, http.StatusTooManyRequests)
	handler := newHandler(t, provider)

	_, err := handler.ExtractMetadata(context.Background(), extractReq("https://example.com", false))
	herr, ok := err.(*ExtractionError)
	if !ok {
		t.Fatalf("error = %T, want *ExtractionError", err)
	}
	if herr.GetStatus() != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", herr.GetStatus())
	}
	if !herr.Retryable {
		t.Error("rate limit errors should be retryable")
	}
}

func TestExtractMetadata_NoAPIKeyIs503(t *testing.T) {
	cfg := &config.Config{ExtractionCacheTTL: time.Hour}
	store := cache.NewMemory(nil)
	t.Cleanup(func() { _ = store.Close() })
	client := llm.New(llm.Config{Model: "gpt-4o-mini"}, nil)
	handler := NewExtractionHandler(service.NewExtractionService(cfg, client, store, nil))

	_, err := handler.ExtractMetadata(context.Background(), extractReq("https://example.com", false))
	herr, ok := err.(*ExtractionError)
	if !ok {
		t.Fatalf("error = %T, want *ExtractionError", err)
	}
	if herr.GetStatus() != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", herr.GetStatus())
	}
	if herr.Detail != "OpenAI API key not configured" {
		t.Errorf("Detail = %q", herr.Detail)
	}
}

// ========================================
// Probe Tests
// ========================================

func TestHealthCheck(t *testing.T) {
	out, err := HealthCheck(context.Background(), nil)
	if err != nil {
		t.Fatalf("HealthCheck() error: %v", err)
	}
	if out.Body.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", out.Body.Status)
	}
	if out.Body.Version == "" {
		t.Error("Version should be set")
	}
}

func TestLivez(t *testing.T) {
	out, err := Livez(context.Background(), nil)
	if err != nil {
		t.Fatalf("Livez() error: %v", err)
	}
	if out.Body.Status != "ok" {
		t.Errorf("Status = %q, want ok", out.Body.Status)
	}
}
