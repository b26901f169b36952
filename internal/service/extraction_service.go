package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pagelens/pagelens-api/internal/cache"
	"github.com/pagelens/pagelens-api/internal/config"
	"github.com/pagelens/pagelens-api/internal/llm"
	"github.com/pagelens/pagelens-api/pkg/models"
	"github.com/pagelens/pagelens-api/internal/schema"
	"github.com/pagelens/pagelens-api/internal/urlutil"
)

// LLMExtractor is the slice of the LLM client the extraction service needs.
type LLMExtractor interface {
	ExtractWebContent(ctx context.Context, url, promptText string) (*schema.Fields, error)
	Model() string
	Configured() bool
}

// ExtractInput represents a metadata extraction request.
type ExtractInput struct {
	URL          string
	ForceRefresh bool
}

// ExtractionService turns URLs into cached, validated ExtractedContent.
type ExtractionService struct {
	cfg    *config.Config
	llm    LLMExtractor
	cache  cache.Store
	logger *slog.Logger
}

// NewExtractionService creates a new extraction service.
func NewExtractionService(cfg *config.Config, extractor LLMExtractor, store cache.Store, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{
		cfg:    cfg,
		llm:    extractor,
		cache:  store,
		logger: logger,
	}
}

// Extract resolves input.URL to an ExtractedContent, serving from cache when
// a fresh entry exists and input.ForceRefresh is false. Failures are returned
// as *ServiceError so the transport layer can map them to HTTP responses.
func (s *ExtractionService) Extract(ctx context.Context, input ExtractInput) (*models.ExtractedContent, error) {
	extractionID := ulid.Make().String()
	startTime := time.Now()

	if !s.llm.Configured() {
		return nil, &ServiceError{
			Status:    http.StatusServiceUnavailable,
			Message:   "OpenAI API key not configured",
			Retryable: false,
		}
	}

	if err := validateURL(input.URL); err != nil {
		return nil, err
	}

	key := urlutil.CacheKey(input.URL)

	if !input.ForceRefresh {
		if content, ok := s.cacheGet(ctx, key); ok {
			s.logger.Debug("extraction cache hit",
				"extraction_id", extractionID,
				"cache_key", key,
			)
			return content, nil
		}
	}

	s.logger.Info("starting extraction",
		"extraction_id", extractionID,
		"url", input.URL,
		"force_refresh", input.ForceRefresh,
		"model", s.llm.Model(),
	)

	fields, err := s.llm.ExtractWebContent(ctx, urlutil.Normalize(input.URL), buildExtractionPrompt())
	if err != nil {
		s.logger.Warn("extraction failed",
			"extraction_id", extractionID,
			"url", input.URL,
			"duration_ms", time.Since(startTime).Milliseconds(),
			"error", err,
		)
		return nil, mapLLMError(err)
	}

	content := s.buildContent(fields)

	s.cacheSet(ctx, key, content)

	s.logger.Info("extraction completed",
		"extraction_id", extractionID,
		"url", input.URL,
		"duration_ms", time.Since(startTime).Milliseconds(),
		"title", content.Title,
	)

	return content, nil
}

// validateURL enforces the request contract before any cache or LLM work.
func validateURL(rawURL string) *ServiceError {
	if rawURL == "" || len(rawURL) > urlutil.MaxURLLength || !urlutil.IsValidURL(rawURL) {
		return &ServiceError{
			Status:    http.StatusBadRequest,
			Message:   "Invalid URL",
			Retryable: false,
		}
	}
	return nil
}

// cacheGet returns a decoded cache entry. Entries that fail to decode are
// treated as misses and evicted, so a schema change never wedges a key.
func (s *ExtractionService) cacheGet(ctx context.Context, key string) (*models.ExtractedContent, bool) {
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}

	var content models.ExtractedContent
	if err := json.Unmarshal(data, &content); err != nil {
		s.logger.Warn("evicting undecodable cache entry", "cache_key", key, "error", err)
		s.cache.Delete(ctx, key)
		return nil, false
	}
	return &content, true
}

func (s *ExtractionService) cacheSet(ctx context.Context, key string, content *models.ExtractedContent) {
	data, err := json.Marshal(content)
	if err != nil {
		s.logger.Warn("failed to encode cache entry", "cache_key", key, "error", err)
		return
	}
	s.cache.Set(ctx, key, data, s.cfg.ExtractionCacheTTL)
}

// buildContent maps validated LLM fields to the response shape, stamping
// extraction metadata.
func (s *ExtractionService) buildContent(fields *schema.Fields) *models.ExtractedContent {
	return &models.ExtractedContent{
		Title:             fields.Title,
		Author:            fields.Author,
		Description:       fields.Description,
		ImageURL:          fields.ImageURL,
		SuggestedCategory: fields.SuggestedCategory,
		Tags:              fields.Tags,
		PublicationDate:   fields.PublicationDate,
		ContentType:       fields.ContentType,
		Metadata: models.ExtractionMetadata{
			Confidence:  DefaultConfidence,
			ExtractedAt: time.Now().UTC(),
			LLMModel:    s.llm.Model(),
			Version:     PromptVersion,
		},
	}
}

// mapLLMError translates LLM client and validation failures into the
// ServiceError taxonomy the transport layer serializes.
func mapLLMError(err error) *ServiceError {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return &ServiceError{
			Status:    http.StatusUnprocessableEntity,
			Message:   fmt.Sprintf("Extraction failed: %s", verr.Error()),
			Retryable: false,
			cause:     err,
		}
	}

	if errors.Is(err, llm.ErrNoToolCall) || errors.Is(err, llm.ErrInvalidResponse) {
		return &ServiceError{
			Status:    http.StatusUnprocessableEntity,
			Message:   "Extraction failed: the model returned no usable metadata",
			Retryable: false,
			cause:     err,
		}
	}

	if errors.Is(err, llm.ErrNotConfigured) {
		return &ServiceError{
			Status:    http.StatusServiceUnavailable,
			Message:   "OpenAI API key not configured",
			Retryable: false,
			cause:     err,
		}
	}

	if llm.IsRateLimited(err) {
		return &ServiceError{
			Status:    http.StatusTooManyRequests,
			Message:   "The LLM provider rate limited this request. Please retry shortly.",
			Retryable: true,
			cause:     err,
		}
	}

	var lerr *llm.Error
	if errors.As(err, &lerr) {
		switch lerr.Category {
		case "timeout":
			return &ServiceError{
				Status:    http.StatusGatewayTimeout,
				Message:   "The LLM provider timed out",
				Retryable: true,
				cause:     err,
			}
		case "canceled":
			return &ServiceError{
				Status:    499, // client closed request
				Message:   "Request canceled",
				Retryable: false,
				cause:     err,
			}
		case "network", "provider_unavailable":
			return &ServiceError{
				Status:    http.StatusBadGateway,
				Message:   "The LLM provider is unreachable. Please try again.",
				Retryable: true,
				cause:     err,
			}
		default:
			// Provider-side auth and quota problems are a server
			// misconfiguration from the caller's point of view.
			return &ServiceError{
				Status:    http.StatusBadGateway,
				Message:   "The LLM provider returned an error",
				Retryable: lerr.Retryable,
				cause:     err,
			}
		}
	}

	return &ServiceError{
		Status:    http.StatusInternalServerError,
		Message:   "Extraction failed",
		Retryable: true,
		cause:     err,
	}
}
