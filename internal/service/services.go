// Package service contains the business logic layer.
package service

import (
	"log/slog"

	"github.com/pagelens/pagelens-api/internal/cache"
	"github.com/pagelens/pagelens-api/internal/config"
	"github.com/pagelens/pagelens-api/internal/llm"
)

// Services holds all service instances.
type Services struct {
	Extraction *ExtractionService

	cache cache.Store
}

// NewServices creates all service instances.
func NewServices(cfg *config.Config, store cache.Store, logger *slog.Logger) *Services {
	llmClient := llm.New(llm.Config{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.LLMModel,
		BaseURL:     cfg.LLMBaseURL,
		Temperature: &cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	}, logger)

	if !llmClient.Configured() {
		logger.Warn("no OpenAI API key configured - extraction requests will return 503")
	}

	return &Services{
		Extraction: NewExtractionService(cfg, llmClient, store, logger),
		cache:      store,
	}
}

// Shutdown releases resources held by the services.
func (s *Services) Shutdown() error {
	return s.cache.Close()
}
