// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cache backend names accepted by CACHE_BACKEND.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendSQLite = "sqlite"
	CacheBackendNone   = "none"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// CORS
	CORSOrigins []string

	// LLM provider (OpenAI-compatible chat completions API)
	OpenAIAPIKey   string
	LLMModel       string
	LLMBaseURL     string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMTimeout     time.Duration

	// Extraction cache
	CacheBackend       string        // memory, redis, sqlite, or none
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CacheDatabaseURL   string        // libsql DSN for the sqlite backend
	ExtractionCacheTTL time.Duration // Per-entry TTL used by the extraction service

	// Rate limiting
	RateLimitRequests  int           // Requests per window per caller on the extraction route
	RateLimitWindow    time.Duration
	GlobalIPRatePerMin int           // Coarse global fallback by IP
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getEnvInt("PORT", 8080),
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1000),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 30*time.Second),

		CacheBackend:       getEnv("CACHE_BACKEND", CacheBackendMemory),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		CacheDatabaseURL:   getEnv("CACHE_DATABASE_URL", "file:pagelens-cache.db"),
		ExtractionCacheTTL: getEnvDuration("EXTRACTION_CACHE_TTL", time.Hour),

		RateLimitRequests:  getEnvInt("RATE_LIMIT_REQUESTS", 10),
		RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		GlobalIPRatePerMin: getEnvInt("GLOBAL_IP_RATE_PER_MINUTE", 100),
	}

	switch cfg.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendSQLite, CacheBackendNone:
	default:
		return nil, fmt.Errorf("CACHE_BACKEND must be one of memory, redis, sqlite, none (got %q)", cfg.CacheBackend)
	}

	if cfg.CacheBackend == CacheBackendRedis && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required when CACHE_BACKEND=redis")
	}

	if cfg.ExtractionCacheTTL <= 0 {
		return nil, fmt.Errorf("EXTRACTION_CACHE_TTL must be positive")
	}

	if cfg.RateLimitRequests <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("rate limit settings must be positive")
	}

	return cfg, nil
}

// LLMConfigured returns true if an LLM provider credential is available.
// When false, the extraction endpoint degrades to 503 rather than failing at startup.
func (c *Config) LLMConfigured() bool {
	return c.OpenAIAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
