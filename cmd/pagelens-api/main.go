// Package main is the entry point for the pagelens-api server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pagelens/pagelens-api/internal/cache"
	"github.com/pagelens/pagelens-api/internal/config"
	"github.com/pagelens/pagelens-api/internal/http/handlers"
	"github.com/pagelens/pagelens-api/internal/http/mw"
	"github.com/pagelens/pagelens-api/internal/logging"
	"github.com/pagelens/pagelens-api/internal/service"
	"github.com/pagelens/pagelens-api/internal/version"
)

func main() {
	// Initialize logger with TTY detection, source paths, and format control
	logger := logging.SetDefault()

	// Log version info first thing
	v := version.Get()
	logger.Info("starting pagelens-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize the extraction cache backend
	store, err := cache.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize cache backend", "error", err)
		os.Exit(1)
	}
	logger.Info("extraction cache ready",
		"backend", cfg.CacheBackend,
		"entry_ttl", cfg.ExtractionCacheTTL.String(),
	)

	// Initialize services
	services := service.NewServices(cfg, store, logger)

	// Create router
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// Request timeout middleware with an extended deadline on the LLM route
	router.Use(mw.Timeout(mw.TimeoutConfig{
		Default:          15 * time.Second,
		Extended:         cfg.LLMTimeout + 15*time.Second,
		ExtendedPatterns: []string{"/extract-metadata"},
	}))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit (1MB) - prevent large payload attacks
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	// Cache-Control headers per route
	router.Use(mw.Cache(mw.DefaultCacheConfig()))

	// Global rate limit by IP (coarse fallback across all endpoints)
	router.Use(mw.RateLimitByIP(cfg.GlobalIPRatePerMin))

	// Global concurrency throttle - prevent system overload
	router.Use(middleware.Throttle(100))

	// Create Huma API config with OpenAPI docs
	humaConfig := huma.DefaultConfig("PageLens API", v.Version)
	humaConfig.Info.Description = "LLM-powered metadata extraction API that turns URLs into structured library entries."
	humaConfig.Servers = []*huma.Server{
		{URL: cfg.BaseURL, Description: "API Server"},
	}
	api := humachi.New(router, humaConfig)

	// Config for hidden routes (K8s probes - no docs needed)
	hiddenConfig := huma.DefaultConfig("PageLens API", v.Version)
	hiddenConfig.DocsPath = ""
	hiddenConfig.OpenAPIPath = ""
	hiddenConfig.SchemasPath = ""
	hiddenAPI := humachi.New(router, hiddenConfig)

	// Health check (public, shown in docs)
	huma.Get(api, "/api/health", handlers.HealthCheck)

	// Kubernetes probes (hidden from docs - internal use only)
	huma.Get(hiddenAPI, "/healthz", handlers.Livez)

	// Extraction route with a per-caller rate limit
	router.Group(func(r chi.Router) {
		r.Use(mw.RateLimitByCaller(mw.RateLimitConfig{
			Requests: cfg.RateLimitRequests,
			Window:   cfg.RateLimitWindow,
		}))

		extractConfig := huma.DefaultConfig("PageLens API", v.Version)
		extractConfig.Servers = humaConfig.Servers
		extractConfig.DocsPath = ""
		extractConfig.OpenAPIPath = ""
		extractConfig.SchemasPath = ""
		extractAPI := humachi.New(r, extractConfig)

		huma.Post(extractAPI, "/api/library/extract-metadata",
			handlers.NewExtractionHandler(services.Extraction).ExtractMetadata)
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}

		if err := services.Shutdown(); err != nil {
			logger.Error("services shutdown error", "error", err)
		}
	}()

	// Start server
	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
