// main.go - The entry point and router setup.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bosocmputer/trade_compliance_ocr/configs"
	"github.com/bosocmputer/trade_compliance_ocr/internal/ai"
	"github.com/bosocmputer/trade_compliance_ocr/internal/api"
	"github.com/bosocmputer/trade_compliance_ocr/internal/metrics"
	"github.com/bosocmputer/trade_compliance_ocr/internal/processor"
	"github.com/bosocmputer/trade_compliance_ocr/internal/storage"
)

func main() {
	// Step 0: Load configuration from environment variables
	configs.LoadConfig()

	// Step 0.5: Set production mode
	if configs.GIN_MODE == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	// Step 1: Providers, cache and metrics
	registry := ai.NewRegistryFromConfig(configs.PROVIDERS)
	defer func() {
		if err := registry.Close(); err != nil {
			slog.Warn("failed to close providers", "error", err.Error())
		}
	}()

	cache := storage.NewResultCache(storage.CacheConfig{
		Enabled:        configs.CACHE_ENABLED,
		TTL:            configs.CACHE_TTL,
		MaxEntries:     configs.CACHE_MAX_ENTRIES,
		KeyPrefixBytes: configs.CACHE_KEY_PREFIX_BYTES,
	})

	promRegistry := prometheus.NewRegistry()
	collector := metrics.NewCollector(promRegistry)

	orchestrator := ai.NewOrchestrator(registry, cache, ai.RetryConfig{
		MaxRetries: configs.RETRY_MAX_RETRIES,
		BaseDelay:  configs.RETRY_BASE_DELAY,
		MaxDelay:   configs.RETRY_MAX_DELAY,
		MaxJitter:  configs.RETRY_MAX_JITTER,
		Timeout:    configs.RETRY_TIMEOUT,
	}, ai.WithMetrics(collector))

	// Step 1.5: Initialize MongoDB connection (optional)
	var store storage.AnalysisStore
	if configs.MONGO_URI != "" {
		connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoStore, err := storage.ConnectMongo(connectCtx, configs.MONGO_URI, configs.MONGO_DB_NAME)
		cancel()
		if err != nil {
			slog.Error("failed to connect to MongoDB", "error", err.Error())
			os.Exit(1)
		}
		defer mongoStore.Close(context.Background())
		store = mongoStore
	} else {
		slog.Info("MONGO_URI not set, analyses are not persisted")
	}

	// Step 2: Initialize the Gin router
	router := gin.Default()
	router.Use(api.CORSMiddleware(configs.ALLOWED_ORIGINS))

	// Root endpoint for SSL verification
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	// Step 3: Define the API routes
	handler := api.NewHandler(orchestrator, store, collector, processor.Options{
		MaxBytes:          configs.MAX_DOCUMENT_BYTES,
		Preprocess:        configs.ENABLE_IMAGE_PREPROCESSING,
		MaxDimension:      configs.MAX_IMAGE_DIMENSION,
		EnhanceLowQuality: configs.ENHANCE_LOW_QUALITY_IMAGES,
	})
	handler.RegisterRoutes(router)

	// Step 4: Setup HTTP server with timeouts
	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   5 * time.Minute, // fallback across several providers can be slow
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		slog.Info("starting server",
			"port", configs.PORT,
			"providers", registry.Configured(),
			"cache_enabled", configs.CACHE_ENABLED,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err.Error())
			os.Exit(1)
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err.Error())
	}

	slog.Info("server exited")
}
