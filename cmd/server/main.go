// Package main provides the entry point for the socassist server, a
// batch analysis service for SOC security events: schema
// canonicalization, risk classification, threat intel enrichment and
// response recommendations.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/socforge/socassist/internal/api"
	"github.com/socforge/socassist/internal/api/gateway"
	"github.com/socforge/socassist/internal/classify"
	"github.com/socforge/socassist/internal/config"
	"github.com/socforge/socassist/internal/enrichment"
	"github.com/socforge/socassist/internal/observability"
	"github.com/socforge/socassist/internal/pipeline"
)

// Version information (injected at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("socassist %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	// Provider API keys commonly live in a local .env during development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}

	telemetry, err := observability.New(observability.Config{
		ServiceName:    "socassist",
		ServiceVersion: Version,
		LogLevel:       cfg.Logging.Level,
		LogFormat:      cfg.Logging.Format,
		MetricsEnabled: cfg.Metrics.Enabled,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: %v\n", err)
		os.Exit(1)
	}
	defer telemetry.Sync()
	logger := telemetry.Logger()

	logger.Info("starting socassist",
		zap.String("version", Version),
		zap.String("config", *configPath),
		zap.Strings("providers", cfg.EnabledProviders()))

	providers, err := buildProviders(cfg, logger, telemetry.Metrics())
	if err != nil {
		logger.Fatal("provider init failed", zap.Error(err))
	}

	var orchestrator *enrichment.Orchestrator
	if len(providers) > 0 {
		orchestrator = enrichment.NewOrchestrator(providers, logger, telemetry.Metrics())
	}

	pipe := pipeline.New(
		classify.NewBaselineModel(),
		orchestrator,
		pipeline.Options{
			MaxRows: cfg.Pipeline.MaxRows,
			TopK:    cfg.Pipeline.TopK,
		},
		logger,
		telemetry.Metrics(),
	)

	server := api.NewServer(pipe, orchestrator, telemetry, api.Options{
		Version:       Version,
		DefaultEnrich: cfg.Pipeline.EnrichEnabled,
	})

	var apiMiddleware []func(http.Handler) http.Handler
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: os.Getenv(cfg.Redis.PasswordEnv),
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer redisClient.Close()

		limiter := gateway.NewRateLimiter(redisClient, cfg.RateLimit, logger)
		apiMiddleware = append(apiMiddleware, limiter.Middleware(
			func(r *http.Request) string { return "free" },
			func(r *http.Request) string { return r.Header.Get("X-API-Key") },
		))
		logger.Info("rate limiting enabled", zap.String("redis", cfg.Redis.Addr))
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(apiMiddleware...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := <-sigChan
	logger.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}

func buildProviders(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) ([]enrichment.Provider, error) {
	var providers []enrichment.Provider

	if cfg.Providers.AbuseIPDB.Enabled {
		p, err := enrichment.NewAbuseIPDBProvider(cfg.Providers.AbuseIPDB.AbuseIPDBConfig, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("abuseipdb: %w", err)
		}
		providers = append(providers, p)
	}
	if cfg.Providers.VirusTotal.Enabled {
		p, err := enrichment.NewVirusTotalProvider(cfg.Providers.VirusTotal.VirusTotalConfig, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("virustotal: %w", err)
		}
		providers = append(providers, p)
	}

	return providers, nil
}
