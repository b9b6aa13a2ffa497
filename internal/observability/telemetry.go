// Package observability provides logging and metrics for the analysis
// pipeline.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures telemetry.
type Config struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json, console

	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// Telemetry bundles the logger and metrics handed to pipeline components.
type Telemetry struct {
	logger  *zap.Logger
	metrics *Metrics
	config  Config
}

// Metrics holds the Prometheus metrics for the pipeline.
type Metrics struct {
	// Classification metrics
	RowsClassified *prometheus.CounterVec
	BatchDuration  prometheus.Histogram

	// Enrichment metrics
	EnrichmentRequests *prometheus.CounterVec
	EnrichmentCacheHit *prometheus.CounterVec
	EnrichmentDuration *prometheus.HistogramVec

	// API metrics
	RequestsTotal *prometheus.CounterVec
}

// New creates a Telemetry instance.
func New(cfg Config) (*Telemetry, error) {
	t := &Telemetry{config: cfg}

	logger, err := t.initLogger()
	if err != nil {
		return nil, err
	}
	t.logger = logger

	if cfg.MetricsEnabled {
		t.metrics = initMetrics()
	}

	return t, nil
}

func (t *Telemetry) initLogger() (*zap.Logger, error) {
	var config zap.Config

	if t.config.LogFormat == "console" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	switch t.config.LogLevel {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.InitialFields = map[string]interface{}{
		"service":     t.config.ServiceName,
		"version":     t.config.ServiceVersion,
		"environment": t.config.Environment,
	}

	return config.Build()
}

func initMetrics() *Metrics {
	namespace := "socassist"

	return &Metrics{
		RowsClassified: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_classified_total",
				Help:      "Rows classified by risk label",
			},
			[]string{"label"},
		),
		BatchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_duration_seconds",
				Help:      "End-to-end batch analysis duration",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		EnrichmentRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enrichment_requests_total",
				Help:      "Provider lookups by provider and status",
			},
			[]string{"provider", "status"},
		),
		EnrichmentCacheHit: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enrichment_cache_hits_total",
				Help:      "Provider cache hits",
			},
			[]string{"provider"},
		),
		EnrichmentDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "enrichment_duration_seconds",
				Help:      "Provider lookup duration",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
			[]string{"provider"},
		),
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

// Logger returns the logger.
func (t *Telemetry) Logger() *zap.Logger {
	return t.logger
}

// Metrics returns the metrics, or nil when metrics are disabled.
func (t *Telemetry) Metrics() *Metrics {
	return t.metrics
}

// MetricsHandler returns the Prometheus scrape handler.
func (t *Telemetry) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Sync flushes buffered log entries.
func (t *Telemetry) Sync() {
	_ = t.logger.Sync()
}
