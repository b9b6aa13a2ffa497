// Package config provides configuration management for the analysis
// service.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/socforge/socassist/internal/api/gateway"
	"github.com/socforge/socassist/internal/enrichment"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig            `yaml:"server"`
	Redis     RedisConfig             `yaml:"redis"`
	Providers ProvidersConfig         `yaml:"providers"`
	Pipeline  PipelineConfig          `yaml:"pipeline"`
	RateLimit gateway.RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig           `yaml:"logging"`
	Metrics   MetricsConfig           `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig holds Redis connection settings. Redis backs the API rate
// limiter only; the service runs without it when disabled.
type RedisConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
}

// ProvidersConfig holds threat intel provider settings.
type ProvidersConfig struct {
	AbuseIPDB  AbuseIPDBProviderConfig  `yaml:"abuseipdb"`
	VirusTotal VirusTotalProviderConfig `yaml:"virustotal"`
}

// AbuseIPDBProviderConfig wraps the AbuseIPDB client config with an
// enable switch.
type AbuseIPDBProviderConfig struct {
	Enabled bool `yaml:"enabled"`

	enrichment.AbuseIPDBConfig `yaml:",inline"`
}

// VirusTotalProviderConfig wraps the VirusTotal client config with an
// enable switch.
type VirusTotalProviderConfig struct {
	Enabled bool `yaml:"enabled"`

	enrichment.VirusTotalConfig `yaml:",inline"`
}

// PipelineConfig holds batch analysis defaults, applied when a request
// does not carry its own knobs.
type PipelineConfig struct {
	MaxRows       int  `yaml:"max_rows"`
	TopK          int  `yaml:"top_k"`
	EnrichEnabled bool `yaml:"enrich_enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:     false,
			Addr:        "localhost:6379",
			PasswordEnv: "REDIS_PASSWORD",
			DB:          0,
			PoolSize:    10,
		},
		Providers: ProvidersConfig{
			AbuseIPDB: AbuseIPDBProviderConfig{
				Enabled:         true,
				AbuseIPDBConfig: enrichment.DefaultAbuseIPDBConfig(),
			},
			VirusTotal: VirusTotalProviderConfig{
				Enabled:          true,
				VirusTotalConfig: enrichment.DefaultVirusTotalConfig(),
			},
		},
		Pipeline: PipelineConfig{
			MaxRows:       5000,
			TopK:          10,
			EnrichEnabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// EnabledProviders returns the names of enabled threat intel providers.
func (c *Config) EnabledProviders() []string {
	var providers []string
	if c.Providers.AbuseIPDB.Enabled {
		providers = append(providers, "abuseipdb")
	}
	if c.Providers.VirusTotal.Enabled {
		providers = append(providers, "virustotal")
	}
	return providers
}
