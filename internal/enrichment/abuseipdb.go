// Package enrichment: AbuseIPDB client. AbuseIPDB aggregates abuse
// reports for IP addresses and exposes a confidence-of-abuse score.
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/socforge/socassist/internal/observability"
)

const abuseDefaultBaseURL = "https://api.abuseipdb.com"

// AbuseIPDBConfig holds AbuseIPDB-specific configuration.
type AbuseIPDBConfig struct {
	ProviderConfig `yaml:",inline"`
	MaxAgeInDays   int `yaml:"max_age_in_days"`
}

// DefaultAbuseIPDBConfig returns sensible defaults for AbuseIPDB.
func DefaultAbuseIPDBConfig() AbuseIPDBConfig {
	cfg := AbuseIPDBConfig{
		ProviderConfig: DefaultProviderConfig(),
		MaxAgeInDays:   365,
	}
	cfg.APIKeyEnv = "ABUSEIPDB_API_KEY"
	cfg.BaseURL = abuseDefaultBaseURL
	return cfg
}

// AbuseIPDBProvider implements the Provider interface for AbuseIPDB.
type AbuseIPDBProvider struct {
	config     AbuseIPDBConfig
	httpClient *http.Client
	cache      *flightCache
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAbuseIPDBProvider creates a new AbuseIPDB provider. The API key is
// read from the environment per lookup, so construction succeeds without
// credentials. metrics may be nil.
func NewAbuseIPDBProvider(config AbuseIPDBConfig, logger *zap.Logger, metrics *observability.Metrics) (*AbuseIPDBProvider, error) {
	if config.BaseURL == "" {
		config.BaseURL = abuseDefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultProviderConfig().Timeout
	}
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultProviderConfig().CacheSize
	}

	cache, err := newFlightCache(config.CacheSize)
	if err != nil {
		return nil, err
	}

	return &AbuseIPDBProvider{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      cache,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Name returns the provider identifier.
func (p *AbuseIPDBProvider) Name() string {
	return "abuseipdb"
}

// HealthCheck verifies the provider is usable. AbuseIPDB has no cheap
// unauthenticated probe, so this checks credential presence only.
func (p *AbuseIPDBProvider) HealthCheck(ctx context.Context) error {
	if os.Getenv(p.config.APIKeyEnv) == "" {
		return errors.New("AbuseIPDB API key not configured in env var: " + p.config.APIKeyEnv)
	}
	return nil
}

// Lookup returns the AbuseIPDB reputation for an IP. Empty input
// short-circuits before any cache or network access; a cache hit
// short-circuits everything else, including the credential check.
// Concurrent lookups for one IP share a single fetch.
func (p *AbuseIPDBProvider) Lookup(ctx context.Context, ip string) Result {
	if ip == "" {
		return Result{Status: StatusNoIP}
	}

	res, shared := p.cache.lookup(ip, func() Result {
		return p.fetch(ctx, ip)
	})
	if shared {
		if p.metrics != nil {
			p.metrics.EnrichmentCacheHit.WithLabelValues(p.Name()).Inc()
		}
		return res
	}

	if p.metrics != nil {
		p.metrics.EnrichmentRequests.WithLabelValues(p.Name(), res.Status).Inc()
	}
	if res.Status == StatusError {
		p.logger.Warn("AbuseIPDB lookup failed",
			zap.String("ip", ip),
			zap.String("error", res.Error))
	}
	return res
}

// abuseCheckResponse is the subset of the /api/v2/check response consumed.
type abuseCheckResponse struct {
	Data struct {
		AbuseConfidenceScore *int  `json:"abuseConfidenceScore"`
		TotalReports         *int  `json:"totalReports"`
		IsWhitelisted        *bool `json:"isWhitelisted"`
	} `json:"data"`
}

func (p *AbuseIPDBProvider) fetch(ctx context.Context, ip string) Result {
	apiKey := os.Getenv(p.config.APIKeyEnv)
	if apiKey == "" {
		return Result{Status: StatusNoKey}
	}

	endpoint := strings.TrimSuffix(p.config.BaseURL, "/") + "/api/v2/check"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Status: StatusError, Error: err.Error()}
	}

	maxAge := p.config.MaxAgeInDays
	if maxAge <= 0 {
		maxAge = 365
	}
	q := url.Values{}
	q.Set("ipAddress", ip)
	q.Set("maxAgeInDays", strconv.Itoa(maxAge))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Key", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Result{Status: StatusError, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Status: StatusHTTP(resp.StatusCode)}
	}

	var body abuseCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{Status: StatusError, Error: "decoding response: " + err.Error()}
	}

	return Result{
		Status: StatusOK,
		Reputation: &ReputationFacts{
			ConfidenceScore: body.Data.AbuseConfidenceScore,
			TotalReports:    body.Data.TotalReports,
			Whitelisted:     body.Data.IsWhitelisted,
		},
	}
}
