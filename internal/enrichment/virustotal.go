// Package enrichment: VirusTotal client. VirusTotal aggregates verdicts
// from dozens of antivirus engines; the IP address endpoint exposes a
// per-engine analysis breakdown.
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/socforge/socassist/internal/observability"
)

const vtDefaultBaseURL = "https://www.virustotal.com"

// VirusTotalConfig holds VirusTotal-specific configuration.
type VirusTotalConfig struct {
	ProviderConfig `yaml:",inline"`
}

// DefaultVirusTotalConfig returns sensible defaults for VirusTotal.
func DefaultVirusTotalConfig() VirusTotalConfig {
	cfg := VirusTotalConfig{ProviderConfig: DefaultProviderConfig()}
	cfg.APIKeyEnv = "VIRUSTOTAL_API_KEY"
	cfg.BaseURL = vtDefaultBaseURL
	return cfg
}

// VirusTotalProvider implements the Provider interface for VirusTotal.
type VirusTotalProvider struct {
	config     VirusTotalConfig
	httpClient *http.Client
	cache      *flightCache
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewVirusTotalProvider creates a new VirusTotal provider. Like the
// AbuseIPDB provider, the API key is resolved from the environment per
// lookup. metrics may be nil.
func NewVirusTotalProvider(config VirusTotalConfig, logger *zap.Logger, metrics *observability.Metrics) (*VirusTotalProvider, error) {
	if config.BaseURL == "" {
		config.BaseURL = vtDefaultBaseURL
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

	return &VirusTotalProvider{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      cache,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Name returns the provider identifier.
func (p *VirusTotalProvider) Name() string {
	return "virustotal"
}

// HealthCheck verifies the provider is usable. Checks credential
// presence only; the v3 API has no unauthenticated probe.
func (p *VirusTotalProvider) HealthCheck(ctx context.Context) error {
	if os.Getenv(p.config.APIKeyEnv) == "" {
		return errors.New("VirusTotal API key not configured in env var: " + p.config.APIKeyEnv)
	}
	return nil
}

// Lookup returns the VirusTotal reputation for an IP. Empty input
// short-circuits before any cache or network access; a cache hit
// short-circuits everything else, including the credential check.
// Concurrent lookups for one IP share a single fetch.
func (p *VirusTotalProvider) Lookup(ctx context.Context, ip string) Result {
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
		p.logger.Warn("VirusTotal lookup failed",
			zap.String("ip", ip),
			zap.String("error", res.Error))
	}
	return res
}

// vtIPResponse is the subset of the v3 IP address object consumed.
type vtIPResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  *int `json:"malicious"`
				Suspicious *int `json:"suspicious"`
				Harmless   *int `json:"harmless"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

func (p *VirusTotalProvider) fetch(ctx context.Context, ip string) Result {
	apiKey := os.Getenv(p.config.APIKeyEnv)
	if apiKey == "" {
		return Result{Status: StatusNoKey}
	}

	endpoint := strings.TrimSuffix(p.config.BaseURL, "/") + "/api/v3/ip_addresses/" + url.PathEscape(ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Status: StatusError, Error: err.Error()}
	}
	req.Header.Set("x-apikey", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Result{Status: StatusError, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Status: StatusHTTP(resp.StatusCode)}
	}

	var body vtIPResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{Status: StatusError, Error: "decoding response: " + err.Error()}
	}

	stats := body.Data.Attributes.LastAnalysisStats
	return Result{
		Status: StatusOK,
		Reputation: &ReputationFacts{
			Malicious:  stats.Malicious,
			Suspicious: stats.Suspicious,
			Harmless:   stats.Harmless,
		},
	}
}
