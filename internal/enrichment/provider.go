// Package enrichment provides threat intelligence provider integrations
// and the orchestrator that enriches the highest-risk rows of a classified
// batch.
package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Lookup statuses. Non-200 HTTP responses use StatusHTTP(code). Every
// status is terminal for an IP once cached; no retries are performed.
const (
	StatusOK    = "ok"
	StatusNoKey = "no_key"
	StatusNoIP  = "no_ip"
	StatusError = "error"
)

// StatusHTTP returns the status string for a non-200 HTTP response.
func StatusHTTP(code int) string {
	return fmt.Sprintf("http_%d", code)
}

// ReputationFacts carries the provider-specific fields consumed from a
// successful lookup. Pointer fields distinguish "absent from the provider
// response" from zero values.
type ReputationFacts struct {
	// AbuseIPDB
	ConfidenceScore *int  `json:"confidence_score,omitempty"`
	TotalReports    *int  `json:"total_reports,omitempty"`
	Whitelisted     *bool `json:"whitelisted,omitempty"`

	// VirusTotal last_analysis_stats
	Malicious  *int `json:"malicious,omitempty"`
	Suspicious *int `json:"suspicious,omitempty"`
	Harmless   *int `json:"harmless,omitempty"`
}

// Result is the outcome of one provider lookup for one IP. Provider
// failures are encoded in Status rather than surfaced as errors.
type Result struct {
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Reputation *ReputationFacts `json:"reputation,omitempty"`
}

// Provider is a threat intelligence source queried per IP. Lookup never
// fails: transport, credential, and HTTP problems all map onto Result
// statuses. Implementations cache results for the process lifetime keyed
// by the raw IP string, and must be safe for concurrent use.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, ip string) Result
	HealthCheck(ctx context.Context) error
}

// ProviderConfig holds common provider configuration. Credentials are
// resolved from the environment at lookup time via APIKeyEnv; a missing
// key degrades to no_key results instead of failing construction.
type ProviderConfig struct {
	APIKeyEnv string        `yaml:"api_key_env"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache_size"`
}

// DefaultProviderConfig returns sensible defaults. The cache bound keeps
// the process-lifetime result caches from growing without limit; within
// the bound an IP is fetched at most once per provider.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout:   8 * time.Second,
		CacheSize: 65536,
	}
}

// flightCache combines the bounded result cache with a per-IP
// single-flight discipline: when concurrent lookups for one IP all miss
// the cache, exactly one runs the fetch and the rest wait for its
// outcome. This keeps the at-most-one-network-call-per-IP invariant
// intact under the orchestrator's concurrent fan-out.
type flightCache struct {
	mu       sync.Mutex
	results  *lru.Cache[string, Result]
	inflight map[string]*flight
}

type flight struct {
	done chan struct{}
	res  Result
}

func newFlightCache(size int) (*flightCache, error) {
	results, err := lru.New[string, Result](size)
	if err != nil {
		return nil, err
	}
	return &flightCache{
		results:  results,
		inflight: make(map[string]*flight),
	}, nil
}

// lookup returns the result for ip, running fetch at most once across
// all concurrent callers. shared reports whether the result came from
// the cache or another caller's in-flight fetch.
func (c *flightCache) lookup(ip string, fetch func() Result) (res Result, shared bool) {
	c.mu.Lock()
	if res, ok := c.results.Get(ip); ok {
		c.mu.Unlock()
		return res, true
	}
	if f, ok := c.inflight[ip]; ok {
		c.mu.Unlock()
		<-f.done
		return f.res, true
	}
	f := &flight{done: make(chan struct{})}
	c.inflight[ip] = f
	c.mu.Unlock()

	f.res = fetch()

	c.mu.Lock()
	c.results.Add(ip, f.res)
	delete(c.inflight, ip)
	c.mu.Unlock()
	close(f.done)

	return f.res, false
}

// size returns the number of cached results.
func (c *flightCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results.Len()
}
