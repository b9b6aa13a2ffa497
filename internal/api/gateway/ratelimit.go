// Package gateway provides API gateway functionality including rate limiting
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter provides configurable rate limiting for API endpoints.
// Limits are enforced per client per endpoint over a fixed one-minute
// window in Redis; a Redis failure fails open.
type RateLimiter struct {
	redis  *redis.Client
	logger *zap.Logger
	config RateLimitConfig
}

// RateLimitConfig configures the rate limiter.
type RateLimitConfig struct {
	DefaultRequestsPerMinute int                       `yaml:"default_requests_per_minute"`
	Tiers                    map[string]TierLimits     `yaml:"tiers"`
	Endpoints                map[string]EndpointLimits `yaml:"endpoints"`
	IncludeHeaders           bool                      `yaml:"include_headers"`
}

// TierLimits defines rate limits per API tier.
type TierLimits struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// EndpointLimits defines rate limits for specific endpoints. Batch
// analysis is far more expensive than a single IP lookup, so endpoints
// carry a cost multiplier against the tier budget.
type EndpointLimits struct {
	Path              string `yaml:"path"`
	Method            string `yaml:"method"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	CostMultiplier    int    `yaml:"cost_multiplier"`
}

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	Limit      int
	ResetAt    time.Time
	RetryAfter time.Duration
	Tier       string
	Reason     string
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(redisClient *redis.Client, cfg RateLimitConfig, logger *zap.Logger) *RateLimiter {
	if cfg.DefaultRequestsPerMinute == 0 {
		cfg.DefaultRequestsPerMinute = 100
	}
	if cfg.Tiers == nil {
		cfg.Tiers = DefaultTiers()
	}
	if cfg.Endpoints == nil {
		cfg.Endpoints = DefaultEndpointLimits()
	}

	return &RateLimiter{
		redis:  redisClient,
		logger: logger,
		config: cfg,
	}
}

// DefaultTiers returns default tier configurations.
func DefaultTiers() map[string]TierLimits {
	return map[string]TierLimits{
		"free":       {RequestsPerMinute: 30},
		"analyst":    {RequestsPerMinute: 120},
		"automation": {RequestsPerMinute: 600},
	}
}

// DefaultEndpointLimits returns default endpoint-specific limits.
func DefaultEndpointLimits() map[string]EndpointLimits {
	return map[string]EndpointLimits{
		// Batch analysis: classification plus up to 4*topK provider lookups.
		"POST:/api/v1/analyze": {
			Path:              "/api/v1/analyze",
			Method:            "POST",
			RequestsPerMinute: 20,
			CostMultiplier:    5,
		},
		// Single-IP enrichment.
		"GET:/api/v1/enrich/ip": {
			Path:              "/api/v1/enrich/ip",
			Method:            "GET",
			RequestsPerMinute: 60,
			CostMultiplier:    1,
		},
	}
}

// Check performs a rate limit check.
func (rl *RateLimiter) Check(ctx context.Context, tier, clientID, endpoint, method string) (*RateLimitResult, error) {
	tierLimits := rl.getTierLimits(tier)
	endpointLimits := rl.getEndpointLimits(endpoint, method)
	limit := rl.effectiveLimit(tierLimits, endpointLimits)

	redisKey := fmt.Sprintf("socassist:ratelimit:%s:%s:%s:minute", tier, clientID, endpoint)
	now := time.Now()

	script := redis.NewScript(`
		local current = redis.call('INCR', KEYS[1])
		if current == 1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[1])
		end
		return current
	`)

	result, err := script.Run(ctx, rl.redis, []string{redisKey}, 60000).Int()
	if err != nil {
		rl.logger.Warn("Rate limit check failed, allowing request", zap.Error(err))
		return &RateLimitResult{Allowed: true, Tier: tier}, nil
	}

	allowed := result <= limit
	remaining := limit - result
	if remaining < 0 {
		remaining = 0
	}

	ttl, _ := rl.redis.TTL(ctx, redisKey).Result()
	resetAt := now.Add(ttl)

	var retryAfter time.Duration
	var reason string
	if !allowed {
		retryAfter = ttl
		reason = "Rate limit exceeded"
	}

	return &RateLimitResult{
		Allowed:    allowed,
		Remaining:  remaining,
		Limit:      limit,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
		Tier:       tier,
		Reason:     reason,
	}, nil
}

func (rl *RateLimiter) getTierLimits(tier string) TierLimits {
	if limits, ok := rl.config.Tiers[tier]; ok {
		return limits
	}
	if limits, ok := rl.config.Tiers["free"]; ok {
		return limits
	}
	return TierLimits{RequestsPerMinute: rl.config.DefaultRequestsPerMinute}
}

func (rl *RateLimiter) getEndpointLimits(endpoint, method string) *EndpointLimits {
	key := method + ":" + endpoint
	if limits, ok := rl.config.Endpoints[key]; ok {
		return &limits
	}
	return nil
}

func (rl *RateLimiter) effectiveLimit(tier TierLimits, endpoint *EndpointLimits) int {
	limit := tier.RequestsPerMinute
	if limit <= 0 {
		limit = rl.config.DefaultRequestsPerMinute
	}
	if endpoint == nil {
		return limit
	}
	if endpoint.RequestsPerMinute > 0 && endpoint.RequestsPerMinute < limit {
		limit = endpoint.RequestsPerMinute
	}
	if endpoint.CostMultiplier > 1 {
		limit /= endpoint.CostMultiplier
		if limit < 1 {
			limit = 1
		}
	}
	return limit
}

// Middleware returns an HTTP middleware for rate limiting.
func (rl *RateLimiter) Middleware(getTier func(r *http.Request) string, getClientID func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tier := getTier(r)
			clientID := getClientID(r)
			if clientID == "" {
				clientID = getClientIP(r)
			}

			result, err := rl.Check(ctx, tier, clientID, r.URL.Path, r.Method)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if rl.config.IncludeHeaders {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			}

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":"rate_limit_exceeded","message":"%s","retry_after":%d}`,
					result.Reason, int(result.RetryAfter.Seconds()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
