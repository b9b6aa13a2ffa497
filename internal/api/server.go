// Package api exposes the batch analysis pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/socforge/socassist/internal/enrichment"
	"github.com/socforge/socassist/internal/ingest"
	"github.com/socforge/socassist/internal/observability"
	"github.com/socforge/socassist/internal/pipeline"
	"github.com/socforge/socassist/internal/schema"
)

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	pipeline     *pipeline.Pipeline
	orchestrator *enrichment.Orchestrator
	telemetry    *observability.Telemetry
	logger       *zap.Logger
	version      string

	defaultEnrich bool
}

// Options configures the server.
type Options struct {
	Version       string
	DefaultEnrich bool
}

// NewServer creates the handler set. orchestrator may be nil when no
// providers are configured.
func NewServer(p *pipeline.Pipeline, orchestrator *enrichment.Orchestrator, telemetry *observability.Telemetry, opts Options) *Server {
	return &Server{
		pipeline:      p,
		orchestrator:  orchestrator,
		telemetry:     telemetry,
		logger:        telemetry.Logger(),
		version:       opts.Version,
		defaultEnrich: opts.DefaultEnrich,
	}
}

// Router builds the chi router. Extra middleware (rate limiting) is
// applied to the API subtree only, keeping health and metrics reachable.
func (s *Server) Router(apiMiddleware ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if s.telemetry.Metrics() != nil {
		r.Use(s.countRequests)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if s.telemetry.Metrics() != nil {
		r.Method(http.MethodGet, "/metrics", s.telemetry.MetricsHandler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		for _, mw := range apiMiddleware {
			r.Use(mw)
		}
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/enrich/ip", s.handleEnrichIP)
	})

	return r
}

// countRequests records every request by method, route pattern and
// status. The chi route pattern keeps the label cardinality bounded.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}
		s.telemetry.Metrics().RequestsTotal.
			WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": s.version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	providers := map[string]string{}
	if s.orchestrator != nil {
		for _, p := range s.orchestrator.Providers() {
			if err := p.HealthCheck(r.Context()); err != nil {
				providers[p.Name()] = "degraded: " + err.Error()
			} else {
				providers[p.Name()] = "ready"
			}
		}
	}
	// Degraded providers answer no_key at lookup time; the service
	// itself is still ready.
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"providers": providers,
	})
}

// handleAnalyze accepts a CSV document or a JSON array of event objects
// and runs the full analysis flow. Query knobs: max_rows, top_k, enrich.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	table, err := s.decodeBatch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := pipeline.Options{Enrich: s.defaultEnrich}
	q := r.URL.Query()
	if v := q.Get("max_rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("max_rows must be a positive integer"))
			return
		}
		opts.MaxRows = n
	}
	if v := q.Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("top_k must be a positive integer; use enrich=false to disable enrichment"))
			return
		}
		opts.TopK = n
	}
	if v := q.Get("enrich"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("enrich must be a boolean"))
			return
		}
		opts.Enrich = enabled
	}

	result, err := s.pipeline.Analyze(r.Context(), table, opts)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrEmptyTable):
			writeError(w, http.StatusBadRequest, err)
		default:
			s.logger.Error("batch analysis failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, errors.New("analysis failed"))
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleEnrichIP looks one IP up across all providers, outside any batch.
func (s *Server) handleEnrichIP(w http.ResponseWriter, r *http.Request) {
	ip := strings.TrimSpace(r.URL.Query().Get("ip"))
	if ip == "" {
		writeError(w, http.StatusBadRequest, errors.New("ip query parameter is required"))
		return
	}
	if s.orchestrator == nil || len(s.orchestrator.Providers()) == 0 {
		writeError(w, http.StatusServiceUnavailable, errors.New("no providers configured"))
		return
	}

	lookups := make(map[string]enrichment.Result)
	for _, p := range s.orchestrator.Providers() {
		lookups[p.Name()] = p.Lookup(r.Context(), ip)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ip":      ip,
		"lookups": lookups,
	})
}

func (s *Server) decodeBatch(r *http.Request) (schema.Table, error) {
	defer r.Body.Close()

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "text/csv") {
		return ingest.DecodeCSV(r.Body)
	}
	return ingest.DecodeJSON(r.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
