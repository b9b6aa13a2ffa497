package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/socforge/socassist/internal/classify"
	"github.com/socforge/socassist/internal/enrichment"
	"github.com/socforge/socassist/internal/observability"
	"github.com/socforge/socassist/internal/pipeline"
)

type okProvider struct {
	name string
}

func (p *okProvider) Name() string { return p.name }

func (p *okProvider) Lookup(ctx context.Context, ip string) enrichment.Result {
	if ip == "" {
		return enrichment.Result{Status: enrichment.StatusNoIP}
	}
	return enrichment.Result{Status: enrichment.StatusOK}
}

func (p *okProvider) HealthCheck(ctx context.Context) error { return nil }

func newTestServer(t *testing.T, providers ...enrichment.Provider) *Server {
	t.Helper()
	telemetry, err := observability.New(observability.Config{
		ServiceName: "socassist-test",
		LogLevel:    "error",
	})
	if err != nil {
		t.Fatalf("telemetry init failed: %v", err)
	}

	var orch *enrichment.Orchestrator
	if len(providers) > 0 {
		orch = enrichment.NewOrchestrator(providers, zap.NewNop(), nil)
	}
	p := pipeline.New(classify.NewBaselineModel(), orch,
		pipeline.Options{MaxRows: 1000, TopK: 5}, zap.NewNop(), nil)

	return NewServer(p, orch, telemetry, Options{Version: "test"})
}

const jsonBatch = `[
	{"Timestamp": "2024-03-16 02:00:00", "Source IP": "203.0.113.7", "Event Type": "malware_alert", "status": "failed"},
	{"Timestamp": "2024-03-12 10:00:00", "Source IP": "10.0.0.1", "Event Type": "login_success", "status": "success"}
]`

func TestAnalyze_JSONBatch(t *testing.T) {
	server := newTestServer(t)
	router := server.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(jsonBatch))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result pipeline.BatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(result.Rows))
	}
	if len(result.Recommendations) == 0 {
		t.Error("expected recommendations")
	}
	if result.Rows[0].Record.String("source_ip") != "203.0.113.7" {
		t.Errorf("expected canonical echo, got %v", result.Rows[0].Record)
	}
}

func TestAnalyze_CSVBatch(t *testing.T) {
	server := newTestServer(t)
	router := server.Router()

	csv := "Timestamp,Source IP,Event Type,status\n2024-03-16 02:00:00,203.0.113.7,port_scan,denied\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result pipeline.BatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(result.Rows))
	}
}

func TestAnalyze_EmptyBatch(t *testing.T) {
	server := newTestServer(t)
	router := server.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("[]"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty batch, got %d", rec.Code)
	}
}

func TestAnalyze_BadQueryKnobs(t *testing.T) {
	server := newTestServer(t)
	router := server.Router()

	for _, target := range []string{
		"/api/v1/analyze?max_rows=abc",
		"/api/v1/analyze?max_rows=0",
		"/api/v1/analyze?top_k=-1",
		"/api/v1/analyze?top_k=0",
		"/api/v1/analyze?enrich=maybe",
	} {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(jsonBatch))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestAnalyze_EnrichKnob(t *testing.T) {
	server := newTestServer(t, &okProvider{name: "stub"})
	router := server.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze?enrich=true&top_k=1",
		strings.NewReader(jsonBatch))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result pipeline.BatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(result.Enrichment) != 1 {
		t.Fatalf("expected 1 enrichment entry, got %d", len(result.Enrichment))
	}
	if result.Enrichment[0].SourceIP != "203.0.113.7" {
		t.Errorf("expected riskiest row enriched, got %s", result.Enrichment[0].SourceIP)
	}
}

func TestEnrichIP(t *testing.T) {
	server := newTestServer(t, &okProvider{name: "stub"})
	router := server.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/enrich/ip?ip=203.0.113.9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		IP      string                       `json:"ip"`
		Lookups map[string]enrichment.Result `json:"lookups"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Lookups["stub"].Status != enrichment.StatusOK {
		t.Errorf("unexpected lookup result: %+v", body.Lookups)
	}
}

func TestEnrichIP_MissingParam(t *testing.T) {
	server := newTestServer(t, &okProvider{name: "stub"})
	router := server.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/enrich/ip", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEnrichIP_NoProviders(t *testing.T) {
	server := newTestServer(t)
	router := server.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/enrich/ip?ip=1.2.3.4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

// TestRequestCounterRecorded verifies the request-counting middleware
// feeds the scrape endpoint. Only this test enables metrics; the
// collectors register against the process-wide default registry.
func TestRequestCounterRecorded(t *testing.T) {
	telemetry, err := observability.New(observability.Config{
		ServiceName:    "socassist-test",
		LogLevel:       "error",
		MetricsEnabled: true,
	})
	if err != nil {
		t.Fatalf("telemetry init failed: %v", err)
	}
	p := pipeline.New(classify.NewBaselineModel(), nil,
		pipeline.Options{MaxRows: 1000, TopK: 5}, zap.NewNop(), nil)
	server := NewServer(p, nil, telemetry, Options{Version: "test"})
	router := server.Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	want := `socassist_http_requests_total{method="GET",path="/health",status="200"}`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("scrape output missing %s", want)
	}
}

func TestHealthAndReady(t *testing.T) {
	server := newTestServer(t, &okProvider{name: "stub"})
	router := server.Router()

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
