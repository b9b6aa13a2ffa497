// Package pipeline wires canonicalization, feature extraction,
// classification, enrichment and recommendations into the end-to-end
// batch analysis flow.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/socforge/socassist/internal/classify"
	"github.com/socforge/socassist/internal/enrichment"
	"github.com/socforge/socassist/internal/features"
	"github.com/socforge/socassist/internal/observability"
	"github.com/socforge/socassist/internal/recommend"
	"github.com/socforge/socassist/internal/schema"
)

// Explanation availability markers.
const (
	ExplanationOK          = "ok"
	ExplanationUnavailable = "unavailable"
)

// ErrEmptyTable marks a batch with no usable rows.
var ErrEmptyTable = errors.New("batch has no rows to analyze")

// Options controls per-batch behavior. Zero values fall back to the
// pipeline's configured defaults.
type Options struct {
	MaxRows int
	TopK    int
	Enrich  bool
}

// RowResult is the classification of one row, with the canonical fields
// echoed for display.
type RowResult struct {
	Index     int            `json:"index"`
	RiskScore float64        `json:"risk_score"`
	Label     classify.Label `json:"label"`
	Record    schema.Record  `json:"record"`
}

// BatchResult is the full outcome of analyzing one batch.
type BatchResult struct {
	Rows              []RowResult        `json:"rows"`
	Enrichment        []enrichment.Entry `json:"enrichment,omitempty"`
	Recommendations   []string           `json:"recommendations"`
	Explanation       map[string]float64 `json:"explanation,omitempty"`
	ExplanationStatus string             `json:"explanation_status"`
	ElapsedMS         int64              `json:"elapsed_ms"`
}

// Pipeline is the batch analysis engine. It is safe for concurrent use;
// all per-batch state lives on the stack.
type Pipeline struct {
	canonicalizer *schema.Canonicalizer
	model         classify.Model
	orchestrator  *enrichment.Orchestrator
	logger        *zap.Logger
	metrics       *observability.Metrics
	defaults      Options
}

// New creates a pipeline. orchestrator may be nil when enrichment is
// disabled; metrics may be nil.
func New(model classify.Model, orchestrator *enrichment.Orchestrator, defaults Options, logger *zap.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		canonicalizer: schema.NewCanonicalizer(),
		model:         model,
		orchestrator:  orchestrator,
		logger:        logger,
		metrics:       metrics,
		defaults:      defaults,
	}
}

// Analyze runs the full flow over one uploaded table: truncate,
// canonicalize, extract and align features, classify, enrich the
// top-risk rows, and derive recommendations. Explainability is
// best-effort: an explanation-incapable model marks the condition in
// the result instead of failing the batch.
func (p *Pipeline) Analyze(ctx context.Context, table schema.Table, opts Options) (*BatchResult, error) {
	start := time.Now()

	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = p.defaults.MaxRows
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = p.defaults.TopK
	}

	table = table.Truncate(maxRows)
	if table.Empty() {
		return nil, ErrEmptyTable
	}

	canonical := p.canonicalizer.Canonicalize(table)

	matrix, err := features.Extract(canonical)
	if err != nil {
		return nil, fmt.Errorf("extracting features: %w", err)
	}
	aligned := features.Align(matrix, p.model.FeatureNames())

	results, err := classify.Classify(p.model, aligned)
	if err != nil {
		return nil, fmt.Errorf("classifying batch: %w", err)
	}

	rows := make([]RowResult, len(results))
	candidates := make([]enrichment.Candidate, len(results))
	for i, res := range results {
		rec := canonical.Rows[i]
		rows[i] = RowResult{
			Index:     i,
			RiskScore: res.RiskScore,
			Label:     res.Label,
			Record:    rec,
		}
		candidates[i] = enrichment.Candidate{
			Index:         i,
			SourceIP:      rec.String(schema.ColSourceIP),
			DestinationIP: rec.String(schema.ColDestinationIP),
			RiskScore:     res.RiskScore,
		}
		if p.metrics != nil {
			p.metrics.RowsClassified.WithLabelValues(string(res.Label)).Inc()
		}
	}

	out := &BatchResult{
		Rows:            rows,
		Recommendations: recommend.ForResults(results),
	}

	if opts.Enrich && p.orchestrator != nil {
		out.Enrichment = p.orchestrator.Enrich(ctx, candidates, topK)
	}

	if explanation, err := classify.Explain(p.model, aligned.Row(0)); err == nil {
		out.Explanation = explanation
		out.ExplanationStatus = ExplanationOK
	} else {
		out.ExplanationStatus = ExplanationUnavailable
		if !errors.Is(err, classify.ErrExplainUnavailable) {
			p.logger.Warn("explanation failed", zap.Error(err))
		}
	}

	elapsed := time.Since(start)
	out.ElapsedMS = elapsed.Milliseconds()
	if p.metrics != nil {
		p.metrics.BatchDuration.Observe(elapsed.Seconds())
	}

	p.logger.Info("batch analyzed",
		zap.Int("rows", len(rows)),
		zap.Int("enriched", len(out.Enrichment)),
		zap.Duration("elapsed", elapsed))

	return out, nil
}
