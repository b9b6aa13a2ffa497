// Package classify adapts an externally supplied probability-producing
// model into operational risk labels.
package classify

import (
	"errors"
	"fmt"

	"github.com/socforge/socassist/internal/features"
)

// Label is the operational risk classification of one event row.
type Label string

const (
	LabelBenign     Label = "benign"
	LabelSuspicious Label = "suspicious"
	LabelMalicious  Label = "malicious"
)

// Labels is the fixed 3-class label space in ordinal order. Models must
// emit probability rows of exactly this width, in this order.
var Labels = []Label{LabelBenign, LabelSuspicious, LabelMalicious}

// Label thresholds. Policy constants, deliberately independent of the
// model's own decision boundary: the threshold-derived label is
// authoritative for downstream action even when it disagrees with the
// model's arg-max class.
const (
	ThresholdMalicious  = 0.8
	ThresholdSuspicious = 0.5
)

var (
	// ErrExplainUnavailable marks a model without feature-importance
	// support. Callers treat explainability as best-effort.
	ErrExplainUnavailable = errors.New("explainability unavailable: model does not expose feature importances")

	// ErrBadProbShape marks a fatal model contract violation: the
	// probability matrix does not match the input rows or label space.
	ErrBadProbShape = errors.New("probability matrix shape does not match contract")
)

// Model is the capability a classifier must expose to plug into the
// pipeline. Training and model selection happen elsewhere; the pipeline
// only consumes this contract.
type Model interface {
	// PredictProba returns one probability row per input row, with one
	// column per entry of Labels, in ordinal order.
	PredictProba(m features.Matrix) ([][]float64, error)
	// FeatureNames returns the ordered feature list the model was
	// trained on; inputs are aligned to it before prediction.
	FeatureNames() []string
}

// ImportanceReporter is the optional explainability capability.
type ImportanceReporter interface {
	// FeatureImportances returns global importance weights aligned to
	// FeatureNames.
	FeatureImportances() []float64
}

// Result is the classification of a single row.
type Result struct {
	RiskScore float64 `json:"risk_score"`
	Label     Label   `json:"label"`
}

// LabelForScore applies the threshold ladder to a risk score.
func LabelForScore(score float64) Label {
	switch {
	case score >= ThresholdMalicious:
		return LabelMalicious
	case score >= ThresholdSuspicious:
		return LabelSuspicious
	default:
		return LabelBenign
	}
}

// Classify runs the model over an aligned feature matrix and derives the
// risk score (max class probability) and threshold label for each row.
func Classify(model Model, aligned features.Matrix) ([]Result, error) {
	probs, err := model.PredictProba(aligned)
	if err != nil {
		return nil, fmt.Errorf("predicting probabilities: %w", err)
	}
	if len(probs) != aligned.Len() {
		return nil, fmt.Errorf("%w: %d probability rows for %d inputs", ErrBadProbShape, len(probs), aligned.Len())
	}

	results := make([]Result, len(probs))
	for i, row := range probs {
		if len(row) != len(Labels) {
			return nil, fmt.Errorf("%w: row %d has %d classes, want %d", ErrBadProbShape, i, len(row), len(Labels))
		}
		score := row[0]
		for _, p := range row[1:] {
			if p > score {
				score = p
			}
		}
		results[i] = Result{RiskScore: score, Label: LabelForScore(score)}
	}
	return results, nil
}

// Explain returns the model's global feature-importance weights keyed by
// feature name for a single aligned row. Models without the importance
// capability yield ErrExplainUnavailable rather than failing the pipeline.
func Explain(model Model, row features.Matrix) (map[string]float64, error) {
	reporter, ok := model.(ImportanceReporter)
	if !ok {
		return nil, ErrExplainUnavailable
	}
	importances := reporter.FeatureImportances()
	if importances == nil {
		return nil, ErrExplainUnavailable
	}

	names := model.FeatureNames()
	if len(importances) != len(names) {
		return nil, fmt.Errorf("model reported %d importances for %d features", len(importances), len(names))
	}

	out := make(map[string]float64, len(names))
	for i, name := range names {
		out[name] = importances[i]
	}
	return out, nil
}
