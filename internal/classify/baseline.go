package classify

import (
	"math"

	"github.com/socforge/socassist/internal/features"
)

// BaselineModel is a static heuristic probability producer that stands in
// when no externally trained classifier is supplied. Weights are fixed
// domain priors, not fitted parameters; there is no training procedure
// here.
type BaselineModel struct {
	featureNames []string
	weights      map[string]float64
}

// NewBaselineModel builds the default heuristic scorer. Its feature list
// covers the numeric base features plus the categorical values it weighs;
// batch matrices are aligned to it like any trained model.
func NewBaselineModel() *BaselineModel {
	weights := map[string]float64{
		"hour":                     0.02,
		"is_weekend":               0.4,
		"src_is_private":           -0.3,
		"dst_is_private":           -0.5,
		"event_type_login_failure": 1.6,
		"event_type_malware_alert": 2.4,
		"event_type_port_scan":     1.8,
		"event_type_unknown":       0.3,
		"status_failed":            1.2,
		"status_failure":           1.2,
		"status_denied":            0.9,
		"status_unknown":           0.2,
		"username_unknown":         0.4,
	}

	names := make([]string, 0, len(features.BaseNumericFeatures)+len(weights))
	names = append(names, features.BaseNumericFeatures...)
	for _, name := range []string{
		"event_type_login_failure",
		"event_type_malware_alert",
		"event_type_port_scan",
		"event_type_unknown",
		"status_failed",
		"status_failure",
		"status_denied",
		"status_unknown",
		"username_unknown",
	} {
		names = append(names, name)
	}

	return &BaselineModel{featureNames: names, weights: weights}
}

// FeatureNames returns the ordered feature list the scorer consumes.
func (m *BaselineModel) FeatureNames() []string {
	return m.featureNames
}

// PredictProba scores each row and spreads the score over the 3-class
// space via softmax so the output is a proper probability vector.
func (m *BaselineModel) PredictProba(x features.Matrix) ([][]float64, error) {
	out := make([][]float64, x.Len())
	for i, row := range x.Rows {
		var signal float64
		for j, col := range x.Columns {
			if w, ok := m.weights[col]; ok && j < len(row) {
				signal += w * row[j]
			}
		}

		// Linear scores per class: benign falls as signal rises,
		// malicious rises, suspicious peaks in between.
		scores := []float64{1.5 - signal, signal - 0.5, signal - 1.5}
		out[i] = softmax(scores)
	}
	return out, nil
}

// FeatureImportances exposes the weight magnitudes aligned to
// FeatureNames, satisfying the optional explainability capability.
func (m *BaselineModel) FeatureImportances() []float64 {
	imp := make([]float64, len(m.featureNames))
	var total float64
	for i, name := range m.featureNames {
		imp[i] = math.Abs(m.weights[name])
		total += imp[i]
	}
	if total > 0 {
		for i := range imp {
			imp[i] /= total
		}
	}
	return imp
}

func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	var sum float64
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
