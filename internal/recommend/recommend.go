// Package recommend maps a batch's classification outcome to analyst
// guidance. Rules fire on label presence, not on individual rows, and
// the output order is fixed: containment first, monitoring second,
// process hygiene last.
package recommend

import "github.com/socforge/socassist/internal/classify"

var maliciousActions = []string{
	"Isolate affected hosts or user accounts immediately.",
	"Block malicious IPs/domains at firewall and proxy.",
	"Collect forensic artifacts (memory, disk, logs).",
}

var suspiciousActions = []string{
	"Increase monitoring and enable detailed logging for affected entities.",
	"Validate user actions with the business owner.",
}

const benignAction = "No immediate action required; continue routine monitoring."

var closingActions = []string{
	"Create/Update incident ticket and document findings.",
	"Review detection rules to reduce false positives.",
}

// ForLabels builds the recommendation list for a classified batch. The
// malicious and suspicious blocks are additive; the no-action line
// appears only when every row is benign. Closing actions always apply.
func ForLabels(labels []classify.Label) []string {
	var hasMalicious, hasSuspicious bool
	for _, l := range labels {
		switch l {
		case classify.LabelMalicious:
			hasMalicious = true
		case classify.LabelSuspicious:
			hasSuspicious = true
		}
	}

	var recs []string
	if hasMalicious {
		recs = append(recs, maliciousActions...)
	}
	if hasSuspicious {
		recs = append(recs, suspiciousActions...)
	}
	if !hasMalicious && !hasSuspicious {
		recs = append(recs, benignAction)
	}
	recs = append(recs, closingActions...)
	return recs
}

// ForResults is a convenience over ForLabels for classified rows.
func ForResults(results []classify.Result) []string {
	labels := make([]classify.Label, len(results))
	for i, r := range results {
		labels[i] = r.Label
	}
	return ForLabels(labels)
}
