package enrichment

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/socforge/socassist/internal/observability"
)

// IP fields of a candidate row that are looked up independently.
const (
	FieldSourceIP      = "source_ip"
	FieldDestinationIP = "destination_ip"
)

// Candidate is one classified row offered for enrichment. Index is the
// row's position in the original batch.
type Candidate struct {
	Index         int
	SourceIP      string
	DestinationIP string
	RiskScore     float64
}

// Entry is the enrichment outcome for one selected candidate. Lookups is
// keyed by IP field, then by provider name. A field absent from the row
// is absent from the map.
type Entry struct {
	Index         int                          `json:"index"`
	SourceIP      string                       `json:"source_ip,omitempty"`
	DestinationIP string                       `json:"destination_ip,omitempty"`
	RiskScore     float64                      `json:"risk_score"`
	Lookups       map[string]map[string]Result `json:"lookups"`
}

// Orchestrator fans lookups for the highest-risk rows out across the
// configured providers.
type Orchestrator struct {
	providers []Provider
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewOrchestrator creates an orchestrator over the given providers.
// metrics may be nil.
func NewOrchestrator(providers []Provider, logger *zap.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		logger:    logger,
		metrics:   metrics,
	}
}

// Providers returns the configured providers.
func (o *Orchestrator) Providers() []Provider {
	return o.providers
}

// lookupJob pairs one candidate IP field with its slot in the result set.
type lookupJob struct {
	entry int
	field string
	ip    string
}

// Enrich selects the topK highest-risk candidates and queries every
// provider for each non-empty IP field. Selection is a stable sort by
// descending risk, so equal-risk rows keep their batch order. Lookups
// run concurrently; each writes to its own slot, so no locking is
// needed beyond the providers' own caches.
func (o *Orchestrator) Enrich(ctx context.Context, candidates []Candidate, topK int) []Entry {
	if topK <= 0 || len(candidates) == 0 || len(o.providers) == 0 {
		return nil
	}

	selected := make([]Candidate, len(candidates))
	copy(selected, candidates)
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].RiskScore > selected[j].RiskScore
	})
	if topK < len(selected) {
		selected = selected[:topK]
	}

	entries := make([]Entry, len(selected))
	var jobs []lookupJob
	for i, c := range selected {
		entries[i] = Entry{
			Index:         c.Index,
			SourceIP:      c.SourceIP,
			DestinationIP: c.DestinationIP,
			RiskScore:     c.RiskScore,
			Lookups:       make(map[string]map[string]Result, 2),
		}
		if c.SourceIP != "" {
			jobs = append(jobs, lookupJob{entry: i, field: FieldSourceIP, ip: c.SourceIP})
		}
		if c.DestinationIP != "" {
			jobs = append(jobs, lookupJob{entry: i, field: FieldDestinationIP, ip: c.DestinationIP})
		}
	}

	type slot struct {
		job      lookupJob
		provider string
		result   Result
	}
	slots := make([]slot, len(jobs)*len(o.providers))

	var wg sync.WaitGroup
	for ji, job := range jobs {
		for pi, provider := range o.providers {
			wg.Add(1)
			go func(idx int, job lookupJob, p Provider) {
				defer wg.Done()
				start := time.Now()
				res := p.Lookup(ctx, job.ip)
				if o.metrics != nil {
					o.metrics.EnrichmentDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
				}
				slots[idx] = slot{job: job, provider: p.Name(), result: res}
			}(ji*len(o.providers)+pi, job, provider)
		}
	}
	wg.Wait()

	for _, s := range slots {
		e := &entries[s.job.entry]
		if e.Lookups[s.job.field] == nil {
			e.Lookups[s.job.field] = make(map[string]Result, len(o.providers))
		}
		e.Lookups[s.job.field][s.provider] = s.result
	}

	o.logger.Debug("enrichment complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(selected)),
		zap.Int("lookups", len(slots)))

	return entries
}
