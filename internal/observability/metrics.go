package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/cleared-dev/acctree/internal/model"
)

// Metrics holds the engine and propagation metrics.
type Metrics struct {
	// Registry owns these metrics and backs the /metrics endpoint.
	Registry *prometheus.Registry

	passDuration     *prometheus.HistogramVec
	issues           *prometheus.CounterVec
	warnings         *prometheus.CounterVec
	recommendations  *prometheus.CounterVec
	propagated       prometheus.Counter
	propagationFails prometheus.Counter
}

// NewMetrics registers every metric in a private registry, so several
// instances can coexist in tests.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		passDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "acctree_pass_duration_seconds",
				Help:    "Duration of validation passes by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		issues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acctree_issues_total",
				Help: "Classification conflicts found, by error type.",
			},
			[]string{"type"},
		),
		warnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acctree_data_warnings_total",
				Help: "Data-quality warnings, by kind.",
			},
			[]string{"kind"},
		),
		recommendations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acctree_recommendations_total",
				Help: "Recommendations served, by source.",
			},
			[]string{"source"},
		),
		propagated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "acctree_propagated_records_total",
				Help: "Historical records rewritten by retroactive rule edits.",
			},
		),
		propagationFails: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "acctree_propagation_failures_total",
				Help: "Retroactive rule edits rolled back.",
			},
		),
	}
}

// RecordPass records the duration of a pass.
func (m *Metrics) RecordPass(operation string, d time.Duration) {
	m.passDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordIssues counts issues by type.
func (m *Metrics) RecordIssues(issues []model.Issue) {
	for _, is := range issues {
		m.issues.WithLabelValues(string(is.ErrorType)).Inc()
	}
}

// RecordWarnings counts data-quality warnings by kind.
func (m *Metrics) RecordWarnings(warnings []model.Warning) {
	for _, w := range warnings {
		m.warnings.WithLabelValues(string(w.Kind)).Inc()
	}
}

// IncrRecommendation counts a recommendation by source.
func (m *Metrics) IncrRecommendation(source string) {
	m.recommendations.WithLabelValues(source).Inc()
}

// AddPropagated counts rewritten records.
func (m *Metrics) AddPropagated(n int) {
	m.propagated.Add(float64(n))
}

// IncrPropagationFailure counts a rolled-back edit.
func (m *Metrics) IncrPropagationFailure() {
	m.propagationFails.Inc()
}

// Snapshot is a point-in-time read of the counters.
type Snapshot struct {
	IssuesByType        map[string]float64 `json:"issuesByType"`
	Recommendations     map[string]float64 `json:"recommendations"`
	PropagatedRecords   float64            `json:"propagatedRecords"`
	PropagationFailures float64            `json:"propagationFailures"`
}

// Snapshot reads the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		IssuesByType:        make(map[string]float64),
		Recommendations:     make(map[string]float64),
		PropagatedRecords:   counterValue(m.propagated),
		PropagationFailures: counterValue(m.propagationFails),
	}
	for _, t := range model.ErrorTypes {
		s.IssuesByType[string(t)] = counterValue(m.issues.WithLabelValues(string(t)))
	}
	for _, src := range []string{"existing", "sibling_pattern", "hierarchy", "none"} {
		s.Recommendations[src] = counterValue(m.recommendations.WithLabelValues(src))
	}
	return s
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
