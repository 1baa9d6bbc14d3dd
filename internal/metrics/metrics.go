// Package metrics records import pipeline metrics via Prometheus.
package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements the importer's Recorder against a
// Prometheus registry.
type PrometheusRecorder struct {
	importDuration *prom.HistogramVec
	importOutcome  *prom.CounterVec
	sectionsTotal  prom.Counter
	policiesTotal  prom.Counter
}

// NewPrometheusRecorder constructs and registers the import metrics on
// reg. A nil reg gets a private registry, which keeps tests independent.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	r := &PrometheusRecorder{
		importDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "manualforge",
			Name:      "import_duration_seconds",
			Help:      "Duration of preview and commit phases",
			Buckets:   prom.DefBuckets,
		}, []string{"mode"}),
		importOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "manualforge",
			Name:      "imports_total",
			Help:      "Import phase outcomes",
		}, []string{"mode", "outcome"}),
		sectionsTotal: prom.NewCounter(prom.CounterOpts{
			Namespace: "manualforge",
			Name:      "structure_sections_total",
			Help:      "Sections produced by structure extraction",
		}),
		policiesTotal: prom.NewCounter(prom.CounterOpts{
			Namespace: "manualforge",
			Name:      "structure_policies_total",
			Help:      "Policies produced by structure extraction",
		}),
	}

	reg.MustRegister(r.importDuration, r.importOutcome, r.sectionsTotal, r.policiesTotal)
	return r
}

// ObserveImport records one preview or commit phase.
func (r *PrometheusRecorder) ObserveImport(mode, outcome string, d time.Duration) {
	r.importOutcome.WithLabelValues(mode, outcome).Inc()
	r.importDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveStructure records the size of one extracted structure.
func (r *PrometheusRecorder) ObserveStructure(sections, policies int) {
	r.sectionsTotal.Add(float64(sections))
	r.policiesTotal.Add(float64(policies))
}
