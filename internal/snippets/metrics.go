// Package snippets tracks generation statistics.
//
// This file defines the Prometheus collectors updated by a generation run:
// emitted snippets, skipped operations by reason, section headings and the
// run duration. Each Metrics value owns a private registry so that runs and
// tests never share counters; the CLI can export it in the textfile format
// read by node_exporter.
package snippets

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "apisnippets"

// Skip reasons used as the "reason" label of SnippetsSkipped.
const (
	SkipReasonNotFound  = "not_found"
	SkipReasonMalformed = "malformed"
	SkipReasonOther     = "other"
)

// Metrics holds the collectors of one generation run.
type Metrics struct {
	registry *prometheus.Registry

	SnippetsEmitted prometheus.Counter
	SnippetsSkipped *prometheus.CounterVec
	Sections        prometheus.Counter
	RunDuration     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SnippetsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "snippets_emitted_total",
			Help:      "Number of operations emitted as snippets.",
		}),
		SnippetsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "snippets_skipped_total",
			Help:      "Number of operations skipped, by reason.",
		}, []string{"reason"}),
		Sections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sections_total",
			Help:      "Number of tag section headings written.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last generation run.",
		}),
	}
	m.registry.MustRegister(m.SnippetsEmitted, m.SnippetsSkipped, m.Sections, m.RunDuration)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteToTextfile writes all collectors to path in the Prometheus text format.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) emitted() {
	if m != nil {
		m.SnippetsEmitted.Inc()
	}
}

func (m *Metrics) skipped(err error) {
	if m == nil {
		return
	}
	m.SnippetsSkipped.WithLabelValues(skipReason(err)).Inc()
}

func (m *Metrics) section() {
	if m != nil {
		m.Sections.Inc()
	}
}

func (m *Metrics) observeRun(start time.Time) {
	if m != nil {
		m.RunDuration.Set(time.Since(start).Seconds())
	}
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrOperationNotFound):
		return SkipReasonNotFound
	case errors.Is(err, ErrMalformedOperation):
		return SkipReasonMalformed
	default:
		return SkipReasonOther
	}
}
