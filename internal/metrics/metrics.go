// Package metrics provides Prometheus metrics for the enrichment core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	EventsTotal      *prometheus.CounterVec
	ListenerErrors   *prometheus.CounterVec
	SuggestionsTotal *prometheus.CounterVec
	ApprovalsTotal   *prometheus.CounterVec
	StoreOpsTotal    *prometheus.CounterVec
	SearchDuration   prometheus.Histogram
	EntriesStored    prometheus.Gauge
	ActionsTotal     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socrates_events_total",
				Help: "Total events emitted on the bus by kind.",
			},
			[]string{"kind"},
		),
		ListenerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socrates_listener_errors_total",
				Help: "Total listener failures caught at the bus boundary by kind.",
			},
			[]string{"kind"},
		),
		SuggestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socrates_suggestions_total",
				Help: "Total suggestions by outcome (queued, approved, rejected, cleared).",
			},
			[]string{"outcome"},
		),
		ApprovalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socrates_approvals_total",
				Help: "Total approval attempts by result.",
			},
			[]string{"result"},
		),
		StoreOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socrates_store_ops_total",
				Help: "Total knowledge store operations by op and status.",
			},
			[]string{"op", "status"},
		),
		SearchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "socrates_search_duration_seconds",
				Help:    "Similarity search duration.",
				Buckets: prometheus.DefBuckets,
			},
		),
		EntriesStored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "socrates_knowledge_entries",
				Help: "Number of knowledge entries currently stored.",
			},
		),
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socrates_actions_total",
				Help: "Total orchestrator actions by action and status.",
			},
			[]string{"action", "status"},
		),
		registry: reg,
	}

	reg.MustRegister(m.EventsTotal)
	reg.MustRegister(m.ListenerErrors)
	reg.MustRegister(m.SuggestionsTotal)
	reg.MustRegister(m.ApprovalsTotal)
	reg.MustRegister(m.StoreOpsTotal)
	reg.MustRegister(m.SearchDuration)
	reg.MustRegister(m.EntriesStored)
	reg.MustRegister(m.ActionsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEvent increments the emitted-event counter.
func (m *Metrics) RecordEvent(kind string) {
	m.EventsTotal.WithLabelValues(kind).Inc()
}

// RecordListenerError increments the listener failure counter.
func (m *Metrics) RecordListenerError(kind string) {
	m.ListenerErrors.WithLabelValues(kind).Inc()
}

// RecordSuggestion increments the suggestion counter for an outcome.
func (m *Metrics) RecordSuggestion(outcome string) {
	m.SuggestionsTotal.WithLabelValues(outcome).Inc()
}

// RecordApproval increments the approval counter.
func (m *Metrics) RecordApproval(result string) {
	m.ApprovalsTotal.WithLabelValues(result).Inc()
}

// RecordStoreOp increments the store operation counter.
func (m *Metrics) RecordStoreOp(op, status string) {
	m.StoreOpsTotal.WithLabelValues(op, status).Inc()
}

// RecordAction increments the orchestrator action counter.
func (m *Metrics) RecordAction(action, status string) {
	m.ActionsTotal.WithLabelValues(action, status).Inc()
}

// ObserveSearch records a similarity search duration.
func (m *Metrics) ObserveSearch(seconds float64) {
	m.SearchDuration.Observe(seconds)
}

// SetEntriesStored sets the stored entry gauge.
func (m *Metrics) SetEntriesStored(count float64) {
	m.EntriesStored.Set(count)
}
