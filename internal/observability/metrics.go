package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests             *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	errors               *prometheus.CounterVec
	transitions          *prometheus.CounterVec
	intakes              *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	rosterUpdates        prometheus.Counter
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "helpdesk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "errors_total",
			Help:      "Errors returned to callers by error code.",
		}, []string{"path", "method", "code"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "ticket_transitions_total",
			Help:      "Ticket transitions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		intakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "ticket_intakes_total",
			Help:      "Ticket intake submissions by outcome.",
		}, []string{"outcome"}),
		notificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "notification_failures_total",
			Help:      "Chat notifications that could not be delivered.",
		}, []string{"audience"}),
		rosterUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "roster_updates_total",
			Help:      "Saved on-call roster updates.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.errors,
		m.transitions,
		m.intakes,
		m.notificationFailures,
		m.rosterUpdates,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest observes a completed HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordTransition counts a transition attempt. outcome is "ok" or an error code.
func (m *Metrics) RecordTransition(kind, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind, outcome).Inc()
}

// RecordIntake counts an intake submission. outcome is "ok" or an error code.
func (m *Metrics) RecordIntake(outcome string) {
	if m == nil {
		return
	}
	m.intakes.WithLabelValues(outcome).Inc()
}

// RecordNotificationFailure counts an undelivered notification for "sme", "requester" or "roster".
func (m *Metrics) RecordNotificationFailure(audience string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(audience).Inc()
}

// RecordRosterUpdate counts a saved roster.
func (m *Metrics) RecordRosterUpdate() {
	if m == nil {
		return
	}
	m.rosterUpdates.Inc()
}
