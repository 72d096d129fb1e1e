package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the bot's prometheus collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	interactions    *prometheus.CounterVec
	filterTriggers  *prometheus.CounterVec
	sanctions       *prometheus.CounterVec
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modbot_admin_requests_total",
			Help: "Admin API requests by route, method and status",
		}, []string{"path", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modbot_admin_request_duration_seconds",
			Help:    "Admin API request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modbot_admin_errors_total",
			Help: "Admin API errors by route, method and error code",
		}, []string{"path", "method", "code"}),
		interactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modbot_interactions_total",
			Help: "Dispatched interactions by action and outcome",
		}, []string{"action", "outcome"}),
		filterTriggers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modbot_automod_triggers_total",
			Help: "Auto-moderation filter triggers",
		}, []string{"filter"}),
		sanctions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modbot_sanctions_total",
			Help: "Sanctions applied and reversed",
		}, []string{"kind", "op"}),
	}
}

// RecordRequest increments counters for admin requests.
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

// RecordInteraction counts a routed interaction.
func (m *Metrics) RecordInteraction(action, outcome string) {
	if m == nil {
		return
	}
	m.interactions.WithLabelValues(action, outcome).Inc()
}

// RecordFilterTrigger counts an auto-moderation hit.
func (m *Metrics) RecordFilterTrigger(filter string) {
	if m == nil {
		return
	}
	m.filterTriggers.WithLabelValues(filter).Inc()
}

// RecordSanction counts a sanction being applied ("apply") or reversed ("reverse").
func (m *Metrics) RecordSanction(kind, op string) {
	if m == nil {
		return
	}
	m.sanctions.WithLabelValues(kind, op).Inc()
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
