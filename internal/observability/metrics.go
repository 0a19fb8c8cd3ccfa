package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Skip reasons recorded by RecordSkip.
const (
	SkipReasonNoSLAMatch      = "no_sla_match"
	SkipReasonBadHistory      = "inconsistent_history"
	SkipReasonCompanyData     = "company_data_unavailable"
	SkipReasonEvaluationError = "evaluation_error"
)

// Metrics exposes sweep and HTTP counters on a private Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	sweepsTotal          prometheus.Counter
	sweepFailures        prometheus.Counter
	sweepDuration        prometheus.Histogram
	ticketsEvaluated     prometheus.Counter
	ticketsSkipped       *prometheus.CounterVec
	breachesMarked       prometheus.Counter
	dueSoonNotices       prometheus.Counter
	notificationFailures prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpErrors   *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics initializes the metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		sweepsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sla_sweeps_total",
			Help: "Completed compliance sweeps.",
		}),
		sweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "sla_sweep_failures_total",
			Help: "Sweeps aborted before evaluating tickets.",
		}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_sweep_duration_seconds",
			Help:    "Wall-clock duration of compliance sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
		ticketsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "sla_tickets_evaluated_total",
			Help: "Tickets evaluated across all sweeps.",
		}),
		ticketsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_tickets_skipped_total",
			Help: "Tickets a sweep could not evaluate, by reason.",
		}, []string{"reason"}),
		breachesMarked: factory.NewCounter(prometheus.CounterOpts{
			Name: "sla_breaches_marked_total",
			Help: "Breach flag transitions won by this process.",
		}),
		dueSoonNotices: factory.NewCounter(prometheus.CounterOpts{
			Name: "sla_due_soon_notices_total",
			Help: "Due-soon notifications requested.",
		}),
		notificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "sla_notification_failures_total",
			Help: "Notifications dropped after exhausting delivery attempts.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"path", "method", "status"}),
		httpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "HTTP requests that ended in an application error, by code.",
		}, []string{"path", "method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(path, method, code).Inc()
}

// RecordSweep observes one completed sweep.
func (m *Metrics) RecordSweep(duration time.Duration) {
	if m == nil {
		return
	}
	m.sweepsTotal.Inc()
	m.sweepDuration.Observe(duration.Seconds())
}

// RecordSweepFailure counts a sweep that aborted before evaluation.
func (m *Metrics) RecordSweepFailure() {
	if m == nil {
		return
	}
	m.sweepFailures.Inc()
}

// RecordEvaluation counts one evaluated ticket.
func (m *Metrics) RecordEvaluation() {
	if m == nil {
		return
	}
	m.ticketsEvaluated.Inc()
}

// RecordSkip counts a ticket the sweep could not judge.
func (m *Metrics) RecordSkip(reason string) {
	if m == nil {
		return
	}
	m.ticketsSkipped.WithLabelValues(reason).Inc()
}

// RecordBreach counts a won breach-flag transition.
func (m *Metrics) RecordBreach() {
	if m == nil {
		return
	}
	m.breachesMarked.Inc()
}

// RecordDueSoon counts a due-soon notification request.
func (m *Metrics) RecordDueSoon() {
	if m == nil {
		return
	}
	m.dueSoonNotices.Inc()
}

// RecordNotificationFailure counts a notification dropped after its last
// delivery attempt.
func (m *Metrics) RecordNotificationFailure() {
	if m == nil {
		return
	}
	m.notificationFailures.Inc()
}
