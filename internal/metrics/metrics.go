// Package metrics holds the storefront's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics owns a registry and every collector registered on it.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ordersSubmitted     *prometheus.CounterVec
	submitDuration      prometheus.Histogram
	notificationsSent   *prometheus.CounterVec
	outboxPending       prometheus.Gauge
	statusChanges       *prometheus.CounterVec
	sessionsActive      prometheus.Gauge
	eventsPublished     *prometheus.CounterVec
	circuitBreakerState *prometheus.GaugeVec
}

// New creates collectors on a fresh registry, including the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"service", "method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"service", "method", "path"}),
		ordersSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "submitted_total",
			Help:      "Order submissions by result.",
		}, []string{"result"}),
		submitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "submit_duration_seconds",
			Help:      "Time spent persisting an order.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Notification deliveries by recipient and result.",
		}, []string{"recipient", "result"}),
		outboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "outbox_pending",
			Help:      "Messages waiting for redelivery.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "status_changes_total",
			Help:      "Operator status changes by target status.",
		}, []string{"status"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "configurator",
			Name:      "sessions_active",
			Help:      "Open configurator sessions.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Order events by type and result.",
		}, []string{"type", "result"}),
		circuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "circuit_state",
			Help:      "Backend circuit breaker state (0 closed, 1 open, 2 half-open).",
		}, []string{"backend"}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.ordersSubmitted,
		m.submitDuration,
		m.notificationsSent,
		m.outboxPending,
		m.statusChanges,
		m.sessionsActive,
		m.eventsPublished,
		m.circuitBreakerState,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncrementInFlight() { m.httpInFlight.Inc() }
func (m *Metrics) DecrementInFlight() { m.httpInFlight.Dec() }

// RecordHTTPRequest records one handled request.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(service, method, path, status).Inc()
	m.httpDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordOrderSubmission records a gateway submission. result is "accepted" or an error code.
func (m *Metrics) RecordOrderSubmission(result string, duration time.Duration) {
	m.ordersSubmitted.WithLabelValues(result).Inc()
	if duration > 0 {
		m.submitDuration.Observe(duration.Seconds())
	}
}

// RecordNotification records one delivery attempt. recipient is "operator" or "buyer".
func (m *Metrics) RecordNotification(recipient string, ok bool) {
	m.notificationsSent.WithLabelValues(recipient, result(ok)).Inc()
}

func (m *Metrics) SetOutboxPending(n int) { m.outboxPending.Set(float64(n)) }

func (m *Metrics) RecordStatusChange(status string) {
	m.statusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) SessionOpened() { m.sessionsActive.Inc() }
func (m *Metrics) SessionClosed() { m.sessionsActive.Dec() }

func (m *Metrics) RecordEvent(eventType string, ok bool) {
	m.eventsPublished.WithLabelValues(eventType, result(ok)).Inc()
}

// SetCircuitState records a breaker transition. state follows the client's CircuitState values.
func (m *Metrics) SetCircuitState(backend string, state int) {
	m.circuitBreakerState.WithLabelValues(backend).Set(float64(state))
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
