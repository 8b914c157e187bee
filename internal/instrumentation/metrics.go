package instrumentation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roombooker"

// Metrics records request and upstream call metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	googleCallsTotal   *prometheus.CounterVec
	googleCallDuration *prometheus.HistogramVec

	roomSelections *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		googleCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "google_api_calls_total",
			Help:      "Total number of Google API calls by service, operation and mapped status.",
		}, []string{"service", "operation", "status"}),
		googleCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "google_api_call_duration_seconds",
			Help:      "Google API call duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"service", "operation"}),
		roomSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_selections_total",
			Help:      "Outcome of availability resolution for bookings.",
		}, []string{"result"}),
	}
	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.googleCallsTotal,
		m.googleCallDuration,
		m.roomSelections,
	)
	return m
}

// RecordHTTPRequest counts one served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordGoogleCall counts one upstream call. status is the mapped HTTP status.
func (m *Metrics) RecordGoogleCall(service, operation string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.googleCallsTotal.WithLabelValues(service, operation, strconv.Itoa(status)).Inc()
	m.googleCallDuration.WithLabelValues(service, operation).Observe(elapsed.Seconds())
}

// RecordRoomSelection counts a booking attempt by result ("booked" or "none_available").
func (m *Metrics) RecordRoomSelection(result string) {
	if m == nil {
		return
	}
	m.roomSelections.WithLabelValues(result).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
