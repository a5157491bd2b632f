// Package metrics holds the Prometheus instruments of the portal server.
// Every recording method is safe on a nil *Metrics so services can run
// without instrumentation in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpDurationBuckets    = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	backendDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	BackendRequestsTotal   *prometheus.CounterVec
	BackendRequestDuration *prometheus.HistogramVec
	BackendBreakerState    prometheus.Gauge

	SignatureRequestsTotal *prometheus.CounterVec
	GateDenialsTotal       *prometheus.CounterVec
	AcknowledgementsTotal  *prometheus.CounterVec
	SessionsOpenedTotal    *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the instruments and registers them on a dedicated registry,
// together with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "route"}),
		BackendRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_backend_requests_total",
			Help: "Total number of calls to the surgical backend.",
		}, []string{"operation", "status"}),
		BackendRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_backend_request_duration_seconds",
			Help:    "Surgical backend call duration in seconds.",
			Buckets: backendDurationBuckets,
		}, []string{"operation"}),
		BackendBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_backend_circuit_breaker_state",
			Help: "Backend circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		SignatureRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_signature_requests_total",
			Help: "Signature link requests by channel and outcome.",
		}, []string{"mode", "outcome"}),
		GateDenialsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_signature_gate_denials_total",
			Help: "Signature requests refused by the eligibility gate, by reason.",
		}, []string{"reason"}),
		AcknowledgementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_checklist_acknowledgements_total",
			Help: "Checklist acknowledgement mutations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		SessionsOpenedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_sessions_opened_total",
			Help: "Portal sessions opened by role.",
		}, []string{"role"}),
		registry: reg,
	}

	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
		m.BackendBreakerState,
		m.SignatureRequestsTotal,
		m.GateDenialsTotal,
		m.AcknowledgementsTotal,
		m.SessionsOpenedTotal,
	)
	return m
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records request count and latency per route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *Metrics) ObserveBackend(operation string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.BackendRequestsTotal.WithLabelValues(operation, label).Inc()
	m.BackendRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) SetBreakerState(state int) {
	if m == nil {
		return
	}
	m.BackendBreakerState.Set(float64(state))
}

func (m *Metrics) SignatureRequested(mode, outcome string) {
	if m == nil {
		return
	}
	m.SignatureRequestsTotal.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) GateDenied(reason string) {
	if m == nil {
		return
	}
	m.GateDenialsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) Acknowledged(kind, outcome string) {
	if m == nil {
		return
	}
	m.AcknowledgementsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) SessionOpened(role string) {
	if m == nil {
		return
	}
	m.SessionsOpenedTotal.WithLabelValues(role).Inc()
}
