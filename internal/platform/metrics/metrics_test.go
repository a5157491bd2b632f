package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersPortalMetrics(t *testing.T) {
	m := New()
	m.ObserveBackend("get_catalog", 200, 10*time.Millisecond)
	m.SignatureRequested("remote", "ok")
	m.GateDenied("checklist_incomplete")
	m.Acknowledged("single", "ok")
	m.SessionOpened("patient")
	m.SetBreakerState(2)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"portal_backend_requests_total",
		"portal_backend_request_duration_seconds",
		"portal_backend_circuit_breaker_state",
		"portal_signature_requests_total",
		"portal_signature_gate_denials_total",
		"portal_checklist_acknowledgements_total",
		"portal_sessions_opened_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
	if got := testutil.ToFloat64(m.GateDenialsTotal.WithLabelValues("checklist_incomplete")); got != 1 {
		t.Errorf("expected 1 denial, got %v", got)
	}
	if got := testutil.ToFloat64(m.BackendBreakerState); got != 2 {
		t.Errorf("expected breaker state 2, got %v", got)
	}
}

func TestNilMetrics_AreNoOps(t *testing.T) {
	var m *Metrics
	m.ObserveBackend("x", 500, time.Second)
	m.SignatureRequested("remote", "error")
	m.GateDenied("invalid_session")
	m.Acknowledged("bulk", "error")
	m.SessionOpened("practitioner")
	m.SetBreakerState(1)
}

func TestMiddleware_RecordsRoute(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/appointments/:id/dashboard", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/metrics", m.Handler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/42/dashboard", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	counter := m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/appointments/:id/dashboard", "204")
	if got := testutil.ToFloat64(counter); got != 1 {
		t.Errorf("expected 1 request recorded, got %v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "portal_http_requests_total") {
		t.Error("exposition does not contain portal_http_requests_total")
	}
}
