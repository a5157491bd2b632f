package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pediconsent/portal/internal/platform/auth"
	"github.com/pediconsent/portal/internal/platform/clock"
)

func TestHandler_OpenSession_SetsCookie(t *testing.T) {
	svc := newTestService(NewMemoryRepo(), clock.NewManaged(time.Now()))
	h := NewHandler(svc, true)

	body := `{"token":"` + signToken(t, auth.RolePatient, time.Now().Add(time.Hour)) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := h.OpenSession(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.SessionCookie || !cookies[0].HttpOnly || !cookies[0].Secure {
		t.Errorf("unexpected cookies %+v", cookies)
	}
	if strings.Contains(rec.Body.String(), "backend_token") || strings.Contains(rec.Body.String(), "eyJ") {
		t.Error("the backend token must never reach the browser")
	}
}

func TestHandler_OpenSession_BadToken(t *testing.T) {
	h := NewHandler(newTestService(NewMemoryRepo(), clock.NewManaged(time.Now())), false)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"token":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := echo.New().NewContext(req, httptest.NewRecorder())

	err := h.OpenSession(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandler_SessionRoutesThroughMiddleware(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo, clock.NewManaged(testStart))
	sess := &PortalSession{Subject: "g", Role: auth.RolePatient, BackendToken: "tok", ExpiresAt: testStart.Add(time.Hour)}
	_ = repo.Create(context.Background(), sess)

	e := echo.New()
	api := e.Group("/api/v1", auth.SessionMiddleware(svc))
	NewHandler(svc, false).RegisterRoutes(api, e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodPut, "/api/v1/session/acknowledgement", strings.NewReader(`{"confirmed":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(auth.SessionHeader, sess.ID.String())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"acknowledgement_confirmed":true`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/session", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: sess.ID.String()})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set(auth.SessionHeader, sess.ID.String())
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}
