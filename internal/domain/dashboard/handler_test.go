package dashboard

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/pediconsent/portal/internal/platform/auth"
	"github.com/pediconsent/portal/internal/platform/jsoncodec"
)

func newAuthedContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.JSONSerializer = jsoncodec.Serializer{}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithCredentials(req.Context(), testCreds))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")
	return c, rec
}

func TestHandler_GetDashboard(t *testing.T) {
	h := NewHandler(newTestService(readyBackend()))
	c, rec := newAuthedContext("/")

	if err := h.GetDashboard(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`"appointment_id":42`, `"eligibility"`, `"steps"`, `"can_sign_remote":true`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in body %s", want, body)
		}
	}
}

func TestHandler_GetEligibility_UnknownDocument(t *testing.T) {
	h := NewHandler(newTestService(readyBackend()))
	c, _ := newAuthedContext("/?document_type=fees_consent_quote&signer_role=parent1")

	err := h.GetEligibility(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
