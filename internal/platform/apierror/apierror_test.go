package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestUserMessage_ClientErrorKeepsDetail(t *testing.T) {
	err := fmt.Errorf("start signature: %w", &Error{Op: "start_signature", Status: 409, Detail: "Signature déjà envoyée"})
	if got := UserMessage(err, "Échec de la demande de signature"); got != "Signature déjà envoyée" {
		t.Errorf("expected verbatim detail, got %q", got)
	}
	if got := HTTPStatus(err); got != http.StatusConflict {
		t.Errorf("expected 409, got %d", got)
	}
}

func TestUserMessage_ServerErrorUsesFallback(t *testing.T) {
	err := &Error{Op: "start_signature", Status: 500, Detail: "stack trace"}
	if got := UserMessage(err, "Échec de la demande de signature"); got != "Échec de la demande de signature" {
		t.Errorf("expected fallback, got %q", got)
	}
	if got := HTTPStatus(err); got != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", got)
	}
}

func TestUserMessage_NetworkError(t *testing.T) {
	err := fmt.Errorf("get catalog: %w", ErrUnavailable)
	if got := UserMessage(err, "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
	if got := HTTPStatus(err); got != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", got)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(&Error{Status: 404}) {
		t.Error("expected 404 to be not found")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("plain errors are not backend 404s")
	}
}

func TestError_Message(t *testing.T) {
	e := &Error{Op: "otp_verify", Status: 400, Detail: "Code invalide"}
	if e.Error() != "otp_verify: backend returned 400: Code invalide" {
		t.Errorf("unexpected message %q", e.Error())
	}
	e.Detail = ""
	if e.Error() != "otp_verify: backend returned 400" {
		t.Errorf("unexpected message %q", e.Error())
	}
}

func TestHTTPError(t *testing.T) {
	he := HTTPError(&Error{Op: "acknowledge", Status: 422, Detail: "Case inconnue"}, "Échec de l'enregistrement")
	if he.Code != http.StatusUnprocessableEntity || he.Message != "Case inconnue" {
		t.Errorf("unexpected error %+v", he)
	}

	he = HTTPError(fmt.Errorf("acknowledge: %w", ErrUnavailable), "Échec de l'enregistrement")
	if he.Code != http.StatusServiceUnavailable || he.Message != "Échec de l'enregistrement" {
		t.Errorf("unexpected error %+v", he)
	}
}
