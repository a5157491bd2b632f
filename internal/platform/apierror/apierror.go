// Package apierror carries errors returned by the surgical backend so the
// server's own "detail" message can be shown to the guardian verbatim.
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrUnavailable is returned when the backend cannot be reached or the
// circuit breaker is open.
var ErrUnavailable = errors.New("backend unavailable")

// Error is a non-2xx answer from the backend.
type Error struct {
	Op     string
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
}

// IsClientError reports a 4xx rejection, whose detail is meant for the user.
func (e *Error) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports a backend 404.
func IsNotFound(err error) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Status == http.StatusNotFound
}

// UserMessage returns the text to show for a failed action: the backend's
// detail for 4xx rejections, the generic fallback otherwise.
func UserMessage(err error, fallback string) string {
	if apiErr, ok := As(err); ok && apiErr.IsClientError() && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// HTTPStatus maps err to the status the portal answers with. 4xx rejections
// keep the backend status; everything else is a bad gateway.
func HTTPStatus(err error) int {
	if apiErr, ok := As(err); ok && apiErr.IsClientError() {
		return apiErr.Status
	}
	if errors.Is(err, ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// HTTPError converts err into the echo error returned to the browser.
func HTTPError(err error, fallback string) *echo.HTTPError {
	return echo.NewHTTPError(HTTPStatus(err), UserMessage(err, fallback))
}
