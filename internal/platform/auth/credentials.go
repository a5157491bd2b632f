package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const credentialsKey contextKey = "portal_credentials"

const (
	SessionCookie = "portal_session"
	SessionHeader = "X-Portal-Session"
)

// ErrNoSession is returned by a SessionResolver when the id does not match a
// live session.
var ErrNoSession = errors.New("auth: no active session")

// Credentials identify the caller towards the backend. They are passed
// explicitly to every backend call.
type Credentials struct {
	SessionID string
	Subject   string
	Role      string
	Token     string
}

func (c Credentials) Valid() bool {
	return c.Token != ""
}

type SessionResolver interface {
	ResolveCredentials(ctx context.Context, sessionID string) (Credentials, error)
}

func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

func CredentialsFromContext(ctx context.Context) (Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey).(Credentials)
	return creds, ok
}

// CredentialsFrom returns the credentials attached by SessionMiddleware.
func CredentialsFrom(c echo.Context) Credentials {
	creds, _ := CredentialsFromContext(c.Request().Context())
	return creds
}

// SessionIDFrom reads the session id from the cookie, then the header.
func SessionIDFrom(c echo.Context) string {
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	return strings.TrimSpace(c.Request().Header.Get(SessionHeader))
}

// SessionMiddleware resolves the portal session and attaches its credentials
// to the request context.
func SessionMiddleware(resolver SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := SessionIDFrom(c)
			if sid == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Veuillez vous connecter.")
			}

			creds, err := resolver.ResolveCredentials(c.Request().Context(), sid)
			if errors.Is(err, ErrNoSession) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Session expirée, veuillez vous reconnecter.")
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Session indisponible, veuillez réessayer.")
			}

			c.Set("portal_session_id", creds.SessionID)
			c.Set("portal_role", creds.Role)
			c.SetRequest(c.Request().WithContext(WithCredentials(c.Request().Context(), creds)))
			return next(c)
		}
	}
}

// RequireRole returns middleware that checks the session role.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			creds := CredentialsFrom(c)
			for _, r := range roles {
				if creds.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Accès non autorisé pour ce profil.")
		}
	}
}
