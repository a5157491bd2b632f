package portal

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pediconsent/portal/internal/platform/auth"
)

type Handler struct {
	svc          *Service
	secureCookie bool
}

func NewHandler(svc *Service, secureCookie bool) *Handler {
	return &Handler{svc: svc, secureCookie: secureCookie}
}

// RegisterRoutes mounts login on public and the rest on api, which runs
// behind auth.SessionMiddleware.
func (h *Handler) RegisterRoutes(api, public *echo.Group) {
	public.POST("/session", h.OpenSession)

	api.GET("/session", h.GetSession)
	api.DELETE("/session", h.CloseSession)
	api.PUT("/session/acknowledgement", h.SetAcknowledgement)
}

type openRequest struct {
	Token string `json:"token"`
}

func (h *Handler) OpenSession(c echo.Context) error {
	var req openRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	}
	sess, err := h.svc.Open(c.Request().Context(), req.Token)
	if errors.Is(err, auth.ErrInvalidToken) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Identifiants invalides ou expirés.")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Connexion impossible, veuillez réessayer.")
	}
	h.setCookie(c, sess.ID.String(), sess.ExpiresAt)
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.svc.Get(c.Request().Context(), auth.CredentialsFrom(c).SessionID)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) CloseSession(c echo.Context) error {
	if err := h.svc.Close(c.Request().Context(), auth.CredentialsFrom(c).SessionID); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Déconnexion impossible, veuillez réessayer.")
	}
	h.setCookie(c, "", time.Unix(0, 0))
	return c.NoContent(http.StatusNoContent)
}

type acknowledgementRequest struct {
	Confirmed bool `json:"confirmed"`
}

func (h *Handler) SetAcknowledgement(c echo.Context) error {
	var req acknowledgementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	}
	sess, err := h.svc.SetAcknowledgement(c.Request().Context(), auth.CredentialsFrom(c).SessionID, req.Confirmed)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) setCookie(c echo.Context, value string, expires time.Time) {
	ck := &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		ck.MaxAge = -1
	}
	c.SetCookie(ck)
}

func sessionError(err error) *echo.HTTPError {
	if errors.Is(err, auth.ErrNoSession) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Session expirée, veuillez vous reconnecter.")
	}
	return echo.NewHTTPError(http.StatusServiceUnavailable, "Session indisponible, veuillez réessayer.")
}
