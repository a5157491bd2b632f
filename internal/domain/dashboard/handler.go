package dashboard

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pediconsent/portal/internal/domain/legal"
	"github.com/pediconsent/portal/internal/platform/apierror"
	"github.com/pediconsent/portal/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RolePatient, auth.RolePractitioner))
	g.GET("/appointments/:id/dashboard", h.GetDashboard)
	g.GET("/appointments/:id/eligibility", h.GetEligibility)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	id, err := legal.AppointmentParam(c)
	if err != nil {
		return err
	}
	vm, err := h.svc.Build(c.Request().Context(), auth.CredentialsFrom(c), id)
	if err != nil {
		return toHTTPError(err, "Échec du chargement du tableau de bord.")
	}
	return c.JSON(http.StatusOK, vm)
}

// GetEligibility answers ?document_type=&signer_role= for one pair.
func (h *Handler) GetEligibility(c echo.Context) error {
	id, err := legal.AppointmentParam(c)
	if err != nil {
		return err
	}
	dt := legal.DocumentType(c.QueryParam("document_type"))
	role := legal.Role(c.QueryParam("signer_role"))
	el, err := h.svc.Eligibility(c.Request().Context(), auth.CredentialsFrom(c), id, dt, role)
	if err != nil {
		return toHTTPError(err, "Échec de la vérification de l'éligibilité.")
	}
	return c.JSON(http.StatusOK, el)
}

func toHTTPError(err error, fallback string) *echo.HTTPError {
	switch {
	case errors.Is(err, legal.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	case errors.Is(err, legal.ErrUnknownDocument):
		return echo.NewHTTPError(http.StatusNotFound, "Document introuvable.")
	}
	return apierror.HTTPError(err, fallback)
}
