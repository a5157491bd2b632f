package dossier

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
	g.GET("/appointments/:id/dossier", h.GetDossier)
	g.PUT("/appointments/:id/dossier", h.UpdateDossier)
}

func (h *Handler) GetDossier(c echo.Context) error {
	id, err := legal.AppointmentParam(c)
	if err != nil {
		return err
	}
	view, err := h.svc.Get(c.Request().Context(), auth.CredentialsFrom(c), id)
	if err != nil {
		return apierror.HTTPError(err, "Échec du chargement du dossier.")
	}
	return c.JSON(http.StatusOK, view)
}

type fieldErrorResponse struct {
	Message string      `json:"message"`
	Fields  FieldErrors `json:"fields"`
}

func (h *Handler) UpdateDossier(c echo.Context) error {
	id, err := legal.AppointmentParam(c)
	if err != nil {
		return err
	}
	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	}

	view, err := h.svc.Save(c.Request().Context(), auth.CredentialsFrom(c), id, f)
	var fe FieldErrors
	switch {
	case errors.As(err, &fe):
		return c.JSON(http.StatusUnprocessableEntity, fieldErrorResponse{Message: "Certains champs sont invalides.", Fields: fe})
	case err != nil:
		return apierror.HTTPError(err, "Échec de l'enregistrement du dossier.")
	}
	return c.JSON(http.StatusOK, view)
}
