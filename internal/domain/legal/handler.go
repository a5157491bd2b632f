package legal

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

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
	readGroup := api.Group("", auth.RequireRole(auth.RolePatient, auth.RolePractitioner))
	readGroup.GET("/appointments/:id/legal", h.GetLegal)

	writeGroup := api.Group("", auth.RequireRole(auth.RolePatient))
	writeGroup.POST("/legal/acknowledge", h.Acknowledge)
	writeGroup.POST("/legal/acknowledge/bulk", h.AcknowledgeBulk)
}

// DocumentView adds the per-parent checklist rendering to a document.
type DocumentView struct {
	DocumentVM
	Checklist map[Role][]CaseState `json:"checklist"`
}

func NewDocumentView(vm DocumentVM) DocumentView {
	v := DocumentView{DocumentVM: vm, Checklist: make(map[Role][]CaseState, len(Roles))}
	for _, r := range Roles {
		v.Checklist[r] = CaseStates(vm, r)
	}
	return v
}

type legalResponse struct {
	Documents []DocumentView `json:"documents"`
	Complete  bool           `json:"complete"`
}

func (h *Handler) GetLegal(c echo.Context) error {
	id, err := AppointmentParam(c)
	if err != nil {
		return err
	}
	snap, err := h.svc.Load(c.Request().Context(), auth.CredentialsFrom(c), id)
	if err != nil {
		return toHTTPError(err, "Échec du chargement des documents.")
	}

	resp := legalResponse{Documents: make([]DocumentView, 0, len(snap.Documents))}
	for _, vm := range snap.Documents {
		resp.Documents = append(resp.Documents, NewDocumentView(vm))
	}
	if snap.Status != nil {
		resp.Complete = snap.Status.Complete
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Acknowledge(c echo.Context) error {
	var req AcknowledgeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	}
	status, err := h.svc.Acknowledge(c.Request().Context(), auth.CredentialsFrom(c), req)
	if err != nil {
		return toHTTPError(err, "Échec de l'enregistrement de la case.")
	}
	return c.JSON(http.StatusOK, status)
}

type bulkRequest struct {
	AppointmentID int64        `json:"appointment_id"`
	DocumentType  DocumentType `json:"document_type"`
	SignerRole    Role         `json:"signer_role"`
}

func (h *Handler) AcknowledgeBulk(c echo.Context) error {
	var req bulkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	}
	status, err := h.svc.AcknowledgeBulk(c.Request().Context(), auth.CredentialsFrom(c), req.AppointmentID, req.DocumentType, req.SignerRole)
	if err != nil {
		return toHTTPError(err, "Échec de l'enregistrement des cases.")
	}
	return c.JSON(http.StatusOK, status)
}

// AppointmentParam parses the :id route parameter.
func AppointmentParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Identifiant de rendez-vous invalide.")
	}
	return id, nil
}

func toHTTPError(err error, fallback string) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	case errors.Is(err, ErrUnknownDocument), errors.Is(err, ErrUnknownCase):
		return echo.NewHTTPError(http.StatusNotFound, "Document ou mention introuvable.")
	case errors.Is(err, ErrCaseNotApplicable):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Cette mention ne concerne pas ce parent.")
	case errors.Is(err, ErrChecklistLocked):
		return echo.NewHTTPError(http.StatusConflict, "Cette case ne peut plus être décochée : la signature a été envoyée.")
	}
	return apierror.HTTPError(err, fallback)
}
