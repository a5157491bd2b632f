package signature

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pediconsent/portal/internal/domain/legal"
	"github.com/pediconsent/portal/internal/platform/apierror"
	"github.com/pediconsent/portal/internal/platform/auth"
	"github.com/pediconsent/portal/internal/platform/middleware"
)

type Handler struct {
	svc *Service
	otp echo.MiddlewareFunc
}

// NewHandler builds the handler. otpLimit guards the OTP routes; nil falls
// back to the default OTP budget.
func NewHandler(svc *Service, otpLimit echo.MiddlewareFunc) *Handler {
	if otpLimit == nil {
		otpLimit = middleware.RateLimit(middleware.OTPRateLimitConfig())
	}
	return &Handler{svc: svc, otp: otpLimit}
}

// RegisterRoutes mounts the authenticated routes on api and the tablet and
// signing-link routes on public, which carries no portal session.
func (h *Handler) RegisterRoutes(api, public *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RolePatient, auth.RolePractitioner))
	g.POST("/signatures/start", h.Start)
	g.POST("/cabinet-sessions", h.CreateCabinetSession)
	g.GET("/document-signatures/:id/files/:kind", h.GetFile)

	otp := api.Group("/otp", auth.RequireRole(auth.RolePatient), h.otp)
	otp.POST("/request", h.RequestOTP)
	otp.POST("/verify", h.VerifyOTP)

	public.GET("/tablet/:sessionCode", h.GetTablet)
	public.POST("/tablet/:sessionCode/signatures", h.TabletSign)
	public.GET("/sign/:token", h.GetToken)
	public.POST("/sign/:token", h.SubmitToken, h.otp)
}

func (h *Handler) Start(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	}
	res, err := h.svc.StartSignature(c.Request().Context(), auth.CredentialsFrom(c), req)
	if err != nil {
		return toHTTPError(err, "Échec de la demande de signature.")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateCabinetSession(c echo.Context) error {
	var req CabinetSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	}
	cs, err := h.svc.CreateCabinetSession(c.Request().Context(), auth.CredentialsFrom(c), req)
	if err != nil {
		return toHTTPError(err, "Échec de l'ouverture de la session cabinet.")
	}
	return c.JSON(http.StatusCreated, cs)
}

func (h *Handler) GetTablet(c echo.Context) error {
	view, err := h.svc.TabletView(c.Request().Context(), c.Param("sessionCode"))
	if err != nil {
		return toHTTPError(err, "Session cabinet indisponible.")
	}
	return c.JSON(http.StatusOK, view)
}

type tabletSignRequest struct {
	DocumentType legal.DocumentType `json:"document_type"`
}

func (h *Handler) TabletSign(c echo.Context) error {
	var req tabletSignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	}
	resp, err := h.svc.TabletSign(c.Request().Context(), c.Param("sessionCode"), req.DocumentType)
	if err != nil {
		return toHTTPError(err, "Échec de la demande de signature.")
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetToken(c echo.Context) error {
	info, err := h.svc.TokenStatus(c.Request().Context(), c.Param("token"))
	if err != nil {
		return toHTTPError(err, "Lien de signature indisponible.")
	}
	return c.JSON(http.StatusOK, info)
}

func (h *Handler) SubmitToken(c echo.Context) error {
	var up Upload
	if err := c.Bind(&up); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	}
	info, err := h.svc.Submit(c.Request().Context(), c.Param("token"), up)
	if err != nil {
		return toHTTPError(err, "Échec de l'envoi de la signature.")
	}
	return c.JSON(http.StatusOK, info)
}

func (h *Handler) RequestOTP(c echo.Context) error {
	var req OTPRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	}
	st, err := h.svc.RequestOTP(c.Request().Context(), auth.CredentialsFrom(c), req)
	if err != nil {
		return toHTTPError(err, "Échec de l'envoi du code.")
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	var req OTPVerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	}
	st, err := h.svc.VerifyOTP(c.Request().Context(), auth.CredentialsFrom(c), req)
	if err != nil {
		return toHTTPError(err, "Échec de la vérification du code.")
	}
	return c.JSON(http.StatusOK, st)
}

// GetFile streams a PDF; ?inline=1 lets the browser display it in a frame.
func (h *Handler) GetFile(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Identifiant de signature invalide.")
	}
	kind := FileKind(c.Param("kind"))

	f, err := h.svc.File(c.Request().Context(), auth.CredentialsFrom(c), id, kind)
	if err != nil {
		return toHTTPError(err, "Document indisponible.")
	}
	defer f.Body.Close()

	filename := f.Filename
	if filename == "" {
		filename = fmt.Sprintf("signature-%d-%s.pdf", id, kind)
	}
	disposition := "attachment"
	if c.QueryParam("inline") != "" {
		disposition = "inline"
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("%s; filename=%q", disposition, filename))
	if f.ContentLength > 0 {
		res.Header().Set(echo.HeaderContentLength, strconv.FormatInt(f.ContentLength, 10))
	}
	return c.Stream(http.StatusOK, contentType, f.Body)
}

func toHTTPError(err error, fallback string) *echo.HTTPError {
	var denied *DeniedError
	switch {
	case errors.As(err, &denied):
		return echo.NewHTTPError(http.StatusConflict, denied.Eligibility.Message)
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, legal.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, "Requête invalide.")
	case errors.Is(err, legal.ErrUnknownDocument):
		return echo.NewHTTPError(http.StatusNotFound, "Document introuvable.")
	case errors.Is(err, ErrInvalidImage):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "La signature est vide ou illisible.")
	case errors.Is(err, ErrConsentRequired):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Veuillez confirmer votre consentement avant de signer.")
	case errors.Is(err, ErrInvalidPhone):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Numéro de téléphone invalide.")
	case errors.Is(err, ErrInvalidOTPCode):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Code de vérification invalide.")
	}
	return apierror.HTTPError(err, fallback)
}
