package signature

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pediconsent/portal/internal/domain/dashboard"
	"github.com/pediconsent/portal/internal/domain/journey"
	"github.com/pediconsent/portal/internal/domain/legal"
	"github.com/pediconsent/portal/internal/platform/auth"
	"github.com/pediconsent/portal/internal/platform/clock"
	"github.com/pediconsent/portal/internal/platform/metrics"
	"github.com/pediconsent/portal/internal/platform/phone"
)

var (
	ErrInvalidRequest  = errors.New("invalid signature request")
	ErrNotEligible     = errors.New("signature not allowed")
	ErrInvalidImage    = errors.New("signature image is missing or not an image")
	ErrConsentRequired = errors.New("consent confirmation is required")
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrInvalidOTPCode  = errors.New("invalid verification code")
)

const maxSignatureBytes = 2 << 20

var (
	otpCode       = regexp.MustCompile(`^\d{4,8}$`)
	dataURLPrefix = regexp.MustCompile(`^data:[a-zA-Z0-9.+/-]+;base64,`)
)

// DeniedError is returned when the gate refuses a signature. It carries the
// reason shown to the guardian.
type DeniedError struct {
	Eligibility legal.Eligibility
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("signature not allowed: %s", e.Eligibility.DisabledReason)
}

func (e *DeniedError) Unwrap() error {
	return ErrNotEligible
}

// Backend is the signature side of the surgical backend.
type Backend interface {
	StartSignature(ctx context.Context, creds auth.Credentials, req StartRequest) (*StartResponse, error)
	CreateCabinetSession(ctx context.Context, creds auth.Credentials, req CabinetSessionRequest) (*CabinetSession, error)
	TabletSession(ctx context.Context, sessionCode string) (*TabletSession, error)
	TokenInfo(ctx context.Context, token string) (*TokenInfo, error)
	SubmitSignature(ctx context.Context, token string, up Upload) (*TokenInfo, error)
	RequestOTP(ctx context.Context, creds auth.Credentials, req OTPRequest) (*OTPState, error)
	VerifyOTP(ctx context.Context, creds auth.Credentials, req OTPVerifyRequest) (*OTPState, error)
	SignatureFile(ctx context.Context, creds auth.Credentials, signatureID int64, kind FileKind) (*File, error)
}

type Service struct {
	backend   Backend
	dashboard *dashboard.Service
	legal     *legal.Service
	rules     journey.Rules
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

type Deps struct {
	Backend   Backend
	Dashboard *dashboard.Service
	Legal     *legal.Service
	Rules     journey.Rules
	Clock     clock.Clock
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	return &Service{
		backend:   d.Backend,
		dashboard: d.Dashboard,
		legal:     d.Legal,
		rules:     d.Rules,
		clock:     d.Clock,
		metrics:   d.Metrics,
		logger:    d.Logger.With().Str("component", "signature").Logger(),
	}
}

func (s *Service) deny(mode Mode, el legal.Eligibility) error {
	s.metrics.GateDenied(string(el.DisabledReason))
	s.metrics.SignatureRequested(string(mode), "denied")
	return &DeniedError{Eligibility: el}
}

func allowed(el legal.Eligibility, mode Mode) bool {
	if mode == ModeCabinet {
		return el.CanSignCabinet
	}
	return el.CanSignRemote
}

// StartSignature re-runs the gate on a fresh dashboard, asks the backend for
// a signature link and returns it with the dashboard read again afterwards.
func (s *Service) StartSignature(ctx context.Context, creds auth.Credentials, req StartRequest) (*StartResult, error) {
	switch {
	case req.AppointmentID <= 0:
		return nil, fmt.Errorf("%w: appointment_id is required", ErrInvalidRequest)
	case !req.DocumentType.Valid():
		return nil, fmt.Errorf("%w: unknown document_type %q", ErrInvalidRequest, req.DocumentType)
	case !req.SignerRole.Valid():
		return nil, fmt.Errorf("%w: unknown signer_role %q", ErrInvalidRequest, req.SignerRole)
	case !req.Mode.Valid():
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}

	vm, err := s.dashboard.Build(ctx, creds, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	card, ok := vm.Card(req.DocumentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", legal.ErrUnknownDocument, req.DocumentType)
	}
	if el := card.Eligibility[req.SignerRole]; !allowed(el, req.Mode) {
		return nil, s.deny(req.Mode, el)
	}
	if req.ProcedureCaseID == nil {
		req.ProcedureCaseID = vm.ProcedureCaseID
	}
	req.SessionCode = ""

	log := s.logger.With().
		Int64("appointment_id", req.AppointmentID).
		Str("document_type", string(req.DocumentType)).
		Str("signer_role", string(req.SignerRole)).
		Str("mode", string(req.Mode)).
		Logger()

	resp, err := s.backend.StartSignature(ctx, creds, req)
	if err != nil {
		s.metrics.SignatureRequested(string(req.Mode), "error")
		log.Warn().Err(err).Msg("signature link request failed")
		return nil, fmt.Errorf("start signature: %w", err)
	}
	s.metrics.SignatureRequested(string(req.Mode), "ok")
	log.Info().Msg("signature link issued")

	result := &StartResult{SignatureLink: resp.SignatureLink}
	result.Dashboard, err = s.dashboard.Build(ctx, creds, req.AppointmentID)
	if err != nil {
		log.Warn().Err(err).Msg("dashboard reload after signature request failed")
	}
	return result, nil
}

// CreateCabinetSession opens a tablet session for one signer.
func (s *Service) CreateCabinetSession(ctx context.Context, creds auth.Credentials, req CabinetSessionRequest) (*CabinetSession, error) {
	if req.AppointmentID <= 0 || !req.SignerRole.Valid() {
		return nil, fmt.Errorf("%w: appointment_id and signer_role are required", ErrInvalidRequest)
	}
	cs, err := s.backend.CreateCabinetSession(ctx, creds, req)
	if err != nil {
		return nil, fmt.Errorf("create cabinet session: %w", err)
	}
	s.logger.Info().
		Int64("appointment_id", req.AppointmentID).
		Str("signer_role", string(req.SignerRole)).
		Time("expires_at", cs.ExpiresAt).
		Msg("cabinet session opened")
	return cs, nil
}

// TabletView loads the documents of a cabinet session. The session code
// stands in for the portal session; contact verification does not apply.
func (s *Service) TabletView(ctx context.Context, sessionCode string) (*TabletView, error) {
	sessionCode = strings.TrimSpace(sessionCode)
	if sessionCode == "" {
		return nil, fmt.Errorf("%w: session code is required", ErrInvalidRequest)
	}
	ts, err := s.backend.TabletSession(ctx, sessionCode)
	if err != nil {
		return nil, fmt.Errorf("load cabinet session: %w", err)
	}

	snap, err := s.legal.LoadScope(ctx, auth.Credentials{}, legal.Scope{SessionCode: sessionCode}, &legal.SignatureContext{
		ProcedureCaseID: ts.ProcedureCaseID,
		Records:         ts.Records,
		Legacy:          ts.LegacyConsent,
	})
	if err != nil {
		return nil, err
	}

	rd := journey.ComputeReflectionDelay(ts.PreConsultationDate, s.clock.Now(), s.rules)
	view := &TabletView{
		SessionCode:     sessionCode,
		SignerRole:      ts.SignerRole,
		SignerLabel:     ts.SignerRole.Label(),
		ProcedureCaseID: ts.ProcedureCaseID,
		ExpiresAt:       ts.ExpiresAt,
		ReflectionDelay: rd,
		Documents:       make([]TabletDocument, 0, len(snap.Documents)),
		session:         ts,
	}
	for _, doc := range snap.Documents {
		el := legal.Evaluate(legal.GateInput{
			Progress:           doc.Parent(ts.SignerRole),
			SignatureSupported: doc.SignatureSupported,
			AppointmentID:      ts.AppointmentID,
			Token:              sessionCode,
			ReflectionPending:  !rd.CanSign,
		}).Cabinet()
		view.Documents = append(view.Documents, TabletDocument{
			DocumentVM:  doc,
			Checklist:   legal.CaseStates(doc, ts.SignerRole),
			Eligibility: el,
		})
	}
	return view, nil
}

// TabletSign starts a cabinet signature from the tablet.
func (s *Service) TabletSign(ctx context.Context, sessionCode string, dt legal.DocumentType) (*StartResponse, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("%w: unknown document_type %q", ErrInvalidRequest, dt)
	}
	view, err := s.TabletView(ctx, sessionCode)
	if err != nil {
		return nil, err
	}
	doc, ok := view.Document(dt)
	if !ok {
		return nil, fmt.Errorf("%w: %s", legal.ErrUnknownDocument, dt)
	}
	if !doc.Eligibility.CanSignCabinet {
		return nil, s.deny(ModeCabinet, doc.Eligibility)
	}

	req := StartRequest{
		AppointmentID:   view.session.AppointmentID,
		ProcedureCaseID: view.session.ProcedureCaseID,
		DocumentType:    dt,
		SignerRole:      view.SignerRole,
		Mode:            ModeCabinet,
		SessionCode:     view.SessionCode,
	}
	resp, err := s.backend.StartSignature(ctx, auth.Credentials{}, req)
	if err != nil {
		s.metrics.SignatureRequested(string(ModeCabinet), "error")
		s.logger.Warn().Err(err).Str("document_type", string(dt)).Msg("tablet signature request failed")
		return nil, fmt.Errorf("start signature: %w", err)
	}
	s.metrics.SignatureRequested(string(ModeCabinet), "ok")
	return resp, nil
}

// TokenStatus describes a remote signing link.
func (s *Service) TokenStatus(ctx context.Context, token string) (*TokenInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidRequest)
	}
	info, err := s.backend.TokenInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load signing link: %w", err)
	}
	return info, nil
}

// Submit checks the drawn signature and forwards it. The backend decides
// whether the link has expired.
func (s *Service) Submit(ctx context.Context, token string, up Upload) (*TokenInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidRequest)
	}
	if !up.ConsentConfirmed {
		return nil, ErrConsentRequired
	}
	clean, err := normalizeSignatureImage(up.SignatureBase64)
	if err != nil {
		return nil, err
	}
	up.SignatureBase64 = clean
	up.DeviceID = strings.TrimSpace(up.DeviceID)

	info, err := s.backend.SubmitSignature(ctx, token, up)
	if err != nil {
		s.logger.Warn().Err(err).Msg("signature upload rejected")
		return nil, fmt.Errorf("submit signature: %w", err)
	}
	return info, nil
}

// normalizeSignatureImage strips an optional data URL prefix and checks the
// payload decodes to an image.
func normalizeSignatureImage(raw string) (string, error) {
	raw = dataURLPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	if raw == "" {
		return "", ErrInvalidImage
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(data) == 0 || len(data) > maxSignatureBytes {
		return "", ErrInvalidImage
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return "", ErrInvalidImage
	}
	return raw, nil
}

// RequestOTP sends a verification code to a guardian phone, normalised to
// E.164 first.
func (s *Service) RequestOTP(ctx context.Context, creds auth.Credentials, req OTPRequest) (*OTPState, error) {
	if req.AppointmentID <= 0 || !req.ParentRole.Valid() {
		return nil, fmt.Errorf("%w: appointment_id and parent_role are required", ErrInvalidRequest)
	}
	n, err := phone.ParseNumber(req.Phone)
	if err != nil {
		return nil, ErrInvalidPhone
	}
	req.Phone = n.String()

	st, err := s.backend.RequestOTP(ctx, creds, req)
	if err != nil {
		s.logger.Warn().Err(err).Int64("appointment_id", req.AppointmentID).Str("parent_role", string(req.ParentRole)).Msg("otp request rejected")
		return nil, fmt.Errorf("request otp: %w", err)
	}
	return st, nil
}

func (s *Service) VerifyOTP(ctx context.Context, creds auth.Credentials, req OTPVerifyRequest) (*OTPState, error) {
	if req.AppointmentID <= 0 || !req.ParentRole.Valid() {
		return nil, fmt.Errorf("%w: appointment_id and parent_role are required", ErrInvalidRequest)
	}
	req.Code = strings.TrimSpace(req.Code)
	if !otpCode.MatchString(req.Code) {
		return nil, ErrInvalidOTPCode
	}
	st, err := s.backend.VerifyOTP(ctx, creds, req)
	if err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}
	if st.Verified {
		s.logger.Info().Int64("appointment_id", req.AppointmentID).Str("parent_role", string(req.ParentRole)).Msg("guardian phone verified")
	}
	return st, nil
}

// File opens a PDF of a signature record.
func (s *Service) File(ctx context.Context, creds auth.Credentials, signatureID int64, kind FileKind) (*File, error) {
	if signatureID <= 0 || !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown file %d/%s", ErrInvalidRequest, signatureID, kind)
	}
	f, err := s.backend.SignatureFile(ctx, creds, signatureID, kind)
	if err != nil {
		return nil, fmt.Errorf("open signature file: %w", err)
	}
	return f, nil
}
