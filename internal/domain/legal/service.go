package legal

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pediconsent/portal/internal/platform/auth"
	"github.com/pediconsent/portal/internal/platform/metrics"
)

var (
	ErrInvalidRequest    = errors.New("invalid acknowledgement request")
	ErrUnknownDocument   = errors.New("unknown document type")
	ErrUnknownCase       = errors.New("unknown checklist item")
	ErrCaseNotApplicable = errors.New("checklist item does not concern this parent")
	ErrChecklistLocked   = errors.New("checklist item is locked by a sent or signed signature")
)

// Backend is the part of the surgical backend the legal service talks to.
type Backend interface {
	Catalog(ctx context.Context, creds auth.Credentials, scope Scope) (*Catalog, error)
	Status(ctx context.Context, creds auth.Credentials, scope Scope) (*LegalStatus, error)
	SignatureContext(ctx context.Context, creds auth.Credentials, appointmentID int64) (*SignatureContext, error)
	Acknowledge(ctx context.Context, creds auth.Credentials, req AcknowledgeRequest) (*LegalStatus, error)
	AcknowledgeBulk(ctx context.Context, creds auth.Credentials, req BulkAcknowledgeRequest) (*LegalStatus, error)
}

type Service struct {
	backend  Backend
	granular bool
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(backend Backend, granular bool, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		backend:  backend,
		granular: granular,
		metrics:  m,
		logger:   logger.With().Str("component", "legal").Logger(),
	}
}

// Snapshot is one consistent read of an appointment's legal documents.
type Snapshot struct {
	Catalog    *Catalog
	Status     *LegalStatus
	Signatures *SignatureContext
	Documents  []DocumentVM
}

func (s *Service) MergeContext(sc *SignatureContext) MergeContext {
	mc := MergeContext{GranularSignatures: s.granular}
	if sc != nil {
		mc.Records = sc.Records
		mc.Legacy = sc.Legacy
	}
	return mc
}

// Load fetches catalog, status and signature records of an appointment
// concurrently and merges them.
func (s *Service) Load(ctx context.Context, creds auth.Credentials, appointmentID int64) (*Snapshot, error) {
	if appointmentID <= 0 {
		return nil, fmt.Errorf("%w: appointment_id is required", ErrInvalidRequest)
	}
	scope := Scope{AppointmentID: appointmentID}
	snap := &Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Catalog, err = s.backend.Catalog(gctx, creds, scope)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Status, err = s.backend.Status(gctx, creds, scope)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Signatures, err = s.backend.SignatureContext(gctx, creds, appointmentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load legal documents: %w", err)
	}

	snap.Documents = BuildDocumentVMs(snap.Catalog, snap.Status, s.MergeContext(snap.Signatures))
	return snap, nil
}

// LoadScope reads catalog and status for scope and merges them with records
// the caller already holds. The cabinet tablet uses it with its session code.
func (s *Service) LoadScope(ctx context.Context, creds auth.Credentials, scope Scope, sc *SignatureContext) (*Snapshot, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: appointment_id or session_code is required", ErrInvalidRequest)
	}
	snap := &Snapshot{Signatures: sc}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Catalog, err = s.backend.Catalog(gctx, creds, scope)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Status, err = s.backend.Status(gctx, creds, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load legal documents: %w", err)
	}

	snap.Documents = BuildDocumentVMs(snap.Catalog, snap.Status, s.MergeContext(sc))
	return snap, nil
}

func (s *Service) Acknowledge(ctx context.Context, creds auth.Credentials, req AcknowledgeRequest) (*LegalStatus, error) {
	if req.CaseKey == "" {
		return nil, fmt.Errorf("%w: case_key is required", ErrInvalidRequest)
	}
	if err := validateTarget(req.AppointmentID, req.DocumentType, req.SignerRole); err != nil {
		return nil, err
	}

	snap, err := s.Load(ctx, creds, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	entry, ok := snap.Catalog.Entry(req.DocumentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, req.DocumentType)
	}
	item, ok := entry.Case(req.CaseKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCase, req.CaseKey)
	}
	if item.Required && !item.RequiredFor(req.SignerRole) {
		return nil, fmt.Errorf("%w: %s for %s", ErrCaseNotApplicable, req.CaseKey, req.SignerRole)
	}

	checks := req.Checks()
	req.Acknowledged = &checks

	progress := documentOf(snap.Documents, req.DocumentType).Parent(req.SignerRole)
	if !checks && progress.IsLocked(req.CaseKey) {
		s.metrics.Acknowledged("single", "locked")
		return nil, fmt.Errorf("%w: %s", ErrChecklistLocked, req.CaseKey)
	}

	status, err := s.backend.Acknowledge(ctx, creds, req)
	if err != nil {
		s.metrics.Acknowledged("single", "error")
		s.logger.Warn().Err(err).
			Int64("appointment_id", req.AppointmentID).
			Str("document_type", string(req.DocumentType)).
			Str("signer_role", string(req.SignerRole)).
			Msg("acknowledgement rejected")
		return nil, fmt.Errorf("acknowledge %s: %w", req.CaseKey, err)
	}
	s.metrics.Acknowledged("single", "ok")
	return status, nil
}

// AcknowledgeBulk checks every required item role has not checked yet in one
// mutation. With nothing left to check the current status is returned as is.
func (s *Service) AcknowledgeBulk(ctx context.Context, creds auth.Credentials, appointmentID int64, dt DocumentType, role Role) (*LegalStatus, error) {
	if err := validateTarget(appointmentID, dt, role); err != nil {
		return nil, err
	}

	snap, err := s.Load(ctx, creds, appointmentID)
	if err != nil {
		return nil, err
	}
	entry, ok := snap.Catalog.Entry(dt)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, dt)
	}

	keys := PendingKeys(entry, snap.Status.Document(dt), role)
	if len(keys) == 0 {
		return snap.Status, nil
	}

	req := BulkAcknowledgeRequest{AppointmentID: appointmentID, SignerRole: role}
	for _, k := range keys {
		req.Acknowledgements = append(req.Acknowledgements, Acknowledgement{DocumentType: dt, CaseKey: k})
	}

	status, err := s.backend.AcknowledgeBulk(ctx, creds, req)
	if err != nil {
		s.metrics.Acknowledged("bulk", "error")
		s.logger.Warn().Err(err).
			Int64("appointment_id", appointmentID).
			Str("document_type", string(dt)).
			Str("signer_role", string(role)).
			Int("items", len(keys)).
			Msg("bulk acknowledgement rejected")
		return nil, fmt.Errorf("acknowledge %s: %w", dt, err)
	}
	s.metrics.Acknowledged("bulk", "ok")
	return status, nil
}

func validateTarget(appointmentID int64, dt DocumentType, role Role) error {
	switch {
	case appointmentID <= 0:
		return fmt.Errorf("%w: appointment_id is required", ErrInvalidRequest)
	case !dt.Valid():
		return fmt.Errorf("%w: unknown document_type %q", ErrInvalidRequest, dt)
	case !role.Valid():
		return fmt.Errorf("%w: unknown signer_role %q", ErrInvalidRequest, role)
	}
	return nil
}

func documentOf(docs []DocumentVM, dt DocumentType) DocumentVM {
	for _, d := range docs {
		if d.DocumentType == dt {
			return d
		}
	}
	return DocumentVM{DocumentType: dt}
}
