package dashboard

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pediconsent/portal/internal/domain/dossier"
	"github.com/pediconsent/portal/internal/domain/journey"
	"github.com/pediconsent/portal/internal/domain/legal"
	"github.com/pediconsent/portal/internal/platform/auth"
	"github.com/pediconsent/portal/internal/platform/clock"
)

// Backend is every read the dashboard needs from the surgical backend.
type Backend interface {
	JourneySnapshot(ctx context.Context, creds auth.Credentials, appointmentID int64) (*journey.Snapshot, error)
	DocumentSignatures(ctx context.Context, creds auth.Credentials, procedureCaseID int64) ([]legal.DocumentSignatureRecord, error)
	Catalog(ctx context.Context, creds auth.Credentials, scope legal.Scope) (*legal.Catalog, error)
	Status(ctx context.Context, creds auth.Credentials, scope legal.Scope) (*legal.LegalStatus, error)
	Dossier(ctx context.Context, creds auth.Credentials, appointmentID int64) (*dossier.Payload, error)
	GuardianVerification(ctx context.Context, creds auth.Credentials, appointmentID int64) ([]dossier.Verification, error)
}

type Service struct {
	backend  Backend
	rules    journey.Rules
	granular bool
	clock    clock.Clock
	logger   zerolog.Logger
}

func NewService(backend Backend, rules journey.Rules, granular bool, clk clock.Clock, logger zerolog.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		backend:  backend,
		rules:    rules,
		granular: granular,
		clock:    clk,
		logger:   logger.With().Str("component", "dashboard").Logger(),
	}
}

// snapshot is everything read from the backend for one build.
type snapshot struct {
	journey  *journey.Snapshot
	records  []legal.DocumentSignatureRecord
	catalog  *legal.Catalog
	status   *legal.LegalStatus
	dossier  *dossier.Payload
	verified []dossier.Verification
}

// fetch reads the snapshot concurrently. The first failure cancels the other
// calls, and so does the caller going away.
func (s *Service) fetch(ctx context.Context, creds auth.Credentials, appointmentID int64) (*snapshot, error) {
	snap := &snapshot{}
	scope := legal.Scope{AppointmentID: appointmentID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		js, err := s.backend.JourneySnapshot(gctx, creds, appointmentID)
		if err != nil {
			return err
		}
		snap.journey = js
		if js.ProcedureCaseID == nil || !s.granular {
			return nil
		}
		snap.records, err = s.backend.DocumentSignatures(gctx, creds, *js.ProcedureCaseID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.catalog, err = s.backend.Catalog(gctx, creds, scope)
		return err
	})
	g.Go(func() error {
		var err error
		snap.status, err = s.backend.Status(gctx, creds, scope)
		return err
	})
	g.Go(func() error {
		var err error
		snap.dossier, err = s.backend.Dossier(gctx, creds, appointmentID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.verified, err = s.backend.GuardianVerification(gctx, creds, appointmentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Build reads the appointment from the backend and derives the whole
// dashboard from it. Nothing is cached between calls.
func (s *Service) Build(ctx context.Context, creds auth.Credentials, appointmentID int64) (*DashboardVM, error) {
	if appointmentID <= 0 {
		return nil, fmt.Errorf("%w: appointment_id is required", legal.ErrInvalidRequest)
	}
	snap, err := s.fetch(ctx, creds, appointmentID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("appointment_id", appointmentID).Msg("dashboard snapshot failed")
		return nil, fmt.Errorf("build dashboard: %w", err)
	}
	return s.assemble(appointmentID, creds, snap), nil
}

func (s *Service) assemble(appointmentID int64, creds auth.Credentials, snap *snapshot) *DashboardVM {
	var js journey.Snapshot
	if snap.journey != nil {
		js = *snap.journey
	}
	var payload dossier.Payload
	if snap.dossier != nil {
		payload = *snap.dossier
	}

	docs := legal.BuildDocumentVMs(snap.catalog, snap.status, legal.MergeContext{
		Records:            snap.records,
		Legacy:             js.LegacyConsent,
		GranularSignatures: s.granular,
	})
	status := journey.Build(js, docs, s.clock.Now(), s.rules)

	dvm := dossier.ToDossierVM(payload)
	contacts := dvm.Contacts(snap.verified)
	names := dvm.Names()

	vm := &DashboardVM{
		AppointmentID:   appointmentID,
		ProcedureCaseID: js.ProcedureCaseID,
		Documents:       make([]DocumentCard, 0, len(docs)),
		Journey:         status,
		Message:         journey.SelectMessage(status, journey.ParentNames(names)),
		Steps:           journey.Steps(status),
		Parents:         make([]ParentSummary, 0, len(legal.Roles)),
	}
	if snap.status != nil {
		vm.LegalComplete = snap.status.Complete
	}

	reflectionPending := !status.Signatures.ReflectionDelay.CanSign
	for _, doc := range docs {
		card := DocumentCard{
			DocumentVM:  doc,
			Cases:       make(map[legal.Role][]legal.CaseState, len(legal.Roles)),
			Eligibility: make(map[legal.Role]legal.Eligibility, len(legal.Roles)),
		}
		for _, role := range legal.Roles {
			card.Cases[role] = legal.CaseStates(doc, role)
			card.Eligibility[role] = legal.Evaluate(legal.GateInput{
				Progress:           doc.Parent(role),
				SignatureSupported: doc.SignatureSupported,
				AppointmentID:      appointmentID,
				Token:              creds.Token,
				Contact:            contacts[role],
				ReflectionPending:  reflectionPending,
			})
		}
		vm.Documents = append(vm.Documents, card)
	}

	for _, role := range legal.Roles {
		c := contacts[role]
		vm.Parents = append(vm.Parents, ParentSummary{
			Role:            role,
			Label:           role.Label(),
			Name:            names[role],
			ContactComplete: c.Complete(),
			PhoneVerified:   c.Verified,
			Required:        status.Signatures.Required(role),
			Signed:          status.Signatures.Signed(role),
		})
	}
	return vm
}

// Eligibility evaluates the gate of one (document, parent) pair against a
// fresh backend read.
func (s *Service) Eligibility(ctx context.Context, creds auth.Credentials, appointmentID int64, dt legal.DocumentType, role legal.Role) (legal.Eligibility, error) {
	if !dt.Valid() || !role.Valid() {
		return legal.Eligibility{}, fmt.Errorf("%w: document_type and signer_role are required", legal.ErrInvalidRequest)
	}
	vm, err := s.Build(ctx, creds, appointmentID)
	if err != nil {
		return legal.Eligibility{}, err
	}
	card, ok := vm.Card(dt)
	if !ok {
		return legal.Eligibility{}, fmt.Errorf("%w: %s", legal.ErrUnknownDocument, dt)
	}
	return card.Eligibility[role], nil
}
