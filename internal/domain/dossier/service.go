package dossier

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pediconsent/portal/internal/platform/auth"
)

type Backend interface {
	Dossier(ctx context.Context, creds auth.Credentials, appointmentID int64) (*Payload, error)
	SaveDossier(ctx context.Context, creds auth.Credentials, appointmentID int64, p Payload) (*Payload, error)
	GuardianVerification(ctx context.Context, creds auth.Credentials, appointmentID int64) ([]Verification, error)
}

type Service struct {
	backend Backend
	logger  zerolog.Logger
}

func NewService(backend Backend, logger zerolog.Logger) *Service {
	return &Service{backend: backend, logger: logger.With().Str("component", "dossier").Logger()}
}

func (s *Service) Get(ctx context.Context, creds auth.Credentials, appointmentID int64) (*View, error) {
	var (
		payload *Payload
		verif   []Verification
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		payload, err = s.backend.Dossier(gctx, creds, appointmentID)
		return err
	})
	g.Go(func() error {
		var err error
		verif, err = s.backend.GuardianVerification(gctx, creds, appointmentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dossier: %w", err)
	}
	return newView(payload, verif), nil
}

// Save validates the form and sends it. Validation failures are returned as
// FieldErrors and never reach the backend.
func (s *Service) Save(ctx context.Context, creds auth.Credentials, appointmentID int64, f Form) (*View, error) {
	clean, errs := ValidateForm(f)
	if errs != nil {
		return nil, errs
	}

	saved, err := s.backend.SaveDossier(ctx, creds, appointmentID, FormToPayload(clean))
	if err != nil {
		s.logger.Warn().Err(err).Int64("appointment_id", appointmentID).Msg("dossier update rejected")
		return nil, fmt.Errorf("save dossier: %w", err)
	}

	verif, err := s.backend.GuardianVerification(ctx, creds, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load guardian verification: %w", err)
	}
	return newView(saved, verif), nil
}

func newView(p *Payload, verif []Verification) *View {
	var payload Payload
	if p != nil {
		payload = *p
	}
	if verif == nil {
		verif = []Verification{}
	}
	vm := ToDossierVM(payload)
	return &View{Dossier: vm, Form: VMToForm(vm), Verification: verif}
}
