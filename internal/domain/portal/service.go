package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pediconsent/portal/internal/platform/auth"
	"github.com/pediconsent/portal/internal/platform/clock"
	"github.com/pediconsent/portal/internal/platform/metrics"
)

type Service struct {
	repo     SessionRepository
	verifier *auth.Verifier
	ttl      time.Duration
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(repo SessionRepository, verifier *auth.Verifier, ttl time.Duration, clk clock.Clock, m *metrics.Metrics, logger zerolog.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		repo:     repo,
		verifier: verifier,
		ttl:      ttl,
		clock:    clk,
		metrics:  m,
		logger:   logger.With().Str("component", "portal_session").Logger(),
	}
}

// Open validates a token issued by the backend at login and stores a new
// session. The session never outlives the token.
func (s *Service) Open(ctx context.Context, token string) (*PortalSession, error) {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	expires := now.Add(s.ttl)
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(expires) {
		expires = claims.ExpiresAt.Time.UTC()
	}
	if !now.Before(expires) {
		return nil, fmt.Errorf("%w: token already expired", auth.ErrInvalidToken)
	}

	sess := &PortalSession{
		Subject:      claims.Subject,
		Role:         claims.Role,
		DisplayName:  claims.Name,
		BackendToken: token,
		CreatedAt:    now,
		ExpiresAt:    expires,
		LastSeenAt:   now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.metrics.SessionOpened(sess.Role)
	s.logger.Info().Str("session_id", sess.ID.String()).Str("role", sess.Role).Time("expires_at", expires).Msg("portal session opened")
	return sess, nil
}

// Get returns a live session. Unknown, malformed and expired ids all map to
// auth.ErrNoSession.
func (s *Service) Get(ctx context.Context, sessionID string) (*PortalSession, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, auth.ErrNoSession
	}
	sess, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, auth.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.Expired(s.clock.Now()) {
		return nil, auth.ErrNoSession
	}
	return sess, nil
}

// ResolveCredentials implements auth.SessionResolver.
func (s *Service) ResolveCredentials(ctx context.Context, sessionID string) (auth.Credentials, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return auth.Credentials{}, err
	}
	if err := s.repo.Touch(ctx, sess.ID, s.clock.Now().UTC()); err != nil && !errors.Is(err, ErrSessionNotFound) {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session touch failed")
	}
	return auth.Credentials{
		SessionID: sess.ID.String(),
		Subject:   sess.Subject,
		Role:      sess.Role,
		Token:     sess.BackendToken,
	}, nil
}

// Close ends a session at logout. Closing an unknown session is not an error.
func (s *Service) Close(ctx context.Context, sessionID string) error {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.Info().Str("session_id", sessionID).Msg("portal session closed")
	return nil
}

// SetAcknowledgement stores the dashboard's acknowledgement checkbox. It is a
// convenience for the guardian and carries no legal weight.
func (s *Service) SetAcknowledgement(ctx context.Context, sessionID string, confirmed bool) (*PortalSession, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAcknowledgement(ctx, sess.ID, confirmed); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, auth.ErrNoSession
		}
		return nil, fmt.Errorf("update session: %w", err)
	}
	sess.AcknowledgementConfirmed = confirmed
	return sess, nil
}

// Purge deletes expired sessions.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.clock.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	s.logger.Info().Int64("deleted", n).Msg("expired portal sessions purged")
	return n, nil
}
