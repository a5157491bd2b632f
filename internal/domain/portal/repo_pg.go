package portal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pediconsent/portal/internal/platform/db"
)

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewSessionRepoPG(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepoPG{pool: pool}
}

func (r *sessionRepoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFor(ctx, r.pool)
}

const sessionCols = `id, subject, role, COALESCE(display_name, ''), backend_token, ack_confirmed,
	created_at, expires_at, last_seen_at`

func (r *sessionRepoPG) scanSession(row pgx.Row) (*PortalSession, error) {
	var s PortalSession
	err := row.Scan(&s.ID, &s.Subject, &s.Role, &s.DisplayName, &s.BackendToken, &s.AcknowledgementConfirmed,
		&s.CreatedAt, &s.ExpiresAt, &s.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepoPG) Create(ctx context.Context, s *PortalSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO portal_session (id, subject, role, display_name, backend_token,
			ack_confirmed, created_at, expires_at, last_seen_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)`,
		s.ID, s.Subject, s.Role, s.DisplayName, s.BackendToken,
		s.AcknowledgementConfirmed, s.CreatedAt, s.ExpiresAt, s.LastSeenAt)
	return err
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PortalSession, error) {
	return r.scanSession(r.conn(ctx).QueryRow(ctx, `SELECT `+sessionCols+` FROM portal_session WHERE id = $1`, id))
}

func (r *sessionRepoPG) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.exec(ctx, `UPDATE portal_session SET last_seen_at = $2 WHERE id = $1`, id, at)
}

func (r *sessionRepoPG) SetAcknowledgement(ctx context.Context, id uuid.UUID, confirmed bool) error {
	return r.exec(ctx, `UPDATE portal_session SET ack_confirmed = $2 WHERE id = $1`, id, confirmed)
}

func (r *sessionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM portal_session WHERE id = $1`, id)
	return err
}

func (r *sessionRepoPG) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM portal_session WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// exec runs an UPDATE addressed by id and reports a missing row.
func (r *sessionRepoPG) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
