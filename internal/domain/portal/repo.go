package portal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("portal session not found")

type SessionRepository interface {
	Create(ctx context.Context, s *PortalSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*PortalSession, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	SetAcknowledgement(ctx context.Context, id uuid.UUID, confirmed bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// memoryRepo keeps sessions in process memory. Development only: sessions
// are lost on restart and not shared between instances.
type memoryRepo struct {
	mu   sync.RWMutex
	data map[uuid.UUID]PortalSession
}

func NewMemoryRepo() SessionRepository {
	return &memoryRepo{data: make(map[uuid.UUID]PortalSession)}
}

func (r *memoryRepo) Create(_ context.Context, s *PortalSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.data[s.ID] = *s
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*PortalSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (r *memoryRepo) Touch(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.LastSeenAt = at
	r.data[id] = s
	return nil
}

func (r *memoryRepo) SetAcknowledgement(_ context.Context, id uuid.UUID, confirmed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.AcknowledgementConfirmed = confirmed
	r.data[id] = s
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}

func (r *memoryRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.data {
		if !before.Before(s.ExpiresAt) {
			delete(r.data, id)
			n++
		}
	}
	return n, nil
}
