package portal

import (
	"time"

	"github.com/google/uuid"
)

// PortalSession is one signed-in browser. It holds the backend token so the
// browser only ever sees an opaque session id.
type PortalSession struct {
	ID                       uuid.UUID `json:"id"`
	Subject                  string    `json:"subject"`
	Role                     string    `json:"role"`
	DisplayName              string    `json:"display_name,omitempty"`
	BackendToken             string    `json:"-"`
	AcknowledgementConfirmed bool      `json:"acknowledgement_confirmed"`
	CreatedAt                time.Time `json:"created_at"`
	ExpiresAt                time.Time `json:"expires_at"`
	LastSeenAt               time.Time `json:"last_seen_at"`
}

func (s *PortalSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
