// Package clock lets the calendar rules (reflection delay, act spacing) be
// evaluated against a controllable notion of "now".
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// New returns the wall clock.
func New() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Managed is a hand-driven clock for tests.
type Managed struct {
	mu  sync.Mutex
	now time.Time
}

// NewManaged returns a clock frozen at start.
func NewManaged(start time.Time) *Managed {
	return &Managed{now: start}
}

func (m *Managed) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// WarpForward moves the clock forward and returns the new time. There is no
// way back.
func (m *Managed) WarpForward(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now = m.now.Add(d)
	}
	return m.now
}
