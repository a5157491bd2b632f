// Package breaker protects the portal from a failing surgical backend: after
// a run of consecutive failures calls fail fast until a cooldown elapses, then
// a probe decides whether the backend is back.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/pediconsent/portal/internal/platform/clock"
)

var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is safe for concurrent use.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	openedAt         time.Time
	clk              clock.Clock
	onChange         func(State)
}

type Option func(*Breaker)

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(b *Breaker) { b.clk = c }
}

// OnStateChange registers a callback invoked, outside the lock, after every
// transition.
func OnStateChange(fn func(State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

// New creates a breaker that opens after failureThreshold consecutive
// failures and stays open for cooldown. Two successful probes close it again.
func New(failureThreshold int, cooldown time.Duration, opts ...Option) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	b := &Breaker{
		state:            Closed,
		failureThreshold: failureThreshold,
		successThreshold: 2,
		cooldown:         cooldown,
		clk:              clock.New(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Allow returns ErrOpen while the breaker is open.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	changed := b.advance()
	state := b.state
	b.mu.Unlock()
	b.notify(changed, state)

	if state == Open {
		return ErrOpen
	}
	return nil
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	changed := false
	switch b.state {
	case Closed:
		b.failures = 0
	case HalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = Closed
			b.failures = 0
			b.successes = 0
			changed = true
		}
	}
	state := b.state
	b.mu.Unlock()
	b.notify(changed, state)
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	changed := false
	switch b.state {
	case Closed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.trip()
			changed = true
		}
	case HalfOpen:
		b.trip()
		changed = true
	}
	state := b.state
	b.mu.Unlock()
	b.notify(changed, state)
}

func (b *Breaker) State() State {
	b.mu.Lock()
	changed := b.advance()
	state := b.state
	b.mu.Unlock()
	b.notify(changed, state)
	return state
}

// advance moves Open to HalfOpen once the cooldown has elapsed. Must be
// called with the lock held.
func (b *Breaker) advance() bool {
	if b.state == Open && b.clk.Now().Sub(b.openedAt) >= b.cooldown {
		b.state = HalfOpen
		b.successes = 0
		return true
	}
	return false
}

func (b *Breaker) trip() {
	b.state = Open
	b.openedAt = b.clk.Now()
	b.successes = 0
}

func (b *Breaker) notify(changed bool, s State) {
	if changed && b.onChange != nil {
		b.onChange(s)
	}
}
