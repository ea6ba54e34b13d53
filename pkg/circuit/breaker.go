// Package circuit is a small circuit breaker. The audit bus wraps its
// publisher in one so a dead broker costs a handful of failed publishes,
// not a failed publish per transaction.
package circuit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without invoking the callee while the breaker
// is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds breaker tuning.
type Config struct {
	Name          string
	MaxFailures   int           // consecutive failures before opening
	Timeout       time.Duration // open duration before probing again
	OnStateChange func(from, to State)
}

// Breaker trips open after MaxFailures consecutive failures, stays open
// for Timeout, then lets a probe through; the probe's outcome closes or
// re-opens it.
type Breaker struct {
	cfg Config

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Breaker{cfg: cfg}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Execute runs fn under the breaker. While open it fails fast with
// ErrCircuitOpen; a cancelled context fails without touching the failure
// count.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	if b.state == StateOpen {
		if time.Since(b.lastFailure) <= b.cfg.Timeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.state == StateHalfOpen || b.failures >= b.cfg.MaxFailures {
			b.transition(StateOpen)
		}
		return err
	}
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
	b.failures = 0
	return nil
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
	b.failures = 0
}

// transition must be called with the mutex held.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
