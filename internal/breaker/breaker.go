// Package breaker implements a three-state circuit breaker guarding calls
// to one logical remote dependency. It holds no I/O; callers decide how to
// react to an open circuit.
package breaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"modelgate/pkg/types"
)

// State is the breaker state machine position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultFailThreshold    = 5
	defaultResetTimeout     = 30 * time.Second
	defaultHalfOpenMaxCalls = 3
)

// Config holds breaker tunables.
type Config struct {
	// Consecutive failures before the circuit opens.
	FailThreshold int
	// Cooldown after opening before a half-open probe is allowed.
	ResetTimeout time.Duration
	// Probe calls admitted while half-open.
	HalfOpenMaxCalls int
}

// Breaker tracks the health of one remote endpoint. All methods serialize
// through a single mutex and never block on I/O.
type Breaker struct {
	mu sync.Mutex

	state               State
	consecutiveFailures int
	openedAt            time.Time
	halfOpenCalls       int

	failThreshold    int
	resetTimeout     time.Duration
	halfOpenMaxCalls int

	now func() time.Time // test hook
}

// New constructs a Breaker in the closed state, applying defaults for
// unset config fields.
func New(cfg Config) *Breaker {
	b := &Breaker{
		state:            StateClosed,
		failThreshold:    cfg.FailThreshold,
		resetTimeout:     cfg.ResetTimeout,
		halfOpenMaxCalls: cfg.HalfOpenMaxCalls,
		now:              time.Now,
	}
	if b.failThreshold <= 0 {
		b.failThreshold = defaultFailThreshold
	}
	if b.resetTimeout <= 0 {
		b.resetTimeout = defaultResetTimeout
	}
	if b.halfOpenMaxCalls <= 0 {
		b.halfOpenMaxCalls = defaultHalfOpenMaxCalls
	}
	return b
}

// Allow reports whether a call may proceed. While open it returns a
// circuit-open error carrying the remaining cooldown; once the cooldown
// has elapsed it transitions to half-open and admits a bounded number of
// probe calls.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		elapsed := b.now().Sub(b.openedAt)
		if elapsed < b.resetTimeout {
			return circuitOpenError{remaining: b.resetTimeout - elapsed}
		}
		b.state = StateHalfOpen
		b.halfOpenCalls = 1
		return nil
	case StateHalfOpen:
		if b.halfOpenCalls >= b.halfOpenMaxCalls {
			return circuitOpenError{busy: true}
		}
		b.halfOpenCalls++
		return nil
	}
	return nil
}

// RecordSuccess closes the circuit and zeroes all counters.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.consecutiveFailures = 0
	b.halfOpenCalls = 0
}

// RecordFailure counts a failed call. A single failure while half-open
// reopens the circuit and restarts the cooldown timer; from closed the
// circuit opens once the failure threshold is reached.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = b.now()
		b.consecutiveFailures = b.failThreshold
		b.halfOpenCalls = 0
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	case StateOpen:
		// Already open; keep the original openedAt so the cooldown is not
		// extended by stragglers.
		b.consecutiveFailures++
	}
}

// Snapshot returns the current state for status reporting.
func (b *Breaker) Snapshot() types.BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := types.BreakerSnapshot{
		State:               string(b.state),
		ConsecutiveFailures: b.consecutiveFailures,
	}
	if b.state == StateOpen {
		snap.OpenSeconds = b.now().Sub(b.openedAt).Seconds()
	}
	return snap
}

// circuitOpenError rejects a call against an open or saturated circuit.
type circuitOpenError struct {
	remaining time.Duration
	busy      bool
}

func (e circuitOpenError) Error() string {
	if e.busy {
		return "circuit open: half-open probe limit reached"
	}
	return fmt.Sprintf("circuit open: retry in %s", e.remaining.Round(time.Millisecond))
}

// IsCircuitOpen reports whether err is a breaker rejection, however
// deeply wrapped.
func IsCircuitOpen(err error) bool {
	var e circuitOpenError
	return errors.As(err, &e)
}

// OpenRemaining returns the cooldown left on a circuit-open error, or zero
// for other errors and half-open saturation.
func OpenRemaining(err error) time.Duration {
	var e circuitOpenError
	if errors.As(err, &e) {
		return e.remaining
	}
	return 0
}
