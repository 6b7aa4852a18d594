package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker state.
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
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Do when the breaker is open and the reset timeout
// has not yet elapsed (Allow reports the same condition as false).
var ErrOpen = errors.New("circuit breaker open")

// CircuitBreaker trips to Open after FailureThreshold consecutive failures,
// moves to HalfOpen after ResetTimeout, and closes again on the first
// HalfOpen success. One failure while HalfOpen reopens it.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	openedAt         time.Time
	FailureThreshold int
	ResetTimeout     time.Duration
}

// NewCircuitBreaker constructs a breaker with the given thresholds.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker{FailureThreshold: failureThreshold, ResetTimeout: resetTimeout}
}

// State returns the current breaker state, transitioning Open -> HalfOpen if
// ResetTimeout has elapsed.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

func (b *CircuitBreaker) maybeHalfOpenLocked() {
	if b.state == Open && time.Since(b.openedAt) >= b.ResetTimeout {
		b.state = HalfOpen
	}
}

// Allow reports whether a call may proceed, transitioning Open -> HalfOpen
// when the reset timeout has elapsed.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state != Open
}

// Success records a successful call, closing the breaker.
func (b *CircuitBreaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = Closed
}

// Failure records a failed call, tripping the breaker open once
// FailureThreshold consecutive failures accumulate (or immediately, from
// HalfOpen).
func (b *CircuitBreaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen {
		b.trip()
		return
	}
	b.failures++
	if b.failures >= b.FailureThreshold {
		b.trip()
	}
}

func (b *CircuitBreaker) trip() {
	b.state = Open
	b.openedAt = time.Now()
	b.failures = 0
}

// Do runs fn if the breaker allows it, recording the outcome. It returns
// ErrOpen without calling fn when the breaker is open.
func (b *CircuitBreaker) Do(fn func() error) error {
	if !b.Allow() {
		return ErrOpen
	}
	err := fn()
	if err != nil {
		b.Failure()
		return err
	}
	b.Success()
	return nil
}
