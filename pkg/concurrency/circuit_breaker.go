package concurrency

import (
	"sync"
	"sync/atomic"
	"time"
)

// BreakerState represents the state of the circuit breaker
type BreakerState int32

const (
	// StateClosed indicates the circuit is closed and operations are allowed
	StateClosed BreakerState = 0

	// StateOpen indicates the circuit is open and operations are blocked
	StateOpen BreakerState = 1

	// StateHalfOpen indicates the circuit is testing if it should close
	StateHalfOpen BreakerState = 2
)

// halfOpenSuccesses is how many consecutive successes close a half-open
// circuit again.
const halfOpenSuccesses = 5

// CircuitBreaker sheds load after repeated failures: once
// failureThreshold consecutive failures occur the circuit opens, and it
// only half-opens for probing after resetTimeout has passed.
type CircuitBreaker struct {
	state            atomic.Int32
	failures         atomic.Int64
	successes        atomic.Int64
	lastFailureNanos atomic.Int64
	failureThreshold int64
	resetTimeout     time.Duration
	mu               sync.Mutex
}

// NewCircuitBreaker creates a circuit breaker with the specified
// threshold and reset timeout.
func NewCircuitBreaker(failureThreshold int64, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 10
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

// IsOpen returns true if the circuit breaker currently blocks
// operations, transitioning to half-open once the reset timeout has
// elapsed.
func (cb *CircuitBreaker) IsOpen() bool {
	if BreakerState(cb.state.Load()) != StateOpen {
		return false
	}
	lastFailure := cb.lastFailureNanos.Load()
	if lastFailure > 0 && time.Since(time.Unix(0, lastFailure)) > cb.resetTimeout {
		cb.transitionTo(StateHalfOpen)
		return false
	}
	return true
}

// RecordSuccess records a successful operation.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.failures.Store(0)
	if BreakerState(cb.state.Load()) == StateHalfOpen {
		if cb.successes.Add(1) >= halfOpenSuccesses {
			cb.transitionTo(StateClosed)
		}
	}
}

// RecordFailure records a failed operation, opening the circuit when
// the failure threshold is crossed or when probing half-open fails.
func (cb *CircuitBreaker) RecordFailure() {
	state := BreakerState(cb.state.Load())
	cb.successes.Store(0)
	cb.lastFailureNanos.Store(time.Now().UnixNano())

	failures := cb.failures.Add(1)
	if state == StateClosed && failures >= cb.failureThreshold {
		cb.transitionTo(StateOpen)
	} else if state == StateHalfOpen {
		cb.transitionTo(StateOpen)
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	return BreakerState(cb.state.Load())
}

// Reset returns the breaker to the closed state.
func (cb *CircuitBreaker) Reset() {
	cb.transitionTo(StateClosed)
	cb.lastFailureNanos.Store(0)
}

func (cb *CircuitBreaker) transitionTo(newState BreakerState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if BreakerState(cb.state.Load()) == newState {
		return
	}
	cb.state.Store(int32(newState))

	switch newState {
	case StateClosed:
		cb.failures.Store(0)
		cb.successes.Store(0)
	case StateHalfOpen:
		cb.successes.Store(0)
	}
}

// String returns the string representation of the breaker state
func (s BreakerState) String() string {
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
