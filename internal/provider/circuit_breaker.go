package provider

import (
	"sync"
	"time"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// CircuitBreaker implements the Closed/Open/HalfOpen automaton from §4.2,
// §9: Closed allows all traffic and counts failures; FailureThreshold
// consecutive failures trip it Open; after its open duration elapses it
// moves to HalfOpen and allows a bounded number of probe requests;
// SuccessThreshold consecutive successes in HalfOpen close it again, while
// any HalfOpen failure reopens it with a doubled (bounded) open duration —
// Open(duration=OpenTimeout·2^reopenCount), per §4.2. State never reverts
// Open->Closed without passing through HalfOpen.
type CircuitBreaker struct {
	cfg config.CircuitBreakerConfig

	mu               sync.Mutex
	state            models.CircuitState
	consecutiveFails int
	consecutiveOK    int
	openedAt         time.Time
	openDuration     time.Duration
	reopenCount      int
	halfOpenInFlight int
}

// NewCircuitBreaker creates a circuit breaker starting in the Closed state.
func NewCircuitBreaker(cfg config.CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, state: models.CircuitClosed}
}

// Allow reports whether a request may proceed, transitioning Open->HalfOpen
// once the current open duration (OpenTimeout, doubled per reopen) has
// elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case models.CircuitClosed:
		return true
	case models.CircuitOpen:
		if time.Since(cb.openedAt) >= cb.openDuration {
			cb.state = models.CircuitHalfOpen
			cb.halfOpenInFlight = 0
			cb.consecutiveOK = 0
		} else {
			return false
		}
		fallthrough
	case models.CircuitHalfOpen:
		if cb.halfOpenInFlight >= cb.cfg.HalfOpenMaxRequests {
			return false
		}
		cb.halfOpenInFlight++
		return true
	}
	return false
}

// RecordSuccess registers a successful call, closing a HalfOpen breaker once
// enough consecutive probes succeed.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0

	switch cb.state {
	case models.CircuitHalfOpen:
		cb.consecutiveOK++
		cb.halfOpenInFlight--
		if cb.consecutiveOK >= cb.cfg.SuccessThreshold {
			cb.state = models.CircuitClosed
			cb.consecutiveOK = 0
			cb.reopenCount = 0
		}
	case models.CircuitClosed:
		// no-op, already healthy
	}
}

// RecordFailure registers a failed call, tripping Closed->Open once
// FailureThreshold is reached and immediately reopening on any HalfOpen
// probe failure.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case models.CircuitHalfOpen:
		cb.halfOpenInFlight--
		cb.open()
	case models.CircuitClosed:
		cb.consecutiveFails++
		if cb.consecutiveFails >= cb.cfg.FailureThreshold {
			cb.open()
		}
	}
}

// open trips (or retrips) the breaker, doubling the open duration on every
// HalfOpen->Open reopen (OpenTimeout*2^reopenCount) and bounding it at
// MaxOpenTimeout, per §4.2.
func (cb *CircuitBreaker) open() {
	reopening := cb.state == models.CircuitHalfOpen
	cb.state = models.CircuitOpen
	cb.openedAt = time.Now()
	cb.consecutiveFails = 0
	cb.consecutiveOK = 0

	if reopening {
		cb.reopenCount++
	}
	duration := cb.cfg.OpenTimeout << cb.reopenCount
	if duration <= 0 || (cb.cfg.MaxOpenTimeout > 0 && duration > cb.cfg.MaxOpenTimeout) {
		duration = cb.cfg.MaxOpenTimeout
	}
	if duration <= 0 {
		duration = cb.cfg.OpenTimeout
	}
	cb.openDuration = duration
}

// State returns the breaker's current position, resolving an elapsed Open
// timeout to HalfOpen without consuming a probe slot.
func (cb *CircuitBreaker) State() models.CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == models.CircuitOpen && time.Since(cb.openedAt) >= cb.openDuration {
		return models.CircuitHalfOpen
	}
	return cb.state
}
