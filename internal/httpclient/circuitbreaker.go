package httpclient

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker implements the circuit breaker pattern for one upstream host.
// Tripping it stops the proxy from hammering a dead or disconnected device
// while DNS/TCP errors are still resolving.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           CircuitState
	failures        int
	halfOpenCount   int
	lastFailureTime time.Time

	threshold   int
	resetAfter  time.Duration
	halfOpenMax int
}

// NewCircuitBreaker creates a new circuit breaker with the given parameters.
func NewCircuitBreaker(threshold int, resetAfter time.Duration, halfOpenMax int) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if halfOpenMax <= 0 {
		halfOpenMax = 1
	}
	return &CircuitBreaker{
		state:       CircuitClosed,
		threshold:   threshold,
		resetAfter:  resetAfter,
		halfOpenMax: halfOpenMax,
	}
}

// Allow returns true if a request should be allowed to proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) >= cb.resetAfter {
			cb.state = CircuitHalfOpen
			cb.halfOpenCount = 1
			return true
		}
		return false
	case CircuitHalfOpen:
		if cb.halfOpenCount < cb.halfOpenMax {
			cb.halfOpenCount++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess records a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
	}
	cb.failures = 0
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.threshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the circuit breaker back to closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CircuitClosed
	cb.failures = 0
	cb.halfOpenCount = 0
}

// Stats is a snapshot of a circuit breaker's state, safe to expose over HTTP.
type Stats struct {
	State    CircuitState
	Failures int
}

// Stats returns a snapshot of the circuit breaker's current state.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Stats{State: cb.state, Failures: cb.failures}
}

// CircuitBreakerManager shares circuit breakers across proxy requests keyed
// by upstream host, so repeated requests to the same dead receiver or
// streaming origin trip the same breaker instead of retrying forever.
type CircuitBreakerManager struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker

	threshold   int
	resetAfter  time.Duration
	halfOpenMax int
}

// NewCircuitBreakerManager creates a manager that lazily creates one breaker
// per host, all sharing the same threshold/timeout parameters.
func NewCircuitBreakerManager(threshold int, resetAfter time.Duration, halfOpenMax int) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers:    make(map[string]*CircuitBreaker),
		threshold:   threshold,
		resetAfter:  resetAfter,
		halfOpenMax: halfOpenMax,
	}
}

// GetOrCreate returns the breaker for host, creating it on first use.
func (m *CircuitBreakerManager) GetOrCreate(host string) *CircuitBreaker {
	m.mu.RLock()
	if b, ok := m.breakers[host]; ok {
		m.mu.RUnlock()
		return b
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[host]; ok {
		return b
	}
	b := NewCircuitBreaker(m.threshold, m.resetAfter, m.halfOpenMax)
	m.breakers[host] = b
	return b
}

// AllStats returns a snapshot of every tracked breaker, keyed by host.
func (m *CircuitBreakerManager) AllStats() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Stats, len(m.breakers))
	for host, b := range m.breakers {
		out[host] = b.Stats()
	}
	return out
}
