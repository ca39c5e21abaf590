// Package resilience guards calls to external services with circuit
// breakers and bounded retries.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
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

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig controls circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Name identifies the guarded service in logs.
	Name string

	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default: 3.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a probe is
	// let through. Default: 60s.
	ResetTimeout time.Duration

	// ShouldTrip decides whether an error counts as a failure. Nil counts
	// every non-nil error.
	ShouldTrip func(err error) bool
}

// DefaultCircuitBreakerConfig trips after 3 consecutive failures and probes
// again after 60s.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 3,
		ResetTimeout:     60 * time.Second,
	}
}

// CircuitBreaker stops calling a service after repeated failures so that a
// scrape chain can fall through to the next provider immediately.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given config.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = func(err error) bool { return err != nil }
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Allow reports whether a call would currently be let through.
func (cb *CircuitBreaker) Allow() bool {
	return cb.State() != CircuitOpen
}

// State returns the current circuit state. An open circuit whose reset
// timeout has elapsed reports half-open.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		return CircuitHalfOpen
	}
	return cb.state
}

// Execute runs fn through the breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := ExecuteVal(ctx, cb, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// ExecuteVal runs fn through the breaker and returns its value. Calls are
// rejected with ErrCircuitOpen while the circuit is open.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !cb.acquire() {
		return zero, eris.Wrapf(ErrCircuitOpen, "resilience: %s", cb.cfg.Name)
	}
	val, err := fn(ctx)
	cb.record(err)
	return val, err
}

// Reset forces the circuit closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.transition(CircuitClosed)
}

func (cb *CircuitBreaker) acquire() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != CircuitOpen {
		return true
	}
	if cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		cb.transition(CircuitHalfOpen)
		return true
	}
	return false
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil || !cb.cfg.ShouldTrip(err) {
		cb.failures = 0
		cb.transition(CircuitClosed)
		return
	}

	cb.failures++
	if cb.state == CircuitHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
		cb.openedAt = cb.now()
		cb.transition(CircuitOpen)
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	zap.L().Warn("resilience: circuit state changed",
		zap.String("service", cb.cfg.Name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("failures", cb.failures),
	)
}
