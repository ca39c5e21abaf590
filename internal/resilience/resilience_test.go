package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "jina", FailureThreshold: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("fail") })
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}
	if cb.Allow() {
		t.Fatal("open circuit should not allow calls")
	}

	err := cb.Execute(context.Background(), func(context.Context) error {
		t.Error("should not be called when circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	fail := func(context.Context) error { return errors.New("fail") }
	ok := func(context.Context) error { return nil }

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), ok)
	_ = cb.Execute(context.Background(), fail)

	if cb.State() != CircuitClosed {
		t.Fatalf("non-consecutive failures should not trip, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 30 * time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("fail") })
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	now = now.Add(31 * time.Second)
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open after reset timeout, got %s", cb.State())
	}

	// A failed probe reopens the circuit.
	_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("still down") })
	if cb.State() != CircuitOpen {
		t.Fatalf("expected reopened, got %s", cb.State())
	}

	now = now.Add(31 * time.Second)
	v, err := ExecuteVal(context.Background(), cb, func(context.Context) (string, error) { return "html", nil })
	if err != nil || v != "html" {
		t.Fatalf("probe should pass through, got %q %v", v, err)
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("successful probe should close, got %s", cb.State())
	}
}

func TestCircuitBreaker_ShouldTrip(t *testing.T) {
	notFound := errors.New("404")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ShouldTrip:       func(err error) bool { return !errors.Is(err, notFound) },
	})
	_ = cb.Execute(context.Background(), func(context.Context) error { return notFound })
	if cb.State() != CircuitClosed {
		t.Fatalf("ignored error should not trip, got %s", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("fail") })
	cb.Reset()
	if !cb.Allow() {
		t.Fatal("reset circuit should allow calls")
	}
}

func TestCircuitState_String(t *testing.T) {
	for state, want := range map[CircuitState]string{
		CircuitClosed: "closed", CircuitOpen: "open", CircuitHalfOpen: "half-open", CircuitState(9): "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d: got %q, want %q", state, got, want)
		}
	}
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	var calls, retries int
	cfg := fastRetry(3)
	cfg.OnRetry = func(int, error) { retries++ }

	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("503"), http.StatusServiceUnavailable)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 || retries != 2 {
		t.Fatalf("expected 3 calls and 2 retries, got %d and %d", calls, retries)
	}
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(5), func(context.Context) error {
		calls++
		return errors.New("404 not found")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected one call and an error, got %d calls, err %v", calls, err)
	}
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastRetry(4), func(context.Context) ([]byte, error) {
		calls++
		return nil, NewTransientError(errors.New("429"), http.StatusTooManyRequests)
	})
	if err == nil || calls != 4 {
		t.Fatalf("expected 4 calls and an error, got %d calls, err %v", calls, err)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := Do(ctx, RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("reset"), 0)
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected cancellation to stop retries, got %d calls, err %v", calls, err)
	}
}

func TestBackoff_CappedAndJittered(t *testing.T) {
	cfg := applyDefaults(RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, JitterFraction: 0.5})
	for attempt := 0; attempt < 6; attempt++ {
		d := backoff(attempt, cfg)
		if d < 0 || d > 450*time.Millisecond {
			t.Fatalf("attempt %d: backoff %s out of range", attempt, d)
		}
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("bad request"), false},
		{NewTransientError(errors.New("x"), 503), true},
		{fmt.Errorf("wrapped: %w", NewTransientError(errors.New("x"), 429)), true},
		{fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{errors.New("read tcp: connection reset by peer"), true},
		{errors.New("net/http: TLS handshake timeout"), true},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("%d should be transient", code)
		}
	}
	for _, code := range []int{200, 301, 400, 403, 404} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("%d should not be transient", code)
		}
	}
}
