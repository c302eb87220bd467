package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/voxtutor/voxtutor/internal/resilience"
)

var errBackend = errors.New("backend unavailable")

func newBreaker(maxFailures int, resetTimeout time.Duration) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  maxFailures,
		ResetTimeout: resetTimeout,
		HalfOpenMax:  2,
	})
}

func fail(cb *resilience.CircuitBreaker) error {
	return cb.Execute(func() error { return errBackend })
}

func succeed(cb *resilience.CircuitBreaker) error {
	return cb.Execute(func() error { return nil })
}

func TestBreaker_StaysClosedOnSuccess(t *testing.T) {
	t.Parallel()
	cb := newBreaker(3, time.Minute)

	for range 10 {
		if err := succeed(cb); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if cb.State() != resilience.StateClosed {
		t.Errorf("state: got %v, want closed", cb.State())
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()
	cb := newBreaker(3, time.Minute)

	for range 3 {
		if err := fail(cb); !errors.Is(err, errBackend) {
			t.Fatalf("expected backend error, got: %v", err)
		}
	}
	if cb.State() != resilience.StateOpen {
		t.Fatalf("state after 3 failures: got %v, want open", cb.State())
	}

	// Further calls are rejected without invoking fn.
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got: %v", err)
	}
	if called {
		t.Error("fn must not be called while the breaker is open")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()
	cb := newBreaker(3, time.Minute)

	fail(cb)
	fail(cb)
	succeed(cb)
	fail(cb)
	fail(cb)

	if cb.State() != resilience.StateClosed {
		t.Errorf("state: got %v, want closed (success resets the streak)", cb.State())
	}
}

func TestBreaker_HalfOpenClosesAfterProbes(t *testing.T) {
	t.Parallel()
	cb := newBreaker(1, 10*time.Millisecond)

	fail(cb)
	if cb.State() != resilience.StateOpen {
		t.Fatalf("state: got %v, want open", cb.State())
	}

	time.Sleep(20 * time.Millisecond)
	if cb.State() != resilience.StateHalfOpen {
		t.Fatalf("state after reset timeout: got %v, want half-open", cb.State())
	}

	// HalfOpenMax is 2: two successful probes close the breaker.
	if err := succeed(cb); err != nil {
		t.Fatalf("first probe: %v", err)
	}
	if err := succeed(cb); err != nil {
		t.Fatalf("second probe: %v", err)
	}
	if cb.State() != resilience.StateClosed {
		t.Errorf("state after probes: got %v, want closed", cb.State())
	}
}

func TestBreaker_HalfOpenReopensOnFailure(t *testing.T) {
	t.Parallel()
	cb := newBreaker(1, 10*time.Millisecond)

	fail(cb)
	time.Sleep(20 * time.Millisecond)

	if err := fail(cb); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error from probe, got: %v", err)
	}
	if cb.State() != resilience.StateOpen {
		t.Errorf("state after failed probe: got %v, want open", cb.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()
	cb := newBreaker(1, time.Hour)

	fail(cb)
	if cb.State() != resilience.StateOpen {
		t.Fatalf("state: got %v, want open", cb.State())
	}

	cb.Reset()
	if cb.State() != resilience.StateClosed {
		t.Errorf("state after reset: got %v, want closed", cb.State())
	}
	if err := succeed(cb); err != nil {
		t.Errorf("call after reset should pass, got: %v", err)
	}
}
