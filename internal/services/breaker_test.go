package services

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	breaker := NewCircuitBreaker(5, time.Minute)

	for i := 0; i < 4; i++ {
		if err := breaker.Allow(); err != nil {
			t.Fatalf("Allow() before threshold returned error: %v", err)
		}
		breaker.RecordFailure()
	}

	if breaker.State() != StateClosed {
		t.Fatalf("expected closed after 4 failures, got %s", breaker.State())
	}

	if err := breaker.Allow(); err != nil {
		t.Fatalf("Allow() returned error: %v", err)
	}
	breaker.RecordFailure()

	if breaker.State() != StateOpen {
		t.Fatalf("expected open after 5 consecutive failures, got %s", breaker.State())
	}
}

func TestCircuitBreakerOpenShortCircuits(t *testing.T) {
	now := time.Now()
	breaker := NewCircuitBreaker(1, time.Minute)
	breaker.now = func() time.Time { return now }

	breaker.RecordFailure()

	if err := breaker.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen while cooling down, got %v", err)
	}

	// Still inside the cooldown window.
	now = now.Add(59 * time.Second)
	if err := breaker.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen at 59s, got %v", err)
	}
}

func TestCircuitBreakerHalfOpenSingleProbe(t *testing.T) {
	now := time.Now()
	breaker := NewCircuitBreaker(1, time.Minute)
	breaker.now = func() time.Time { return now }

	breaker.RecordFailure()

	now = now.Add(61 * time.Second)

	if err := breaker.Allow(); err != nil {
		t.Fatalf("expected probe admitted after cooldown, got %v", err)
	}
	if breaker.State() != StateHalfOpen {
		t.Fatalf("expected half_open, got %s", breaker.State())
	}

	// Only one probe is in flight at a time.
	if err := breaker.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected second concurrent probe rejected, got %v", err)
	}
}

func TestCircuitBreakerProbeSuccessCloses(t *testing.T) {
	now := time.Now()
	breaker := NewCircuitBreaker(1, time.Minute)
	breaker.now = func() time.Time { return now }

	breaker.RecordFailure()
	now = now.Add(2 * time.Minute)

	if err := breaker.Allow(); err != nil {
		t.Fatalf("expected probe admitted, got %v", err)
	}
	breaker.RecordSuccess()

	if breaker.State() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", breaker.State())
	}
	if err := breaker.Allow(); err != nil {
		t.Fatalf("expected calls admitted after recovery, got %v", err)
	}
}

func TestCircuitBreakerProbeFailureReopens(t *testing.T) {
	now := time.Now()
	breaker := NewCircuitBreaker(3, time.Minute)
	breaker.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		breaker.RecordFailure()
	}
	now = now.Add(2 * time.Minute)

	if err := breaker.Allow(); err != nil {
		t.Fatalf("expected probe admitted, got %v", err)
	}
	breaker.RecordFailure()

	if breaker.State() != StateOpen {
		t.Fatalf("expected reopened after failed probe, got %s", breaker.State())
	}
	if err := breaker.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected calls rejected during new cooldown, got %v", err)
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	breaker := NewCircuitBreaker(3, time.Minute)

	breaker.RecordFailure()
	breaker.RecordFailure()
	breaker.RecordSuccess()
	breaker.RecordFailure()
	breaker.RecordFailure()

	// Failures are consecutive, not cumulative.
	if breaker.State() != StateClosed {
		t.Fatalf("expected closed after interleaved success, got %s", breaker.State())
	}
}
