package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

func TestRetry_SucceedsAfterRetries(t *testing.T) {
	attempts := 0
	p := Policy{Initial: time.Millisecond, Max: 10 * time.Millisecond, Multiplier: 2, MaxRetries: 5}
	err := Retry(context.Background(), p, func(error) bool { return true }, func() error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	attempts := 0
	p := Policy{Initial: time.Millisecond, Max: 10 * time.Millisecond, Multiplier: 2, MaxRetries: 5}
	err := Retry(context.Background(), p, func(e error) bool { return !errors.Is(e, errFatal) }, func() error {
		attempts++
		return errFatal
	})
	if !errors.Is(err, errFatal) {
		t.Fatalf("got %v, want errFatal", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_ExhaustsBudget(t *testing.T) {
	attempts := 0
	p := Policy{Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 2, MaxRetries: 2}
	err := Retry(context.Background(), p, func(error) bool { return true }, func() error {
		attempts++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("got %v, want errTransient", err)
	}
	if attempts != 3 { // initial + 2 retries
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Policy{Initial: time.Millisecond, Max: time.Millisecond, Multiplier: 2, MaxRetries: 5}
	err := Retry(ctx, p, func(error) bool { return true }, func() error {
		return errTransient
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
