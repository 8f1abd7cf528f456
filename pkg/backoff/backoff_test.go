package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithBackoffSucceedsEventually(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), "test", 3, time.Millisecond, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithBackoffExhaustsRetries(t *testing.T) {
	attempts := 0
	sentinel := errors.New("permanent failure")
	err := WithBackoff(context.Background(), "test", 2, time.Millisecond, func(ctx context.Context) error {
		attempts++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected the last error to propagate, got %v", err)
	}
	if attempts != 3 { // maxRetries=2 means 3 total attempts
		t.Fatalf("expected maxRetries+1=3 attempts, got %d", attempts)
	}
}

func TestWithBackoffRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts := 0
	err := WithBackoff(ctx, "test", 5, time.Millisecond, func(ctx context.Context) error {
		attempts++
		return errors.New("would retry")
	})
	if err == nil {
		t.Fatalf("expected a cancellation error")
	}
	if attempts != 0 {
		t.Fatalf("expected op to never run once ctx is already cancelled, got %d calls", attempts)
	}
}

func TestWithBackoffNoRetriesNeeded(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), "test", 3, time.Millisecond, func(ctx context.Context) error {
		attempts++
		return nil
	})
	if err != nil || attempts != 1 {
		t.Fatalf("expected single successful call, got attempts=%d err=%v", attempts, err)
	}
}
