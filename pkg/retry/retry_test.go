package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDoMaxRetriesExceeded(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		return errors.New("still failing")
	})

	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	// MaxRetries=3 means 4 total attempts
	if attempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", attempts)
	}
}

func TestDoCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastConfig(), func() error {
		return errors.New("never succeeds")
	})

	if err == nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected cancellation error, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []string{
		"dial tcp 127.0.0.1:5432: connect: connection refused",
		"pq: the database system is starting up",
		"pq: the database system is not yet accepting connections",
		"instance is still in recovery",
		"read tcp: i/o timeout",
	}
	for _, msg := range retryable {
		if !IsRetryable(errors.New(msg)) {
			t.Errorf("Expected retryable: %q", msg)
		}
	}

	notRetryable := []string{
		`pq: syntax error at or near "SELEC"`,
		`pq: permission denied for table t`,
	}
	for _, msg := range notRetryable {
		if IsRetryable(errors.New(msg)) {
			t.Errorf("Expected not retryable: %q", msg)
		}
	}

	if IsRetryable(nil) {
		t.Error("nil error should not be retryable")
	}
}
