package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestRetryFirstAttemptSucceeds(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), clockwork.NewFakeClock(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Second},
		func(context.Context) (string, error) {
			calls++
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if got != "ok" {
		t.Errorf("value = %q", got)
	}
	// No clock advance happened, so a success on the first try must not wait.
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), nil, RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond},
		func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if got != 42 {
		t.Errorf("value = %d", got)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryPreservesLastError(t *testing.T) {
	first := errors.New("first failure")
	last := errors.New("last failure")

	calls := 0
	_, err := Retry(context.Background(), nil, RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond},
		func(context.Context) (struct{}, error) {
			calls++
			if calls < 3 {
				return struct{}{}, first
			}
			return struct{}{}, last
		})
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	// Identity, not just equivalence: the caller pattern-matches on it.
	if err != last {
		t.Fatalf("err = %v, want the final attempt's error verbatim", err)
	}
}

func TestRetryDelaysDouble(t *testing.T) {
	fc := clockwork.NewFakeClock()
	boom := errors.New("down")

	var calls int
	done := make(chan error, 1)
	go func() {
		_, err := Retry(context.Background(), fc, RetryConfig{MaxAttempts: 3, BaseDelay: time.Second},
			func(context.Context) (struct{}, error) {
				calls++
				return struct{}{}, boom
			})
		done <- err
	}()

	// Attempt 1 runs immediately, then waits 1s; attempt 3 waits another 2s.
	fc.BlockUntil(1)
	fc.Advance(time.Second)
	fc.BlockUntil(1)
	fc.Advance(2 * time.Second)

	select {
	case err := <-done:
		if err != boom {
			t.Fatalf("err = %v, want the operation error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Retry did not finish after advancing through both backoff delays")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, fc, RetryConfig{MaxAttempts: 5, BaseDelay: time.Minute},
			func(context.Context) (struct{}, error) {
				return struct{}{}, errors.New("down")
			})
		done <- err
	}()

	fc.BlockUntil(1) // parked in the first backoff wait
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Retry did not return after context cancellation")
	}
}
