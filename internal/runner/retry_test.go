package runner_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cashmeremcp/surge/internal/runner"
)

// flakyExecutor fails its first failFirst calls, then succeeds with a fixed
// reported latency.
type flakyExecutor struct {
	mu        sync.Mutex
	calls     int
	failFirst int
	latency   time.Duration
	err       error
}

func (f *flakyExecutor) Execute(ctx context.Context, query string) (time.Duration, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()

	if n <= f.failFirst {
		if f.err != nil {
			return 0, f.err
		}
		return 0, errors.New("transient failure")
	}
	return f.latency, nil
}

func (f *flakyExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	policy := runner.RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		Sleep:      recordingSleep(&delays),
	}
	ex := &flakyExecutor{failFirst: 3, latency: 42 * time.Millisecond}

	out := policy.Run(context.Background(), ex, "q")

	if out.State != runner.StateSucceeded {
		t.Fatalf("expected StateSucceeded, got %v (err=%v)", out.State, out.Err)
	}
	if out.Retries != 3 {
		t.Errorf("expected 3 retries, got %d", out.Retries)
	}
	if out.Latency != 42*time.Millisecond {
		t.Errorf("expected latency 42ms, got %s", out.Latency)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("expected %d backoff sleeps, got %d (%v)", len(want), len(delays), delays)
	}
	for i, d := range want {
		if delays[i] != d {
			t.Errorf("backoff %d: expected %s, got %s", i, d, delays[i])
		}
	}
}

func TestRetryExhaustsAfterMaxRetries(t *testing.T) {
	var delays []time.Duration
	lastErr := errors.New("still broken")
	policy := runner.RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  100 * time.Millisecond,
		Sleep:      recordingSleep(&delays),
	}
	ex := &flakyExecutor{failFirst: 100, err: lastErr}

	out := policy.Run(context.Background(), ex, "q")

	if out.State != runner.StateExhausted {
		t.Fatalf("expected StateExhausted, got %v", out.State)
	}
	if !errors.Is(out.Err, lastErr) {
		t.Errorf("expected last error to be preserved, got %v", out.Err)
	}
	if out.Retries != 2 {
		t.Errorf("expected 2 retries, got %d", out.Retries)
	}
	if ex.callCount() != 3 {
		t.Errorf("expected 3 attempts total, got %d", ex.callCount())
	}
	// No sleep after the final attempt.
	if len(delays) != 2 {
		t.Errorf("expected 2 backoff sleeps, got %d", len(delays))
	}
}

func TestRetryZeroRetriesFailsImmediately(t *testing.T) {
	var delays []time.Duration
	policy := runner.RetryPolicy{
		MaxRetries: 0,
		BaseDelay:  100 * time.Millisecond,
		Sleep:      recordingSleep(&delays),
	}
	ex := &flakyExecutor{failFirst: 100}

	out := policy.Run(context.Background(), ex, "q")

	if out.State != runner.StateExhausted {
		t.Fatalf("expected StateExhausted, got %v", out.State)
	}
	if len(delays) != 0 {
		t.Errorf("expected no backoff sleeps, got %d", len(delays))
	}
	if ex.callCount() != 1 {
		t.Errorf("expected exactly one attempt, got %d", ex.callCount())
	}
}

func TestRetryCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := runner.RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  100 * time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}
	ex := &flakyExecutor{failFirst: 100}

	out := policy.Run(ctx, ex, "q")

	if out.State != runner.StateCancelled {
		t.Fatalf("expected StateCancelled, got %v", out.State)
	}
	if !errors.Is(out.Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", out.Err)
	}
	if ex.callCount() != 1 {
		t.Errorf("expected one attempt before cancellation, got %d", ex.callCount())
	}
}

func TestRetryCancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := runner.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}
	ex := &flakyExecutor{}

	out := policy.Run(ctx, ex, "q")

	if out.State != runner.StateCancelled {
		t.Fatalf("expected StateCancelled, got %v", out.State)
	}
	if ex.callCount() != 0 {
		t.Errorf("executor must not run after cancellation, got %d calls", ex.callCount())
	}
}
