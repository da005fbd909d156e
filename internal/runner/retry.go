package runner

import (
	"context"
	"time"
)

// State is the terminal state of one unit of work.
type State int

const (
	// StateSucceeded means an attempt returned without error.
	StateSucceeded State = iota
	// StateExhausted means every attempt failed, including all retries.
	StateExhausted
	// StateCancelled means the unit was cancelled before reaching a
	// terminal success or exhaustion.
	StateCancelled
)

// Outcome is the result of driving one unit of work through the retry
// policy. Latency is valid only for StateSucceeded; Err carries the last
// attempt's error for StateExhausted and the context error for
// StateCancelled. Retries counts completed retry attempts.
type Outcome struct {
	State   State
	Latency time.Duration
	Err     error
	Retries int
}

// RetryPolicy retries failed attempts with exponential backoff. All errors
// are retried identically; classification only matters for the final
// failure bucket.
type RetryPolicy struct {
	MaxRetries int           // retries after the initial attempt
	BaseDelay  time.Duration // first backoff step, doubled per retry

	// Sleep is the interruptible backoff sleep. Nil means the default
	// timer-based sleep; tests inject their own to observe delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run drives the executor until success, exhaustion, or cancellation.
// Attempt n sleeps BaseDelay*2^n before attempt n+1, so a policy with three
// retries backs off 100ms, 200ms, 400ms at the default base delay.
func (p RetryPolicy) Run(ctx context.Context, ex Executor, query string) Outcome {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return Outcome{State: StateCancelled, Err: err, Retries: n}
		}

		latency, err := ex.Execute(ctx, query)
		if err == nil {
			return Outcome{State: StateSucceeded, Latency: latency, Retries: n}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{State: StateCancelled, Err: ctxErr, Retries: n}
		}
		if n == p.MaxRetries {
			return Outcome{State: StateExhausted, Err: err, Retries: n}
		}

		if serr := sleep(ctx, p.BaseDelay<<uint(n)); serr != nil {
			return Outcome{State: StateCancelled, Err: serr, Retries: n}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
