package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Result captures the execution summary of a run.
type Result struct {
	Dispatched    int64
	Successes     int64
	Failures      int64
	Cancelled     int64
	MaxConcurrent int
	Duration      time.Duration
	Interrupted   bool
}

// Runner drives concurrent tool calls against the executor in one of two
// modes: a wall-clock duration or an exact call count.
type Runner struct {
	opt     Options
	gate    *Gate
	limiter *rate.Limiter
	policy  RetryPolicy
}

// New creates a Runner from the given options.
func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{
		opt:     opt,
		gate:    NewGate(opt.Concurrency),
		limiter: opt.LimiterFactory(opt.RatePerSecond),
		policy: RetryPolicy{
			MaxRetries: opt.MaxRetries,
			BaseDelay:  opt.BaseRetryDelay,
			Sleep:      opt.Sleep,
		},
	}
}

type counters struct {
	successes atomic.Int64
	failures  atomic.Int64
	cancelled atomic.Int64
}

// Run executes the load test until the mode's termination rule fires or ctx
// is cancelled. In-flight work is drained with a bounded grace period in
// either case. The returned error is non-nil only for external
// cancellation; per-call failures are reported through the Result and the
// Recorder, never as a run error.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	// workCtx governs in-flight units. It derives from ctx so an external
	// interrupt reaches every suspension point directly; the mode deadline
	// deliberately does not apply to it, so in-flight work survives into
	// the grace window.
	workCtx, cancelWork := context.WithCancel(ctx)
	defer cancelWork()

	admCtx := ctx
	if r.opt.Mode == ModeDuration {
		var cancel context.CancelFunc
		admCtx, cancel = context.WithDeadline(ctx, start.Add(r.opt.Duration))
		defer cancel()
	}

	// Outstanding units are bounded above the gate's limit so completed
	// work is replaced promptly without unbounded goroutine growth: the
	// exact concurrency in count mode, twice it in duration mode.
	softCap := r.opt.Concurrency
	if r.opt.Mode == ModeDuration {
		softCap = 2 * r.opt.Concurrency
	}
	slots := make(chan struct{}, softCap)

	var (
		wg         sync.WaitGroup
		c          counters
		dispatched int64
	)

admission:
	for {
		if r.opt.Mode == ModeCount && dispatched >= int64(r.opt.TotalCalls) {
			break
		}
		if admCtx.Err() != nil {
			break
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(admCtx); err != nil {
				break
			}
		}
		select {
		case slots <- struct{}{}:
		case <-admCtx.Done():
			break admission
		}

		dispatched++
		r.opt.Recorder.RecordDispatch()
		query := r.opt.Queries.Pick()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slots }()
			r.work(workCtx, query, &c)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	interrupted := ctx.Err() != nil
	var runErr error

	if interrupted {
		// Admission already stopped; force-cancel outstanding units and
		// give the cancellation a bounded window to settle.
		cancelWork()
		r.await(done, r.opt.CancelGrace)
		runErr = ctx.Err()
	} else {
		select {
		case <-done:
		case <-ctx.Done():
			interrupted = true
			cancelWork()
			r.await(done, r.opt.CancelGrace)
			runErr = ctx.Err()
		case <-time.After(r.opt.DrainTimeout):
			cancelWork()
			r.await(done, r.opt.CancelGrace)
		}
	}

	return Result{
		Dispatched:    dispatched,
		Successes:     c.successes.Load(),
		Failures:      c.failures.Load(),
		Cancelled:     c.cancelled.Load(),
		MaxConcurrent: r.gate.MaxObserved(),
		Duration:      time.Since(start),
		Interrupted:   interrupted,
	}, runErr
}

// work runs one unit of work: acquire a permit, drive the retry policy to a
// terminal state, fold the outcome into the counters and recorder.
func (r *Runner) work(ctx context.Context, query string, c *counters) {
	err := r.gate.Do(ctx, func() {
		out := r.policy.Run(ctx, r.opt.Executor, query)
		switch out.State {
		case StateSucceeded:
			c.successes.Add(1)
			r.opt.Recorder.RecordSuccess(out.Latency, out.Retries)
		case StateExhausted:
			c.failures.Add(1)
			r.opt.Recorder.RecordFailure(out.Err, out.Retries)
		case StateCancelled:
			c.cancelled.Add(1)
			r.opt.Recorder.RecordCancelled()
		}
	})
	if err != nil {
		// Cancelled while waiting for a permit; the unit never ran.
		c.cancelled.Add(1)
		r.opt.Recorder.RecordCancelled()
	}
}

func (r *Runner) await(done <-chan struct{}, grace time.Duration) {
	select {
	case <-done:
	case <-time.After(grace):
	}
}
