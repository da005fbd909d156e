package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Mode selects the termination rule for a run.
type Mode int

const (
	// ModeDuration admits work until a wall-clock deadline passes.
	ModeDuration Mode = iota
	// ModeCount admits exactly TotalCalls units of work.
	ModeCount
)

// Executor performs exactly one tool call and reports its round-trip
// latency. Implementations must not retry; retrying belongs to the retry
// policy. Latency covers the call only, not queueing or backoff time.
type Executor interface {
	Execute(ctx context.Context, query string) (time.Duration, error)
}

// QuerySource supplies the query for each unit of work.
type QuerySource interface {
	Pick() string
}

// Recorder receives the outcome of every unit of work. Implementations must
// be safe for concurrent use.
type Recorder interface {
	RecordDispatch()
	RecordSuccess(latency time.Duration, retries int)
	RecordFailure(err error, retries int)
	RecordCancelled()
}

// Options configure the Runner.
type Options struct {
	Mode          Mode
	Concurrency   int           // maximum simultaneously active units of work
	MaxRetries    int           // retries per unit after the initial attempt
	Duration      time.Duration // run length in duration mode
	TotalCalls    int           // units of work in count mode
	RatePerSecond int           // admission pacing (0 means unlimited)

	Executor Executor    // required
	Queries  QuerySource // required
	Recorder Recorder    // optional

	// DrainTimeout bounds how long the driver waits for in-flight work after
	// admission stops. Zero selects the per-mode default (10s duration mode,
	// 30s count mode).
	DrainTimeout time.Duration
	// CancelGrace bounds how long forced cancellation is given to settle.
	CancelGrace time.Duration

	// BaseRetryDelay is the first backoff step; each retry doubles it.
	BaseRetryDelay time.Duration
	// Sleep is the backoff sleep, injectable for tests.
	Sleep func(ctx context.Context, d time.Duration) error

	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

const (
	defaultBaseRetryDelay       = 100 * time.Millisecond
	defaultCancelGrace          = 5 * time.Second
	defaultDurationDrainTimeout = 10 * time.Second
	defaultCountDrainTimeout    = 30 * time.Second
)

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.TotalCalls < 0 {
		o.TotalCalls = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.DrainTimeout <= 0 {
		if o.Mode == ModeCount {
			o.DrainTimeout = defaultCountDrainTimeout
		} else {
			o.DrainTimeout = defaultDurationDrainTimeout
		}
	}
	if o.CancelGrace <= 0 {
		o.CancelGrace = defaultCancelGrace
	}
	if o.BaseRetryDelay <= 0 {
		o.BaseRetryDelay = defaultBaseRetryDelay
	}
	if o.Queries == nil {
		o.Queries = staticQuery("query")
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return nil
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

type staticQuery string

func (s staticQuery) Pick() string { return string(s) }

type nopRecorder struct{}

func (nopRecorder) RecordDispatch()                  {}
func (nopRecorder) RecordSuccess(time.Duration, int) {}
func (nopRecorder) RecordFailure(error, int)         {}
func (nopRecorder) RecordCancelled()                 {}
