package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector accumulates per-call outcomes in a thread-safe manner. It is
// owned by the load driver for the duration of a run and read-only afterward.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	dispatched   int64
	successes    int64
	failures     int64
	cancelled    int64
	retriesTotal int64
	latencies    []time.Duration
	errorsByKind map[string]int64
	start        time.Time
}

// ErrorCount is one row of the error breakdown, ordered by count descending.
type ErrorCount struct {
	Kind    string  `json:"kind"`
	Count   int64   `json:"count"`
	Percent float64 `json:"percent_of_dispatched"`
}

// Stats represents the aggregated result of a run.
type Stats struct {
	Dispatched    int64 `json:"dispatched"`
	Successes     int64 `json:"successes"`
	Failures      int64 `json:"failures"`
	Cancelled     int64 `json:"cancelled,omitempty"`
	RetriesTotal  int64 `json:"retries_total"`
	MaxConcurrent int   `json:"max_concurrent"`

	Duration         time.Duration `json:"-"`
	RequestsPerSec   float64       `json:"requests_per_sec"`
	DispatchedPerSec float64       `json:"dispatched_per_sec"`

	// SuccessRate is only meaningful when Completed is true, i.e. at least
	// one unit of work ran to success or exhaustion.
	Completed   bool    `json:"completed"`
	SuccessRate float64 `json:"success_rate"`

	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`
	P50Latency  time.Duration `json:"-"`
	P95Latency  time.Duration `json:"-"`
	P99Latency  time.Duration `json:"-"`
	// HasP99 is false when fewer than 100 latency samples were recorded;
	// a p99 estimate from a smaller sample is misleading and is omitted.
	HasP99 bool `json:"has_p99"`

	// JSON-friendly millisecond fields.
	DurationMs    float64 `json:"duration_ms"`
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`

	Errors []ErrorCount `json:"errors,omitempty"`

	// Interrupted marks a run that was cancelled externally; the numbers
	// above are a best-effort partial view.
	Interrupted bool `json:"interrupted,omitempty"`
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures. The
	// histogram backs the live progress snapshot; the final report
	// percentiles come from the exact sorted sample.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:         h,
		errorsByKind: make(map[string]int64),
		start:        time.Now(),
	}
}

// Start marks the beginning of the run for elapsed-time accounting.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// RecordDispatch counts one unit of work admitted by the driver.
func (c *Collector) RecordDispatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatched++
}

// RecordSuccess records the latency of a successful unit of work and the
// number of retries it took to get there.
func (c *Collector) RecordSuccess(latency time.Duration, retries int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successes++
	c.retriesTotal += int64(retries)
	c.latencies = append(c.latencies, latency)

	us := latency.Microseconds()
	if us < c.hist.LowestTrackableValue() {
		us = c.hist.LowestTrackableValue()
	}
	if us > c.hist.HighestTrackableValue() {
		us = c.hist.HighestTrackableValue()
	}
	_ = c.hist.RecordValue(us)
}

// RecordFailure records a unit of work that exhausted its retries, bucketed
// by the classification of its last error.
func (c *Collector) RecordFailure(err error, retries int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	c.retriesTotal += int64(retries)
	c.errorsByKind[Kind(err)]++
}

// RecordCancelled counts a unit of work that was cancelled before reaching
// success or exhaustion. It is neither a success nor a failure.
func (c *Collector) RecordCancelled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled++
}

// Snapshot returns a cheap live view for progress reporting, using the
// histogram rather than the exact sample.
func (c *Collector) Snapshot() (dispatched, successes, failures int64, rps float64, p50 time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.start)
	if elapsed > 0 {
		rps = float64(c.successes) / elapsed.Seconds()
	}
	if c.hist.TotalCount() > 0 {
		p50 = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
	}
	return c.dispatched, c.successes, c.failures, rps, p50
}

// Stats computes the final aggregated statistics for the run.
//
// Requests/sec is successes divided by elapsed time in both modes; the old
// scripts disagreed with each other here, so the dispatch rate is reported
// separately as DispatchedPerSec instead of being folded into one number.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Dispatched:   c.dispatched,
		Successes:    c.successes,
		Failures:     c.failures,
		Cancelled:    c.cancelled,
		RetriesTotal: c.retriesTotal,
		Duration:     elapsed,
		DurationMs:   float64(elapsed) / float64(time.Millisecond),
	}

	if elapsed > 0 {
		stats.RequestsPerSec = float64(c.successes) / elapsed.Seconds()
		stats.DispatchedPerSec = float64(c.dispatched) / elapsed.Seconds()
	}

	if completed := c.successes + c.failures; completed > 0 {
		stats.Completed = true
		stats.SuccessRate = float64(c.successes) / float64(completed)
	}

	if n := len(c.latencies); n > 0 {
		sorted := make([]time.Duration, n)
		copy(sorted, c.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		stats.MinLatency = sorted[0]
		stats.MaxLatency = sorted[n-1]

		var sum time.Duration
		for _, l := range sorted {
			sum += l
		}
		stats.MeanLatency = sum / time.Duration(n)

		stats.P50Latency = percentile(sorted, 0.50)
		stats.P95Latency = percentile(sorted, 0.95)
		if n >= 100 {
			stats.P99Latency = percentile(sorted, 0.99)
			stats.HasP99 = true
		}
	}

	stats.MinLatencyMs = float64(stats.MinLatency) / float64(time.Millisecond)
	stats.MaxLatencyMs = float64(stats.MaxLatency) / float64(time.Millisecond)
	stats.MeanLatencyMs = float64(stats.MeanLatency) / float64(time.Millisecond)
	stats.P50LatencyMs = float64(stats.P50Latency) / float64(time.Millisecond)
	stats.P95LatencyMs = float64(stats.P95Latency) / float64(time.Millisecond)
	stats.P99LatencyMs = float64(stats.P99Latency) / float64(time.Millisecond)

	if len(c.errorsByKind) > 0 {
		stats.Errors = make([]ErrorCount, 0, len(c.errorsByKind))
		for kind, count := range c.errorsByKind {
			row := ErrorCount{Kind: kind, Count: count}
			if c.dispatched > 0 {
				row.Percent = float64(count) / float64(c.dispatched) * 100
			}
			stats.Errors = append(stats.Errors, row)
		}
		sort.Slice(stats.Errors, func(i, j int) bool {
			if stats.Errors[i].Count != stats.Errors[j].Count {
				return stats.Errors[i].Count > stats.Errors[j].Count
			}
			return stats.Errors[i].Kind < stats.Errors[j].Kind
		})
	}

	return stats
}

// LatencyCount returns how many successful latencies have been recorded.
func (c *Collector) LatencyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.latencies)
}

// percentile indexes a sorted ascending sample at floor(N * p), clamped to
// the last element.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
