// Package output renders the final report and live progress updates.
package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/cashmeremcp/surge/internal/metrics"
)

// ProgressReporter displays real-time progress updates on one line.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given
// interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			dispatched, successes, failures, rps, p50 := p.collector.Snapshot()
			line := fmt.Sprintf("\rDispatched: %d | Successes: %d | Failures: %d | RPS: %.1f",
				dispatched, successes, failures, rps)
			if p50 > 0 {
				line += fmt.Sprintf(" | P50: %.1fms", float64(p50)/float64(time.Millisecond))
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}
