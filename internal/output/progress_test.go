package output_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cashmeremcp/surge/internal/metrics"
	"github.com/cashmeremcp/surge/internal/output"
)

// syncBuffer guards the buffer against the reporter goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgressReporterEmitsUpdates(t *testing.T) {
	collector := metrics.NewCollector()
	collector.RecordDispatch()
	collector.RecordDispatch()
	collector.RecordSuccess(20*time.Millisecond, 0)

	var buf syncBuffer
	p := output.NewProgressReporter(collector, 10*time.Millisecond, &buf)
	p.Start()
	time.Sleep(50 * time.Millisecond)
	p.Stop()

	got := buf.String()
	if !strings.Contains(got, "Dispatched: 2") {
		t.Errorf("progress missing dispatch count: %q", got)
	}
	if !strings.Contains(got, "Successes: 1") {
		t.Errorf("progress missing success count: %q", got)
	}
	if !strings.Contains(got, "P50:") {
		t.Errorf("progress missing p50 once latencies exist: %q", got)
	}
}

func TestProgressReporterStopIsIdempotent(t *testing.T) {
	p := output.NewProgressReporter(metrics.NewCollector(), time.Millisecond, nil)
	p.Start()
	p.Start() // second Start is a no-op
	p.Stop()
	p.Stop() // second Stop must not panic or block
}
