package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cashmeremcp/surge/internal/metrics"
	"github.com/cashmeremcp/surge/internal/output"
)

func sampleStats() metrics.Stats {
	return metrics.Stats{
		Dispatched:       120,
		Successes:        110,
		Failures:         10,
		RetriesTotal:     14,
		MaxConcurrent:    8,
		Duration:         10*time.Second + 1500*time.Microsecond,
		RequestsPerSec:   11.0,
		DispatchedPerSec: 12.0,
		Completed:        true,
		SuccessRate:      110.0 / 120.0,
		MinLatencyMs:     12.5,
		MeanLatencyMs:    80.25,
		MaxLatencyMs:     410.0,
		P50LatencyMs:     75.0,
		P95LatencyMs:     220.0,
		P99LatencyMs:     390.0,
		HasP99:           true,
		Errors: []metrics.ErrorCount{
			{Kind: "HTTPError", Count: 7, Percent: 5.8},
			{Kind: "DeadlineExceeded", Count: 3, Percent: 2.5},
		},
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	output.PrintReport(&buf, sampleStats())
	got := buf.String()

	for _, want := range []string{
		"--- Load Test Results ---",
		"Dispatched:        120",
		"Successful:        110",
		"Failed:            10",
		"Retries:           14",
		"Max Concurrent:    8",
		"Duration:          10.002s",
		"Requests/sec:      11.00 (successful calls)",
		"Dispatched/sec:    12.00",
		"Success Rate:      91.67%",
		"P50:             75.00ms",
		"P99:             390.00ms",
		"HTTPError: 7 (5.8% of dispatched)",
		"DeadlineExceeded: 3 (2.5% of dispatched)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Cancelled:") {
		t.Error("cancelled row should be omitted at zero")
	}
	if strings.Contains(got, "interrupted") {
		t.Error("interrupted banner should be omitted")
	}
}

func TestPrintReportSmallSampleWithholdsP99(t *testing.T) {
	stats := sampleStats()
	stats.HasP99 = false
	stats.P99LatencyMs = 0

	var buf bytes.Buffer
	output.PrintReport(&buf, stats)

	if !strings.Contains(buf.String(), "P99:             n/a (fewer than 100 samples)") {
		t.Errorf("missing p99 placeholder:\n%s", buf.String())
	}
}

func TestPrintReportNoCompletedWork(t *testing.T) {
	stats := metrics.Stats{
		Dispatched:  5,
		Cancelled:   5,
		Interrupted: true,
		Duration:    2 * time.Second,
	}

	var buf bytes.Buffer
	output.PrintReport(&buf, stats)
	got := buf.String()

	if !strings.Contains(got, "Success Rate:      no requests completed") {
		t.Errorf("missing zero-denominator notice:\n%s", got)
	}
	if !strings.Contains(got, "(run interrupted; results are partial)") {
		t.Errorf("missing interrupted banner:\n%s", got)
	}
	if !strings.Contains(got, "Cancelled:         5") {
		t.Errorf("missing cancelled row:\n%s", got)
	}
	if strings.Contains(got, "Latency:") {
		t.Error("latency block should be omitted with no successes")
	}
}

func TestPrintJSONReport(t *testing.T) {
	var buf bytes.Buffer
	if err := output.PrintJSONReport(&buf, sampleStats()); err != nil {
		t.Fatalf("PrintJSONReport: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}

	if got := decoded["dispatched"].(float64); got != 120 {
		t.Errorf("dispatched = %v, want 120", got)
	}
	if got := decoded["requests_per_sec"].(float64); got != 11.0 {
		t.Errorf("requests_per_sec = %v, want 11", got)
	}
	if got := decoded["p95_latency_ms"].(float64); got != 220.0 {
		t.Errorf("p95_latency_ms = %v, want 220", got)
	}
	if _, ok := decoded["interrupted"]; ok {
		t.Error("interrupted should be omitted when false")
	}
	errRows, ok := decoded["errors"].([]interface{})
	if !ok || len(errRows) != 2 {
		t.Fatalf("errors = %v, want 2 rows", decoded["errors"])
	}
	first := errRows[0].(map[string]interface{})
	if first["kind"] != "HTTPError" {
		t.Errorf("first error kind = %v", first["kind"])
	}
}
