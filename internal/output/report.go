package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cashmeremcp/surge/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Load Test Results ---")
	if stats.Interrupted {
		fmt.Fprintln(w, "(run interrupted; results are partial)")
	}
	fmt.Fprintf(w, "Dispatched:        %d\n", stats.Dispatched)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	if stats.Cancelled > 0 {
		fmt.Fprintf(w, "Cancelled:         %d\n", stats.Cancelled)
	}
	if stats.RetriesTotal > 0 {
		fmt.Fprintf(w, "Retries:           %d\n", stats.RetriesTotal)
	}
	fmt.Fprintf(w, "Max Concurrent:    %d\n", stats.MaxConcurrent)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Requests/sec:      %.2f (successful calls)\n", stats.RequestsPerSec)
	fmt.Fprintf(w, "Dispatched/sec:    %.2f\n", stats.DispatchedPerSec)
	if stats.Completed {
		fmt.Fprintf(w, "Success Rate:      %.2f%%\n", stats.SuccessRate*100)
	} else {
		fmt.Fprintln(w, "Success Rate:      no requests completed")
	}

	if stats.Successes > 0 {
		fmt.Fprintln(w, "\nLatency:")
		fmt.Fprintf(w, "  Min:             %.2fms\n", stats.MinLatencyMs)
		fmt.Fprintf(w, "  Mean:            %.2fms\n", stats.MeanLatencyMs)
		fmt.Fprintf(w, "  Max:             %.2fms\n", stats.MaxLatencyMs)
		fmt.Fprintf(w, "  P50:             %.2fms\n", stats.P50LatencyMs)
		fmt.Fprintf(w, "  P95:             %.2fms\n", stats.P95LatencyMs)
		if stats.HasP99 {
			fmt.Fprintf(w, "  P99:             %.2fms\n", stats.P99LatencyMs)
		} else {
			fmt.Fprintln(w, "  P99:             n/a (fewer than 100 samples)")
		}
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nError Breakdown:")
		for _, row := range stats.Errors {
			fmt.Fprintf(w, "  %s: %d (%.1f%% of dispatched)\n", row.Kind, row.Count, row.Percent)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
