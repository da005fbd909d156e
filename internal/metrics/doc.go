// Package metrics accumulates per-call outcomes during a load-test run and
// computes the final latency and throughput statistics.
package metrics
