// Package runner contains the load-test driver: a permit gate bounding
// concurrency, a retry policy with exponential backoff, and the admission
// loop that runs a test for a fixed duration or a fixed call count.
//
// One unit of work covers a query from admission to its terminal success,
// exhaustion, or cancellation, including every retry in between.
package runner
