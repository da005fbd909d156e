// Package queries loads the sample query pool that load-test work units
// draw from.
package queries

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// Pool is an immutable set of query strings, safe for concurrent use.
type Pool struct {
	queries  []string
	fallback bool

	mu  sync.Mutex
	rnd *rand.Rand
}

// Load reads a JSON file whose top-level key holds an array of strings and
// returns a Pool over them. Any failure (missing file, invalid JSON, missing
// key, empty array) falls back to a synthetic pool of fallbackSize
// placeholder queries, with a warning written to warn. Load never fails and
// the returned pool is never empty.
func Load(path, key string, fallbackSize int, warn io.Writer) *Pool {
	if warn == nil {
		warn = io.Discard
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(warn, "Warning: could not load sample queries: %v. Using fallback queries.\n", err)
		return Fallback(fallbackSize)
	}

	if !gjson.ValidBytes(data) {
		fmt.Fprintf(warn, "Warning: could not load sample queries: %s is not valid JSON. Using fallback queries.\n", path)
		return Fallback(fallbackSize)
	}

	result := gjson.GetBytes(data, key)
	if !result.Exists() || !result.IsArray() {
		fmt.Fprintf(warn, "Warning: could not load sample queries: %s has no %q array. Using fallback queries.\n", path, key)
		return Fallback(fallbackSize)
	}

	var queries []string
	for _, item := range result.Array() {
		if item.Type == gjson.String && item.Str != "" {
			queries = append(queries, item.Str)
		}
	}
	if len(queries) == 0 {
		fmt.Fprintf(warn, "Warning: could not load sample queries: %q array in %s is empty. Using fallback queries.\n", key, path)
		return Fallback(fallbackSize)
	}

	return newPool(queries, false)
}

// Fallback returns a deterministic synthetic pool of n placeholder queries.
func Fallback(n int) *Pool {
	if n < 1 {
		n = 1
	}
	queries := make([]string, n)
	for i := range queries {
		queries[i] = fmt.Sprintf("query %d", i)
	}
	return newPool(queries, true)
}

func newPool(queries []string, fallback bool) *Pool {
	return &Pool{
		queries:  queries,
		fallback: fallback,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Pick draws a query uniformly at random, with replacement.
func (p *Pool) Pick() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[p.rnd.Intn(len(p.queries))]
}

// Len returns the number of queries in the pool.
func (p *Pool) Len() int {
	return len(p.queries)
}

// IsFallback reports whether the pool was synthesized rather than loaded.
func (p *Pool) IsFallback() bool {
	return p.fallback
}
