package runner

import (
	"context"
	"sync"
)

// Gate is a counting permit that bounds how many units of work run
// simultaneously. Acquisition blocks the calling unit, never the driver,
// and is cancellable. It also tracks the running maximum of concurrently
// held permits for the final report.
type Gate struct {
	permits chan struct{}

	mu          sync.Mutex
	active      int
	maxObserved int
}

// NewGate creates a gate admitting at most limit concurrent holders.
func NewGate(limit int) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{permits: make(chan struct{}, limit)}
}

// Do runs fn while holding a permit. The permit is released on every exit
// path, including panics, so wrapped work cannot leak one. Returns the
// context error if acquisition was cancelled before a permit freed; fn does
// not run in that case.
func (g *Gate) Do(ctx context.Context, fn func()) error {
	select {
	case g.permits <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	g.mu.Lock()
	g.active++
	if g.active > g.maxObserved {
		g.maxObserved = g.active
	}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.active--
		g.mu.Unlock()
		<-g.permits
	}()

	fn()
	return nil
}

// Active returns the number of currently held permits.
func (g *Gate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// MaxObserved returns the highest number of simultaneously held permits.
func (g *Gate) MaxObserved() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxObserved
}
