package throttle

import (
	"context"
	"sync"
	"time"
)

// MemoryGate is a fixed-window Gate holding counters in process memory.
// Counters for expired windows are dropped lazily on access.
type MemoryGate struct {
	mu    sync.Mutex
	rates map[string]Rate
	seen  map[string]*window
	now   func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewMemoryGate constructs a gate with the given per-scope rates.
func NewMemoryGate(rates map[string]Rate) *MemoryGate {
	if rates == nil {
		rates = DefaultRates()
	}
	return &MemoryGate{
		rates: rates,
		seen:  make(map[string]*window),
		now:   time.Now,
	}
}

// WithClock overrides the time source for tests.
func (g *MemoryGate) WithClock(fn func() time.Time) *MemoryGate {
	if fn != nil {
		g.now = fn
	}
	return g
}

// Admit increments the (scope, actor) counter for the current window and
// reports whether the request fits the budget. The check and increment run
// under one lock so concurrent requests cannot slip past the limit.
func (g *MemoryGate) Admit(ctx context.Context, scope, actorKey string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rate, ok := g.rates[scope]
	if !ok {
		return false, ErrUnknownScope
	}

	key := scope + "\x00" + actorKey
	now := g.now()
	w, ok := g.seen[key]
	if !ok || now.Sub(w.start) >= rate.Window {
		g.seen[key] = &window{start: now, count: 1}
		return true, nil
	}
	if w.count >= rate.Max {
		return false, nil
	}
	w.count++
	return true, nil
}
