// Package ratelimit implements the per-client fixed-window admission policy
// applied to provider-calling routes.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Defaults for provider-calling routes.
const (
	DefaultLimit  = 100
	DefaultWindow = time.Hour
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAt is the window reset time; meaningful only when Allowed is false.
	RetryAt time.Time
}

// Limiter admits or rejects one request for a client key at a point in time.
type Limiter interface {
	Admit(key string, now time.Time) Decision
}

type entry struct {
	count   int
	resetAt time.Time
}

// FixedWindow is an in-memory fixed-window limiter. The counter resets at
// fixed boundaries rather than continuously, so a client can burst up to
// twice the limit across a window boundary. That imprecision is accepted
// policy, carried over deliberately; do not replace with a sliding window
// without changing the documented contract.
type FixedWindow struct {
	Limit  int
	Window time.Duration
	Clock  func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewFixedWindow returns a limiter with the default policy applied where
// limit or window are zero.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &FixedWindow{
		Limit:   limit,
		Window:  window,
		entries: make(map[string]*entry),
	}
}

// Admit applies the fixed-window policy for one client key:
// first request opens a window with count 1; an expired window is replaced
// (count back to 1, never 0-then-incremented); under the limit the count
// increments; at the limit the request is rejected until the window resets.
func (l *FixedWindow) Admit(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.entries == nil {
		l.entries = make(map[string]*entry)
	}

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(l.Window)}
		return Decision{Allowed: true, Remaining: l.Limit - 1}
	}

	if e.count < l.Limit {
		e.count++
		return Decision{Allowed: true, Remaining: l.Limit - e.count}
	}

	return Decision{Allowed: false, Remaining: 0, RetryAt: e.resetAt}
}

// Sweep deletes entries whose window has expired and returns how many were
// removed. Without it the map grows unbounded with distinct client addresses.
func (l *FixedWindow) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked client keys.
func (l *FixedWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Run sweeps expired entries on the given interval until ctx is cancelled.
// Intended to be started once alongside the HTTP server.
func (l *FixedWindow) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(l.now())
		}
	}
}

func (l *FixedWindow) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}
