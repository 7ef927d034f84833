// Package ratelimit implements per-client sliding-window admission control.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultLimit and DefaultWindow match the guard on the allocation
	// path: 30 admissions per trailing 60 seconds per client.
	DefaultLimit  = 30
	DefaultWindow = time.Minute
)

// Limiter admits up to limit events per client key within a trailing
// window. State lives in-process only, so every instance of the service
// keeps its own windows.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	clients map[string][]time.Time

	now func() time.Time
}

func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}

	return &Limiter{
		limit:   limit,
		window:  window,
		clients: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records an admission attempt for key and reports whether it is
// admitted. Timestamps older than the window are dropped first, then the
// attempt is admitted only if fewer than limit remain.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	windowStart := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.clients[key]

	// Timestamps are appended in order, so expired ones form a prefix.
	expired := 0
	for expired < len(stamps) && stamps[expired].Before(windowStart) {
		expired++
	}
	stamps = stamps[expired:]

	if len(stamps) >= l.limit {
		l.clients[key] = stamps
		return false
	}

	l.clients[key] = append(stamps, now)
	return true
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Run sweeps idle client entries until ctx is done, so one-off callers
// don't pin window state forever.
func (l *Limiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.prune()
		}
	}
}

func (l *Limiter) prune() {
	windowStart := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, stamps := range l.clients {
		if len(stamps) == 0 || stamps[len(stamps)-1].Before(windowStart) {
			delete(l.clients, key)
		}
	}
}
