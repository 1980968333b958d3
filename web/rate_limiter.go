// Package web exposes the relay over HTTP and a realtime websocket channel.
// This file contains the abuse guard applied to generation traffic.
package web

import (
	"context"
	"sync"
	"time"

	"imagerelay/core"
)

// AbuseGuard limits generation requests per client address. It is an
// interface so single-instance deployments can use the in-memory guard while
// multi-instance deployments can back it with a shared counter; per-process
// state means horizontally scaled instances rate-limit independently.
type AbuseGuard interface {
	// Allow records one generation request for the address and reports
	// whether it is within the limit. When blocked, the returned duration
	// is the time until the window resets.
	Allow(addr string) (bool, time.Duration)
}

// MemoryGuard is the in-memory AbuseGuard: a fixed window counter allowing
// at most max requests per client address per window. The window resets when
// it elapses; there is no sliding-window smoothing.
//
// Thread safety is provided via sync.Mutex for concurrent access.
type MemoryGuard struct {
	mu      sync.Mutex
	windows map[string]core.RateWindow
	max     int
	window  time.Duration
}

// NewMemoryGuard creates a MemoryGuard with the given limits.
//
// Parameters:
//   - max: generation requests allowed per window (e.g. 50)
//   - window: fixed window length (e.g. 15 * time.Minute)
func NewMemoryGuard(max int, window time.Duration) *MemoryGuard {
	if max < 1 {
		max = core.DefaultRateLimitMax
	}
	if window <= 0 {
		window = core.DefaultRateLimitWindow
	}
	return &MemoryGuard{
		windows: make(map[string]core.RateWindow),
		max:     max,
		window:  window,
	}
}

// Allow records one request for addr and reports whether it stays within
// the limit. Counting and checking happen atomically so concurrent requests
// from one address cannot slip past the threshold.
func (g *MemoryGuard) Allow(addr string) (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	record, exists := g.windows[addr]
	if !exists || record.ShouldReset() {
		g.windows[addr] = core.NewRateWindow(g.window)
		return true, 0
	}

	record = record.Increment(g.window)
	g.windows[addr] = record

	if record.IsExceeded(g.max) {
		return false, record.TimeUntilReset()
	}
	return true, 0
}

// Cleanup removes elapsed windows from the store and returns how many were
// removed. Call periodically to prevent memory growth; use
// StartCleanupTicker for automatic cleanup.
func (g *MemoryGuard) Cleanup() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for addr, record := range g.windows {
		if record.ShouldReset() {
			delete(g.windows, addr)
			removed++
		}
	}
	return removed
}

// StartCleanupTicker starts a background goroutine that periodically calls
// Cleanup. The ticker stops when the context is cancelled.
func (g *MemoryGuard) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.Cleanup()
			}
		}
	}()
}

// Count returns the number of tracked client addresses.
func (g *MemoryGuard) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.windows)
}

// Ensure MemoryGuard implements AbuseGuard at compile time.
var _ AbuseGuard = (*MemoryGuard)(nil)
