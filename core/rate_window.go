package core

import (
	"time"
)

// DefaultRateLimitWindow is the default fixed window for the abuse guard (15 minutes).
const DefaultRateLimitWindow = 15 * time.Minute

// DefaultRateLimitMax is the default number of generation requests allowed per window.
const DefaultRateLimitMax = 50

// RateWindow tracks generation requests for abuse limiting purposes.
// Each window is associated with a client address.
type RateWindow struct {
	// Count is the number of requests within the current window
	Count int

	// ResetAt is when the request count should reset
	ResetAt time.Time
}

// NewRateWindow creates a new RateWindow with count=1 and the given window duration.
func NewRateWindow(window time.Duration) RateWindow {
	return RateWindow{
		Count:   1,
		ResetAt: time.Now().Add(window),
	}
}

// ShouldReset returns true if the current time is past the ResetAt time.
func (w RateWindow) ShouldReset() bool {
	return time.Now().After(w.ResetAt)
}

// IsExceeded returns true if the request count has surpassed the given limit.
func (w RateWindow) IsExceeded(max int) bool {
	return w.Count > max
}

// TimeUntilReset returns the duration until the window resets.
// Returns zero if already past reset time.
func (w RateWindow) TimeUntilReset() time.Duration {
	remaining := time.Until(w.ResetAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Increment returns a new RateWindow with count incremented by 1, preserving
// the window boundary. If the window has elapsed, a fresh window with count=1
// is returned instead (no sliding-window smoothing).
func (w RateWindow) Increment(window time.Duration) RateWindow {
	if w.ShouldReset() {
		return NewRateWindow(window)
	}
	return RateWindow{
		Count:   w.Count + 1,
		ResetAt: w.ResetAt,
	}
}
