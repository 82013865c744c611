package realtime

import "time"

// RateLimiter is a per-connection sliding-window limiter over inbound frames.
// It is used only by the connection's read loop and is not safe for concurrent use.
type RateLimiter struct {
	window time.Duration
	// ring holds the timestamps of the last len(ring) accepted events.
	ring []time.Time
	next int
	full bool
}

// NewRateLimiter allows at most limit events in any window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	def := DefaultConfig()
	if limit <= 0 {
		limit = def.RateEvents
	}
	if window <= 0 {
		window = def.RateWindow
	}
	return &RateLimiter{window: window, ring: make([]time.Time, limit)}
}

// Allow reports whether an event at time "now" should be permitted.
func (r *RateLimiter) Allow(now time.Time) bool {
	// The slot about to be overwritten is the oldest accepted event.
	if r.full && now.Sub(r.ring[r.next]) < r.window {
		return false
	}
	r.ring[r.next] = now
	r.next++
	if r.next == len(r.ring) {
		r.next = 0
		r.full = true
	}
	return true
}
