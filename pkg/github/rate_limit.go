package github

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

const defaultRateLimit = 60

// RateLimitStatus is the limit reported in GitHub response headers.
type RateLimitStatus struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
	Used      int       `json:"used"`

	known bool
}

// RateLimitTracker remembers the last reported rate limit. Lookups are
// skipped, not delayed, while the quota is spent.
type RateLimitTracker struct {
	mu    sync.RWMutex
	limit RateLimitStatus
}

// NewRateLimitTracker creates a tracker with no observations yet.
func NewRateLimitTracker() *RateLimitTracker {
	return &RateLimitTracker{
		limit: RateLimitStatus{Limit: defaultRateLimit},
	}
}

// Update reads the X-RateLimit-* headers of resp.
func (r *RateLimitTracker) Update(resp *http.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit := resp.Header.Get("X-RateLimit-Limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			r.limit.Limit = val
		}
	}

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			r.limit.Remaining = val
			r.limit.known = true
		}
	}

	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			r.limit.Reset = time.Unix(val, 0)
		}
	}

	if used := resp.Header.Get("X-RateLimit-Used"); used != "" {
		if val, err := strconv.Atoi(used); err == nil {
			r.limit.Used = val
		}
	}
}

// GetStatus returns a copy of the current status.
func (r *RateLimitTracker) GetStatus() RateLimitStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limit
}

// Exhausted reports whether the last response left no requests before the
// reset time.
func (r *RateLimitTracker) Exhausted(now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.limit.known || r.limit.Remaining > 0 {
		return false
	}
	return r.limit.Reset.After(now)
}
