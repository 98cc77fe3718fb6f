// Package ratelimit throttles repeated actions over a sliding window.
package ratelimit

import (
	"sync"
	"time"
)

const (
	DefaultCommandLimit = 5
	DefaultWindowSize   = time.Second

	cleanupInterval = 5 * time.Minute
)

// RateLimiter allows at most limit events per key within window. A limit of
// zero or less disables throttling.
type RateLimiter struct {
	mu          sync.Mutex
	events      map[string][]time.Time
	limit       int
	window      time.Duration
	now         func() time.Time
	cleanupTime time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		events: make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.After(rl.cleanupTime) {
		rl.cleanup(now)
		rl.cleanupTime = now.Add(cleanupInterval)
	}

	cutoff := now.Add(-rl.window)
	recent := rl.events[key][:0]
	for _, t := range rl.events[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rl.limit {
		rl.events[key] = recent
		return false
	}

	rl.events[key] = append(recent, now)
	return true
}

func (rl *RateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-10 * rl.window)
	for key, events := range rl.events {
		if len(events) == 0 || !events[len(events)-1].After(cutoff) {
			delete(rl.events, key)
		}
	}
}

func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.events = make(map[string][]time.Time)
}
