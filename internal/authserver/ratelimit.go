package authserver

import (
	"sync"
	"time"

	"github.com/Zipties/toolarr/pkg/logging"
)

// RateLimiter is a per-key sliding window limiter. The authorization server
// keys it by client IP to bound dynamic registrations.
//
// Each key may make at most maxAttempts attempts within window. Rejected
// attempts are not recorded, so a blocked caller recovers once its oldest
// accepted attempt leaves the window.
type RateLimiter struct {
	mu sync.Mutex

	maxAttempts int
	window      time.Duration
	clock       Clock

	attempts map[string][]time.Time
}

// RateLimiterConfig holds configuration for the rate limiter.
type RateLimiterConfig struct {
	// MaxAttempts is the maximum number of attempts per key within the window.
	// Default: 10 attempts
	MaxAttempts int

	// Window is the time window for rate limiting.
	// Default: 1 hour
	Window time.Duration
}

// DefaultRateLimiterConfig returns the default registration limits.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MaxAttempts: 10,
		Window:      time.Hour,
	}
}

// NewRateLimiter creates a limiter with the given configuration.
func NewRateLimiter(config RateLimiterConfig, clock Clock) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}

	return &RateLimiter{
		maxAttempts: config.MaxAttempts,
		window:      config.Window,
		clock:       clock,
		attempts:    make(map[string][]time.Time),
	}
}

// Allow records an attempt for key and reports whether it is within limits.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	recent := recentAttempts(rl.attempts[key], now.Add(-rl.window))

	if len(recent) >= rl.maxAttempts {
		logging.Warn("OAuth", "Rate limit exceeded for %s (%d attempts in %v)", key, len(recent), rl.window)
		rl.attempts[key] = recent
		return false
	}

	rl.attempts[key] = append(recent, now)
	return true
}

// Remaining returns how many attempts key has left in the current window.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	count := len(recentAttempts(rl.attempts[key], rl.clock.Now().Add(-rl.window)))
	if remaining := rl.maxAttempts - count; remaining > 0 {
		return remaining
	}
	return 0
}

// Sweep drops keys with no attempts inside the window ending at now.
func (rl *RateLimiter) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	windowStart := now.Add(-rl.window)
	for key, attempts := range rl.attempts {
		recent := recentAttempts(attempts, windowStart)
		if len(recent) == 0 {
			delete(rl.attempts, key)
			removed++
		} else {
			rl.attempts[key] = recent
		}
	}
	return removed
}

func recentAttempts(attempts []time.Time, windowStart time.Time) []time.Time {
	var recent []time.Time
	for _, t := range attempts {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}
	return recent
}
