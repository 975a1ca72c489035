package authserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(RateLimiterConfig{MaxAttempts: 2, Window: time.Minute}, clock)

	assert.True(t, limiter.Allow("10.0.0.1"))
	clock.Advance(30 * time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.Equal(t, 0, limiter.Remaining("10.0.0.1"))

	// Other keys are independent.
	assert.True(t, limiter.Allow("10.0.0.2"))

	// The first attempt leaves the window.
	clock.Advance(31 * time.Second)
	assert.Equal(t, 1, limiter.Remaining("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
}

func TestRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(RateLimiterConfig{}, newFakeClock())
	assert.Equal(t, 10, limiter.Remaining("any"))
}

func TestRateLimiter_Sweep(t *testing.T) {
	clock := newFakeClock()
	limiter := NewRateLimiter(RateLimiterConfig{MaxAttempts: 1, Window: time.Minute}, clock)

	limiter.Allow("a")
	clock.Advance(45 * time.Second)
	limiter.Allow("b")
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, limiter.Sweep(clock.Now()))
	assert.False(t, limiter.Allow("b"))
	assert.True(t, limiter.Allow("a"))
}
