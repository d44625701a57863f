package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(map[string]Rule{
		ActionSendMessage: {PerSecond: 0.001, Burst: 3},
	})

	for i := 0; i < 3; i++ {
		allowed, wait := rl.Allow("u1", ActionSendMessage)
		assert.True(t, allowed)
		assert.Zero(t, wait)
	}

	allowed, wait := rl.Allow("u1", ActionSendMessage)
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))

	// buckets are per user
	allowed, _ = rl.Allow("u2", ActionSendMessage)
	assert.True(t, allowed)
}

func TestRateLimiterRejectedCallsDoNotConsume(t *testing.T) {
	rl := NewRateLimiter(map[string]Rule{
		ActionSendMessage: {PerSecond: 0.001, Burst: 1},
	})
	allowed, _ := rl.Allow("u1", ActionSendMessage)
	assert.True(t, allowed)

	for i := 0; i < 5; i++ {
		allowed, _ = rl.Allow("u1", ActionSendMessage)
		assert.False(t, allowed)
	}
	assert.InDelta(t, 0, rl.Tokens("u1", ActionSendMessage), 0.01)
}

func TestDefaultRules(t *testing.T) {
	rl := NewRateLimiter(DefaultRules(5, 10))

	for i := 0; i < 5; i++ {
		allowed, _ := rl.Allow("u1", ActionCreateActivity)
		assert.True(t, allowed)
	}
	allowed, wait := rl.Allow("u1", ActionCreateActivity)
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Minute)

	// unknown actions fall back to the default rule
	allowed, _ = rl.Allow("u1", "other")
	assert.True(t, allowed)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(nil)
	rl.Allow("u1", ActionSendMessage)
	rl.buckets["u1:"+ActionSendMessage].lastSeen = time.Now().Add(-2 * time.Hour)
	rl.Allow("u2", ActionSendMessage)

	rl.Cleanup()

	assert.NotContains(t, rl.buckets, "u1:"+ActionSendMessage)
	assert.Contains(t, rl.buckets, "u2:"+ActionSendMessage)
}
