package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage    = "send_message"
	ActionCreateActivity = "create_activity"
)

// Rule is the sustained rate and burst of one action.
type Rule struct {
	PerSecond float64
	Burst     int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user and action.
type RateLimiter struct {
	rules       map[string]Rule
	defaultRule Rule
	buckets     map[string]*bucket
	mutex       sync.Mutex
}

// NewRateLimiter creates a limiter; actions without a rule use the default
// of 20 per minute.
func NewRateLimiter(rules map[string]Rule) *RateLimiter {
	if rules == nil {
		rules = make(map[string]Rule)
	}
	return &RateLimiter{
		rules:       rules,
		defaultRule: Rule{PerSecond: 20.0 / 60.0, Burst: 20},
		buckets:     make(map[string]*bucket),
	}
}

// DefaultRules allows chat sends at perSecond/burst and five activity
// creations per hour.
func DefaultRules(chatPerSecond float64, chatBurst int) map[string]Rule {
	return map[string]Rule{
		ActionSendMessage:    {PerSecond: chatPerSecond, Burst: chatBurst},
		ActionCreateActivity: {PerSecond: 5.0 / 3600.0, Burst: 5},
	}
}

// Allow checks if a user action is allowed and returns the wait until the
// next token when it is not.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := time.Now()

	rl.mutex.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		rule, ok := rl.rules[action]
		if !ok {
			rule = rl.defaultRule
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(rule.PerSecond), rule.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Tokens returns the tokens currently available for a user action.
func (rl *RateLimiter) Tokens(userID, action string) float64 {
	rl.mutex.Lock()
	b, ok := rl.buckets[userID+":"+action]
	rl.mutex.Unlock()
	if !ok {
		return 0
	}
	return b.limiter.Tokens()
}

// Cleanup removes buckets that haven't been used for an hour.
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > time.Hour {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every 30 minutes until done is closed.
func (rl *RateLimiter) StartCleanupRoutine(done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-done:
				return
			}
		}
	}()
}
