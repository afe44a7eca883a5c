// rate_limiter.go - Rate limiting to prevent hitting AI provider request limits

package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket limiting calls to one AI provider.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter
// maxTokens: burst size
// refillRate: time between token refills
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(refillRate), maxTokens)}
}

// PerMinute returns a limiter allowing rpm requests per minute, or nil when rpm <= 0.
// A nil *RateLimiter never blocks.
func PerMinute(rpm int) *RateLimiter {
	if rpm <= 0 {
		return nil
	}
	return NewRateLimiter(rpm, time.Minute/time.Duration(rpm))
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	return rl.limiter.Wait(ctx)
}

// Available returns the number of whole tokens left.
func (rl *RateLimiter) Available() int {
	if rl == nil {
		return 0
	}
	return int(rl.limiter.Tokens())
}
