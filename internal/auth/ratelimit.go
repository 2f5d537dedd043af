package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Failed logins are counted per source IP in a fixed Redis window. The
// counter only grows on failures, so a legitimate user who signs in
// correctly is never throttled.
const loginAttemptKeyPrefix = "login_attempts:"

// RateLimiter throttles password guessing against the login endpoint.
type RateLimiter struct {
	rdb         *redis.Client
	maxAttempts int
	window      time.Duration
}

// NewRateLimiter creates a login rate limiter allowing maxAttempts failed
// attempts per IP within window.
func NewRateLimiter(rdb *redis.Client, maxAttempts int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, maxAttempts: maxAttempts, window: window}
}

// RateLimitResult holds the result of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	RetryAt   time.Time
}

func attemptKey(ip string) string {
	return loginAttemptKeyPrefix + ip
}

// Check reports whether the given IP may attempt a login. When the limit is
// exhausted, RetryAt carries the end of the current window.
func (rl *RateLimiter) Check(ctx context.Context, ip string) (*RateLimitResult, error) {
	count, err := rl.rdb.Get(ctx, attemptKey(ip)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("reading login attempt counter: %w", err)
	}

	if count >= rl.maxAttempts {
		ttl, err := rl.rdb.TTL(ctx, attemptKey(ip)).Result()
		if err != nil {
			return nil, fmt.Errorf("reading login attempt window: %w", err)
		}
		return &RateLimitResult{RetryAt: time.Now().Add(ttl)}, nil
	}

	return &RateLimitResult{Allowed: true, Remaining: rl.maxAttempts - count}, nil
}

// Record counts a failed login attempt for the given IP. The window starts
// at the first failure and is not extended by later ones.
func (rl *RateLimiter) Record(ctx context.Context, ip string) error {
	count, err := rl.rdb.Incr(ctx, attemptKey(ip)).Result()
	if err != nil {
		return fmt.Errorf("counting login attempt: %w", err)
	}
	if count == 1 {
		if err := rl.rdb.Expire(ctx, attemptKey(ip), rl.window).Err(); err != nil {
			return fmt.Errorf("starting login attempt window: %w", err)
		}
	}
	return nil
}

// Reset clears the failure counter for an IP after a successful login.
func (rl *RateLimiter) Reset(ctx context.Context, ip string) error {
	return rl.rdb.Del(ctx, attemptKey(ip)).Err()
}
