package intake

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter throttles public submissions per source IP using Redis
// INCR + EXPIRE. Unlike the allowlist it fails open: a Redis outage must not
// take down form intake.
type Limiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
	logger *slog.Logger
}

// NewLimiter creates a Limiter. A nil Redis client disables limiting.
func NewLimiter(rdb *redis.Client, max int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{rdb: rdb, max: max, window: window, logger: logger}
}

// Allow records one submission attempt from ip and reports whether it is
// within the rate limit.
func (l *Limiter) Allow(ctx context.Context, ip string) bool {
	if l.rdb == nil {
		return true
	}

	key := "intake_ratelimit:" + ip

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("intake rate limit check failed, allowing", "ip", ip, "error", err)
		return true
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("setting intake rate limit expiry failed", "ip", ip, "error", err)
		}
	}

	return count <= int64(l.max)
}
