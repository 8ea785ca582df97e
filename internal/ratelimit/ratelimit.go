// Package ratelimit implements per-(client, action) admission control backed
// by shared Redis counters, so concurrent requests across server processes
// see the same window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter. Each (key, action) pair gets one Redis
// counter per window; INCR is atomic, so concurrent requests never undercount.
type Limiter struct {
	client *redis.Client
	now    func() time.Time
}

func New(client *redis.Client) *Limiter {
	return &Limiter{client: client, now: time.Now}
}

// Allow admits the request if fewer than maxRequests have been counted for
// (key, action) in the current window. Redis errors are returned to the
// caller; the limiter never silently admits on backend failure.
func (l *Limiter) Allow(ctx context.Context, key, action string, maxRequests int, window time.Duration) (bool, error) {
	windowStart := l.now().UnixMilli() / window.Milliseconds()
	counterKey := fmt.Sprintf("ratelimit:%s:%s:%d", action, key, windowStart)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, counterKey)
	// Keep the counter one extra window so a clock-edge race never resurrects
	// an expired key mid-check.
	pipe.Expire(ctx, counterKey, 2*window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check for %s: %w", action, err)
	}

	return count.Val() <= int64(maxRequests), nil
}
