package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter shared by every server instance
// through Redis counters.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
}

// NewRedisLimiter allows limit requests per key in each period. prefix is
// prepended to every counter key (e.g. "docflow:").
func NewRedisLimiter(client *redis.Client, prefix string, limit int, period time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "docflow:"
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, period: period}
}

// Allow increments the counter for key. The window starts with the first
// request and expires after the period.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := l.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.period)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("counting %s: %w", key, err)
	}

	count := int(incr.Val())
	if count > l.limit {
		retry := ttl.Val()
		if retry <= 0 {
			retry = l.period
		}
		return Result{Limit: l.limit, RetryAfter: retry}, nil
	}
	return Result{Allowed: true, Limit: l.limit, Remaining: l.limit - count}, nil
}
