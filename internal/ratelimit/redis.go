package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "worklink:ratelimit:"

// Redis is a sliding window limiter backed by a sorted set per key, so the
// count survives restarts and is shared across instances.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed limiter.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Allow records the request timestamp and counts entries still inside the
// window. The trim, add and count run in one pipeline so concurrent checks
// against the same key stay consistent.
func (l *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := time.Now()
	rkey := keyPrefix + key
	cutoff := now.Add(-window)

	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", strconv.FormatInt(cutoff.UnixNano(), 10))
	pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, rkey)
	oldestCmd := pipe.ZRangeWithScores(ctx, rkey, 0, 0)
	pipe.Expire(ctx, rkey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("redis rate limit check: %w", err)
	}

	count := int(countCmd.Val())
	resetAt := now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		resetAt = time.Unix(0, int64(oldest[0].Score)).Add(window)
	}

	if count > limit {
		// Over the limit: withdraw the optimistic add so a burst of denied
		// requests does not extend the lockout.
		l.client.ZRem(ctx, rkey, member)
		return Result{Allowed: false, Limit: limit, ResetAt: resetAt}, nil
	}

	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}, nil
}
