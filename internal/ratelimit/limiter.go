// Package ratelimit throttles document submissions per user with a sliding
// window. The window is shared across instances when Redis is configured and
// falls back to process-local counting otherwise.
package ratelimit

import (
	"context"
	"time"
)

// Result reports the outcome of a limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns whole seconds until the window frees a slot, floored
// at 1 so Retry-After headers are never zero.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter checks whether a keyed request fits inside a sliding window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}
