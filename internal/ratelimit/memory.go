package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemory is a process-local sliding window limiter. Not distributed; use
// the Redis limiter when running more than one instance.
type InMemory struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

// NewInMemory constructs an in-memory limiter.
func NewInMemory() *InMemory {
	return &InMemory{
		windows: make(map[string]*slidingWindow),
		now:     time.Now,
	}
}

// Allow records the request if it fits inside the window.
func (l *InMemory) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	sw := l.windows[key]
	if sw == nil {
		sw = &slidingWindow{window: window}
		l.windows[key] = sw
	}
	sw.trim(now)

	if len(sw.timestamps) >= limit {
		return Result{
			Allowed: false,
			Limit:   limit,
			ResetAt: sw.timestamps[0].Add(window),
		}, nil
	}

	sw.timestamps = append(sw.timestamps, now)
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(window),
	}, nil
}

// trim drops timestamps that have slid out of the window.
func (sw *slidingWindow) trim(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}
