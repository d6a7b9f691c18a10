package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"worklink/pkg/platform/httputil"
	"worklink/pkg/requestcontext"
)

// Middleware applies per-user submission throttling.
type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	limit    int
	window   time.Duration
	disabled bool
}

// Option configures the middleware.
type Option func(*Middleware)

// WithDisabled turns throttling off entirely (tests, demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

// New constructs the throttle middleware.
func New(limiter Limiter, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
		limit:   limit,
		window:  window,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PerUser limits requests keyed by the authenticated user. Falls back to the
// client IP when the request carries no identity. A limiter failure fails
// open: throttling is protection, not an availability dependency.
func (m *Middleware) PerUser(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := name + ":"
			if uid := requestcontext.UserID(ctx); !uid.IsNil() {
				key += uid.String()
			} else {
				key += requestcontext.ClientIP(ctx)
			}

			result, err := m.limiter.Allow(ctx, key, m.limit, m.window)
			if err != nil {
				m.logger.WarnContext(ctx, "rate limit check failed, allowing request",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := result.RetryAfter(time.Now())
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":             "rate_limit_exceeded",
					"error_description": "Too many submissions. Please try again later.",
					"retry_after":       retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
