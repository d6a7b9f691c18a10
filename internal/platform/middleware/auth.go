package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"worklink/internal/platform/token"
	id "worklink/pkg/domain"
	dErrors "worklink/pkg/domain-errors"
	"worklink/pkg/platform/httputil"
	"worklink/pkg/requestcontext"
)

// TokenValidator verifies bearer tokens from the marketplace identity service.
type TokenValidator interface {
	ValidateToken(tokenString string) (*token.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and stashes the
// user ID and role claim in the context. A token whose role claim is missing
// or unknown still authenticates; the role just grants nothing downstream.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - token without subject",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			if role, ok := id.ParseRole(claims.Role); ok {
				ctx = requestcontext.WithRole(ctx, role)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route group to one of the listed roles. Must sit after
// RequireAuth in the chain.
func RequireRole(logger *slog.Logger, roles ...id.Role) func(http.Handler) http.Handler {
	allowed := make(map[id.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if role := requestcontext.Role(ctx); !allowed[role] {
				logger.WarnContext(ctx, "forbidden - role not permitted",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", requestcontext.UserID(ctx).String(),
					"role", string(role),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient privileges"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
