package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "worklink/pkg/domain-errors"
	"worklink/pkg/platform/httputil"
	"worklink/pkg/requestcontext"
)

// RequireInternalToken gates service-to-service endpoints on a shared secret.
// Constant-time comparison prevents timing attacks.
func RequireInternalToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Internal-Token")
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "internal token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "internal token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
