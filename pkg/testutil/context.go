package testutil

import (
	"net/http"

	id "worklink/pkg/domain"
	"worklink/pkg/requestcontext"
)

// WithClaims adds user ID and role to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// An invalid user ID or unknown role is silently ignored, leaving the request
// unauthenticated, the same state the middleware produces for bad claims.
func WithClaims(req *http.Request, userID, role string) *http.Request {
	ctx := req.Context()
	if parsed, err := id.ParseUserID(userID); err == nil {
		ctx = requestcontext.WithUserID(ctx, parsed)
	}
	if r, ok := id.ParseRole(role); ok {
		ctx = requestcontext.WithRole(ctx, r)
	}
	return req.WithContext(ctx)
}
