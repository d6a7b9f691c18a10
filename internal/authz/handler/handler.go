// Package handler exposes the authorization gate to sibling services over
// HTTP. These endpoints sit behind the internal token check and are never
// reachable from the public edge.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"worklink/internal/authz"
	id "worklink/pkg/domain"
	"worklink/pkg/platform/httputil"
	"worklink/pkg/requestcontext"
)

// Handler wires gate checks to internal HTTP endpoints.
type Handler struct {
	gate   *authz.Gate
	logger *slog.Logger
}

// New constructs an authz handler.
func New(gate *authz.Gate, logger *slog.Logger) *Handler {
	return &Handler{gate: gate, logger: logger}
}

// Register mounts the check endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/authz/can-apply", h.HandleCanApply)
	r.Get("/authz/can-create-listing", h.HandleCanCreateListing)
	r.Get("/authz/can-review", h.HandleCanReview)
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

// HandleCanApply handles GET /internal/authz/can-apply requests.
func (h *Handler) HandleCanApply(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, h.gate.CanApply)
}

// HandleCanCreateListing handles GET /internal/authz/can-create-listing requests.
func (h *Handler) HandleCanCreateListing(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, h.gate.CanCreateListing)
}

// HandleCanReview handles GET /internal/authz/can-review requests.
func (h *Handler) HandleCanReview(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, h.gate.CanReview)
}

// check answers with a boolean verdict and never an error status. Malformed
// claims carry no privilege: an unparseable user id becomes the zero UserID
// and an unknown role passes through empty, and the gate denies whatever
// needed them.
func (h *Handler) check(w http.ResponseWriter, r *http.Request, fn func(context.Context, authz.Claims) bool) {
	ctx := r.Context()

	userID, err := id.ParseUserID(r.URL.Query().Get("user_id"))
	if err != nil {
		h.logger.WarnContext(ctx, "unparseable user id on authorization check",
			"request_id", requestcontext.RequestID(ctx),
			"path", r.URL.Path,
			"error", err,
		)
		userID = id.UserID{}
	}

	role, _ := id.ParseRole(r.URL.Query().Get("role"))

	allowed := fn(ctx, authz.Claims{UserID: userID, Role: role})

	h.logger.InfoContext(ctx, "authorization check",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID.String(),
		"role", string(role),
		"path", r.URL.Path,
		"allowed", allowed,
	)

	httputil.WriteJSON(w, http.StatusOK, checkResponse{Allowed: allowed})
}
