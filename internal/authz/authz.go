// Package authz answers "may this user perform privileged action A" by
// combining the role claim from the identity provider with verification state
// from the record store. Checks never error: any doubt (missing role, store
// failure, unknown user) resolves to denial.
package authz

import (
	"context"
	"log/slog"

	"worklink/internal/verification/models"
	id "worklink/pkg/domain"
)

// Claims is the pre-validated identity presented with each check. Role may be
// empty or invalid when the provider's claim was missing or malformed; the
// gate treats that as no privilege.
type Claims struct {
	UserID id.UserID
	Role   id.Role
}

// StatusReader is the slice of the verification engine the gate consults.
type StatusReader interface {
	StatusFor(ctx context.Context, userID id.UserID) ([]*models.Submission, error)
}

// Gate evaluates marketplace privileges.
type Gate struct {
	status   StatusReader
	required map[models.DocType]bool
	logger   *slog.Logger
}

// New constructs a Gate. requiredDocTypes is the configured set of which at
// least one approved submission unlocks applying.
func New(status StatusReader, requiredDocTypes []string, logger *slog.Logger) *Gate {
	required := make(map[models.DocType]bool, len(requiredDocTypes))
	for _, dt := range requiredDocTypes {
		required[models.DocType(dt)] = true
	}
	return &Gate{status: status, required: required, logger: logger}
}

// CanCreateListing allows employers and administrators. Verification is
// deliberately not required here: employers are vetted at onboarding, and the
// role claim alone carries that fact.
func (g *Gate) CanCreateListing(_ context.Context, c Claims) bool {
	switch c.Role {
	case id.RoleEmployer, id.RoleAdmin:
		return true
	default:
		return false
	}
}

// CanApply allows workers holding at least one approved submission for any
// doc type in the required set.
//
// The aggregate is recomputed from the store on every call, never cached.
// An approval for one doc type can coexist with a later denial of another
// without revoking the first, so no stored "verified" flag can stay correct;
// only the any-of recomputation can.
func (g *Gate) CanApply(ctx context.Context, c Claims) bool {
	if c.Role != id.RoleWorker || c.UserID.IsNil() {
		return false
	}

	subs, err := g.status.StatusFor(ctx, c.UserID)
	if err != nil {
		// Fail closed: a store outage must not grant privileges.
		g.logger.WarnContext(ctx, "verification status unavailable, denying apply",
			"user_id", c.UserID.String(),
			"error", err,
		)
		return false
	}

	for _, sub := range subs {
		if sub.Status == models.StatusApproved && g.required[sub.DocType] {
			return true
		}
	}
	return false
}

// CanReview allows administrators only.
func (g *Gate) CanReview(_ context.Context, c Claims) bool {
	return c.Role == id.RoleAdmin
}
