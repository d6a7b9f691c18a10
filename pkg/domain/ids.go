// Package domain holds shared domain primitives: typed identifiers and the
// closed role enumeration. Construct values via the Parse functions at trust
// boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "worklink/pkg/domain-errors"
)

// UserID identifies a platform user. Distinct from SubmissionID at the type
// level so the two can never be swapped silently.
type UserID uuid.UUID

// SubmissionID identifies one verification submission.
type SubmissionID uuid.UUID

// NewSubmissionID returns a fresh random submission ID.
func NewSubmissionID() SubmissionID {
	return SubmissionID(uuid.New())
}

// ParseUserID validates external input as a user ID.
//
// Errors: CodeBadRequest when the value is empty, malformed, or the nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

// ParseSubmissionID validates external input as a submission ID.
//
// Errors: CodeBadRequest when the value is empty, malformed, or the nil UUID.
func ParseSubmissionID(s string) (SubmissionID, error) {
	u, err := parseUUID(s, "submission id")
	return SubmissionID(u), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s cannot be empty", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s is not a valid UUID", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeBadRequest, "%s cannot be the nil UUID", what)
	}
	return u, nil
}

func (id UserID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id SubmissionID) String() string { return uuid.UUID(id).String() }

func (id SubmissionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
