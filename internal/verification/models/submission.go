package models

import (
	"time"

	id "worklink/pkg/domain"
	dErrors "worklink/pkg/domain-errors"
)

// Status is the lifecycle state of a verification submission.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// validStatuses is the single source of truth for lifecycle states.
var validStatuses = map[Status]bool{
	StatusPending:  true,
	StatusApproved: true,
	StatusDenied:   true,
}

// ParseStatus constructs a Status from external input (admin list filters).
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !validStatuses[st] {
		return "", dErrors.Newf(dErrors.CodeValidation, "status must be one of pending, approved, denied")
	}
	return st, nil
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// DocType tags the category of identity document. The accepted set is
// configuration, not code; ParseDocType in the service validates against it.
type DocType string

func (d DocType) String() string { return string(d) }

// Submission is one uploaded document and its verification lifecycle record.
//
// Invariants:
//   - BlobRef is non-empty and opaque; the engine never interprets it
//   - Status transitions are one-way: pending → approved or pending → denied
//   - A terminal submission is immutable; corrections require a new submission
//   - ReviewerID and DecidedAt are both set or both unset, and change together
//   - At most one pending submission exists per (UserID, DocType); enforced by
//     the store at create time, not here
//
// Submissions are created by the owning worker, decided by administrators, and
// never deleted (audit trail requirement).
type Submission struct {
	ID          id.SubmissionID `json:"id"`
	UserID      id.UserID       `json:"user_id"`
	DocType     DocType         `json:"doc_type"`
	BlobRef     string          `json:"blob_ref"`
	Status      Status          `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
	ReviewerID  *id.UserID      `json:"reviewer_id,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// NewSubmission constructs a pending submission. The blob must already be
// durable in the document store: a record may reference a missing blob under
// no circumstances, while an orphaned blob is acceptable garbage.
func NewSubmission(userID id.UserID, docType DocType, blobRef string, now time.Time) (*Submission, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "submission requires an owner")
	}
	if docType == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "submission requires a doc type")
	}
	if blobRef == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "submission requires a blob reference")
	}
	return &Submission{
		ID:          id.NewSubmissionID(),
		UserID:      userID,
		DocType:     docType,
		BlobRef:     blobRef,
		Status:      StatusPending,
		SubmittedAt: now,
	}, nil
}

// IsPending reports whether the submission still awaits a decision.
func (s *Submission) IsPending() bool {
	return s.Status == StatusPending
}

// CanDecide checks that the submission is still open for a decision.
// Use with ApplyDecision in Execute callbacks so the store holds its lock
// across both validation and mutation.
func (s *Submission) CanDecide() error {
	if s.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeInvalidState, "submission is already %s", s.Status)
	}
	return nil
}

// ApplyDecision moves the submission into a terminal state. ReviewerID and
// DecidedAt are assigned together, never separately. Call CanDecide first.
func (s *Submission) ApplyDecision(status Status, reviewerID id.UserID, notes string, now time.Time) {
	s.Status = status
	s.ReviewerID = &reviewerID
	s.DecidedAt = &now
	s.Notes = notes
}
