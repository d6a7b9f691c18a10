package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"worklink/internal/audit"
	"worklink/internal/verification/models"
	id "worklink/pkg/domain"
	dErrors "worklink/pkg/domain-errors"
	"worklink/pkg/platform/sentinel"
	"worklink/pkg/requestcontext"
)

// Approve moves a pending submission to approved. Notes are optional.
//
// Errors: CodeNotFound (unknown id), CodeInvalidState (already decided,
// including losing a race against a concurrent decision), CodeUnavailable.
func (s *Service) Approve(ctx context.Context, reviewerID id.UserID, subID id.SubmissionID, notes string) (*models.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Approve")
	defer span.End()
	return s.decide(ctx, reviewerID, subID, models.StatusApproved, strings.TrimSpace(notes))
}

// Deny moves a pending submission to denied. Notes are mandatory:
// administrators must record a reason the worker can act on. A denial never
// blocks a fresh submission for the same doc type.
//
// Errors: CodeValidation (missing notes), plus everything Approve returns.
func (s *Service) Deny(ctx context.Context, reviewerID id.UserID, subID id.SubmissionID, notes string) (*models.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Deny")
	defer span.End()

	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "notes are required when denying a submission")
	}
	return s.decide(ctx, reviewerID, subID, models.StatusDenied, notes)
}

// decide is the single mutation path out of pending. The store's Execute holds
// its lock (mutex or row lock) across CanDecide and ApplyDecision, and the
// terminal write is compare-and-set against pending: of two racing decisions
// exactly one commits, the other observes the terminal state and fails with
// CodeInvalidState. Reviewer and decision time are written together, never
// separately. The audit record commits atomically with the transition.
func (s *Service) decide(ctx context.Context, reviewerID id.UserID, subID id.SubmissionID, status models.Status, notes string) (*models.Submission, error) {
	start := time.Now()
	if reviewerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "reviewer id is required")
	}
	if subID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "submission id is required")
	}

	now := requestcontext.Now(ctx)

	var decided *models.Submission
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		sub, err := s.subs.Execute(txCtx, subID,
			func(sub *models.Submission) error {
				return sub.CanDecide()
			},
			func(sub *models.Submission) {
				sub.ApplyDecision(status, reviewerID, notes, now)
			},
		)
		if err != nil {
			return translateDecideErr(err)
		}

		action := audit.ActionSubmissionApproved
		if status == models.StatusDenied {
			action = audit.ActionSubmissionDenied
		}
		if err := s.emit(txCtx, audit.Event{
			Action:       action,
			SubmissionID: sub.ID,
			UserID:       sub.UserID,
			ActorID:      reviewerID,
			DocType:      string(sub.DocType),
			Reason:       notes,
		}); err != nil {
			return err
		}
		decided = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementDecision(string(status))
		s.metrics.ObserveDecide(start)
	}
	s.logger.InfoContext(ctx, "submission decided",
		"submission_id", subID.String(),
		"reviewer_id", reviewerID.String(),
		"outcome", string(status),
	)
	return decided, nil
}

func translateDecideErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "submission not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "submission is no longer pending; refresh the queue")
	case dErrors.HasCode(err, dErrors.CodeInvalidState):
		return err
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "submission store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to decide submission")
	}
}
