package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"worklink/internal/verification/models"
	"worklink/internal/verification/store/submission"
	id "worklink/pkg/domain"
	dErrors "worklink/pkg/domain-errors"
	"worklink/pkg/platform/sentinel"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PendingPage is one page of the review queue plus the total backlog size.
type PendingPage struct {
	Items    []*models.Submission `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// ListPending returns pending submissions ordered by submission time
// ascending: the longest-waiting applicant is reviewed first.
//
// The queue is a read-model, not a work-claiming mechanism. Nothing is hidden
// while another administrator views it; mutual exclusion happens only at
// decision time through the state machine's atomic transition, so the queue
// never becomes a second source of truth for status.
func (s *Service) ListPending(ctx context.Context, page, pageSize int) (*PendingPage, error) {
	ctx, span := s.tracer.Start(ctx, "verification.ListPending")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	result := &PendingPage{Page: page, PageSize: pageSize}

	// Page and backlog total are independent reads; fetch them concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.subs.ListPending(gctx, (page-1)*pageSize, pageSize)
		if err != nil {
			return err
		}
		result.Items = items
		return nil
	})
	g.Go(func() error {
		total, err := s.subs.CountPending(gctx)
		if err != nil {
			return err
		}
		result.Total = total
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "submission store unavailable")
	}

	if s.metrics != nil {
		s.metrics.SetQueueDepth(result.Total)
	}
	return result, nil
}

// Get returns a single submission by id, for administrator detail views.
func (s *Service) Get(ctx context.Context, subID id.SubmissionID) (*models.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Get")
	defer span.End()

	if subID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "submission id is required")
	}
	sub, err := s.subs.FindByID(ctx, subID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "submission not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "submission store unavailable")
	}
	return sub, nil
}

// ListDocuments returns submissions across users filtered by owner and/or
// status, newest first. Administrator-only surface.
func (s *Service) ListDocuments(ctx context.Context, f submission.Filter) ([]*models.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "verification.ListDocuments")
	defer span.End()

	subs, err := s.subs.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "submission store unavailable")
	}
	return subs, nil
}
