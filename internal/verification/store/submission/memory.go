// Package submission provides the durable store for verification submissions:
// an in-memory implementation for tests and single-node dev, and a PostgreSQL
// implementation for production. Both enforce the same two guarantees:
//
//   - at most one pending submission per (user, doc type), checked atomically
//     at create time
//   - decisions are compare-and-set against pending, so concurrent deciders
//     can never both succeed
//
// Stores return sentinel errors; services translate them into domain errors.
package submission

import (
	"context"
	"sort"
	"sync"

	"worklink/internal/verification/models"
	id "worklink/pkg/domain"
	"worklink/pkg/platform/sentinel"
)

// Filter narrows admin listings. Nil fields match everything.
type Filter struct {
	UserID *id.UserID
	Status *models.Status
}

// InMemory keeps submissions under one mutex. The mutex spans the duplicate-
// pending check at create and the validate+mutate window of Execute, mirroring
// what the Postgres store gets from its partial unique index and row lock.
type InMemory struct {
	mu   sync.RWMutex
	subs map[id.SubmissionID]*models.Submission
}

func NewInMemory() *InMemory {
	return &InMemory{subs: make(map[id.SubmissionID]*models.Submission)}
}

// CreateIfNoPending inserts the submission unless its owner already has a
// pending one for the same doc type. Returns sentinel.ErrConflict in that case.
func (s *InMemory) CreateIfNoPending(_ context.Context, sub *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.subs {
		if existing.UserID == sub.UserID && existing.DocType == sub.DocType && existing.IsPending() {
			return sentinel.ErrConflict
		}
	}

	s.subs[sub.ID] = clone(sub)
	return nil
}

// FindByID returns a copy of the submission or sentinel.ErrNotFound.
func (s *InMemory) FindByID(_ context.Context, subID id.SubmissionID) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[subID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(sub), nil
}

// Execute atomically validates and mutates one submission while holding the
// store lock, so two racing decisions on the same record serialize and the
// loser sees the winner's terminal state inside validate.
func (s *InMemory) Execute(
	_ context.Context,
	subID id.SubmissionID,
	validate func(*models.Submission) error,
	apply func(*models.Submission),
) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[subID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(sub); err != nil {
		return nil, err
	}
	apply(sub)
	return clone(sub), nil
}

// ListByUser returns every submission owned by the user, newest first.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Submission
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, clone(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		// Stable order for identical timestamps so repeated reads agree.
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

// ListPending returns a page of pending submissions, oldest first.
func (s *InMemory) ListPending(_ context.Context, offset, limit int) ([]*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*models.Submission
	for _, sub := range s.subs {
		if sub.IsPending() {
			pending = append(pending, clone(sub))
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].SubmittedAt.Equal(pending[j].SubmittedAt) {
			return pending[i].SubmittedAt.Before(pending[j].SubmittedAt)
		}
		return pending[i].ID.String() < pending[j].ID.String()
	})

	if offset >= len(pending) {
		return nil, nil
	}
	end := offset + limit
	if end > len(pending) {
		end = len(pending)
	}
	return pending[offset:end], nil
}

// CountPending returns the number of submissions awaiting a decision.
func (s *InMemory) CountPending(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sub := range s.subs {
		if sub.IsPending() {
			count++
		}
	}
	return count, nil
}

// List returns submissions matching the filter, newest first.
func (s *InMemory) List(_ context.Context, f Filter) ([]*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Submission
	for _, sub := range s.subs {
		if f.UserID != nil && sub.UserID != *f.UserID {
			continue
		}
		if f.Status != nil && sub.Status != *f.Status {
			continue
		}
		out = append(out, clone(sub))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func clone(sub *models.Submission) *models.Submission {
	c := *sub
	if sub.DecidedAt != nil {
		t := *sub.DecidedAt
		c.DecidedAt = &t
	}
	if sub.ReviewerID != nil {
		r := *sub.ReviewerID
		c.ReviewerID = &r
	}
	return &c
}
