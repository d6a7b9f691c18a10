//go:build integration

package submission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"worklink/internal/verification/models"
	id "worklink/pkg/domain"
	"worklink/pkg/platform/sentinel"
	"worklink/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
	ctx   context.Context
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
}

func (s *PostgresSuite) newOwner() id.UserID {
	owner, err := id.ParseUserID(uuid.NewString())
	s.Require().NoError(err)
	return owner
}

func (s *PostgresSuite) create(owner id.UserID, docType string, at time.Time) *models.Submission {
	sub, err := models.NewSubmission(owner, models.DocType(docType), "blob-"+uuid.NewString(), at)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateIfNoPending(s.ctx, sub))
	return sub
}

func (s *PostgresSuite) TestUniquePendingEnforcedByIndex() {
	owner := s.newOwner()
	now := time.Now().UTC().Truncate(time.Microsecond)

	s.create(owner, "passport", now)

	dup, err := models.NewSubmission(owner, "passport", "blob-dup", now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.CreateIfNoPending(s.ctx, dup), sentinel.ErrConflict)

	// A denied record frees the slot.
	first, err := s.store.List(s.ctx, Filter{UserID: &owner})
	s.Require().NoError(err)
	s.Require().Len(first, 1)

	reviewer := s.newOwner()
	_, err = s.store.Execute(s.ctx, first[0].ID,
		func(sub *models.Submission) error { return sub.CanDecide() },
		func(sub *models.Submission) {
			sub.ApplyDecision(models.StatusDenied, reviewer, "expired", now)
		},
	)
	s.Require().NoError(err)

	again, err := models.NewSubmission(owner, "passport", "blob-retry", now.Add(time.Second))
	s.Require().NoError(err)
	s.NoError(s.store.CreateIfNoPending(s.ctx, again))
}

func (s *PostgresSuite) TestExecuteRoundTripsDecision() {
	owner := s.newOwner()
	reviewer := s.newOwner()
	now := time.Now().UTC().Truncate(time.Microsecond)
	sub := s.create(owner, "passport", now)

	decided, err := s.store.Execute(s.ctx, sub.ID,
		func(current *models.Submission) error { return current.CanDecide() },
		func(current *models.Submission) {
			current.ApplyDecision(models.StatusApproved, reviewer, "looks genuine", now.Add(time.Minute))
		},
	)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, decided.Status)

	found, err := s.store.FindByID(s.ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, found.Status)
	s.Require().NotNil(found.ReviewerID)
	s.Equal(reviewer, *found.ReviewerID)
	s.Require().NotNil(found.DecidedAt)
	s.Equal("looks genuine", found.Notes)
}

func (s *PostgresSuite) TestExecuteUnknownID() {
	_, err := s.store.Execute(s.ctx, id.NewSubmissionID(),
		func(sub *models.Submission) error { return nil },
		func(sub *models.Submission) {},
	)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestConcurrentDecidersSerialize() {
	owner := s.newOwner()
	now := time.Now().UTC().Truncate(time.Microsecond)
	sub := s.create(owner, "passport", now)

	const deciders = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded int

	for i := 0; i < deciders; i++ {
		status := models.StatusApproved
		if i%2 == 1 {
			status = models.StatusDenied
		}
		reviewer := s.newOwner()

		wg.Add(1)
		go func(status models.Status, reviewer id.UserID) {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, sub.ID,
				func(current *models.Submission) error { return current.CanDecide() },
				func(current *models.Submission) {
					current.ApplyDecision(status, reviewer, "race", now)
				},
			)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(status, reviewer)
	}
	wg.Wait()

	s.Equal(1, succeeded, "row lock plus CAS admits exactly one decision")

	final, err := s.store.FindByID(s.ctx, sub.ID)
	s.Require().NoError(err)
	s.True(final.Status.Terminal())
}

func (s *PostgresSuite) TestListPendingOrderAndPaging() {
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		s.create(s.newOwner(), "passport", base.Add(time.Duration(i)*time.Second))
	}

	page, err := s.store.ListPending(s.ctx, 0, 3)
	s.Require().NoError(err)
	s.Require().Len(page, 3)
	for i := 1; i < len(page); i++ {
		s.False(page[i].SubmittedAt.Before(page[i-1].SubmittedAt))
	}

	rest, err := s.store.ListPending(s.ctx, 3, 3)
	s.Require().NoError(err)
	s.Len(rest, 2)

	count, err := s.store.CountPending(s.ctx)
	s.Require().NoError(err)
	s.Equal(5, count)
}

func (s *PostgresSuite) TestListFilters() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	owner := s.newOwner()
	other := s.newOwner()
	reviewer := s.newOwner()

	mine := s.create(owner, "passport", now)
	s.create(other, "passport", now)

	_, err := s.store.Execute(s.ctx, mine.ID,
		func(sub *models.Submission) error { return sub.CanDecide() },
		func(sub *models.Submission) {
			sub.ApplyDecision(models.StatusApproved, reviewer, "", now)
		},
	)
	s.Require().NoError(err)

	byUser, err := s.store.List(s.ctx, Filter{UserID: &owner})
	s.Require().NoError(err)
	s.Require().Len(byUser, 1)
	s.Equal(mine.ID, byUser[0].ID)

	approved := models.StatusApproved
	byStatus, err := s.store.List(s.ctx, Filter{Status: &approved})
	s.Require().NoError(err)
	s.Require().Len(byStatus, 1)
	s.Equal(mine.ID, byStatus[0].ID)
}
