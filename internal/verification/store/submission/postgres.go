package submission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"worklink/internal/verification/models"
	id "worklink/pkg/domain"
	"worklink/pkg/platform/sentinel"
	txcontext "worklink/pkg/platform/tx"
)

// uniqueViolation is the Postgres error code raised by the partial unique
// index idx_submissions_one_pending (see migrations/0001_init.sql).
const uniqueViolation = "23505"

// Postgres is the production submission store. Uniqueness of pending
// submissions and the one-way status transition are enforced by the database,
// not by application-level read-then-write.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer returns the ambient transaction when the service opened one
// (decision + audit outbox writes share it), otherwise the pool.
func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const submissionColumns = `id, user_id, doc_type, blob_ref, status, submitted_at, decided_at, reviewer_id, notes`

// CreateIfNoPending inserts the submission; the partial unique index rejects a
// second pending record for the same (user, doc type) atomically, even under
// concurrent submits.
func (s *Postgres) CreateIfNoPending(ctx context.Context, sub *models.Submission) error {
	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, NULL, '')
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(sub.ID),
		uuid.UUID(sub.UserID),
		string(sub.DocType),
		sub.BlobRef,
		string(sub.Status),
		sub.SubmittedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("%w: insert submission: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

// FindByID returns the submission or sentinel.ErrNotFound.
func (s *Postgres) FindByID(ctx context.Context, subID id.SubmissionID) (*models.Submission, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`,
		uuid.UUID(subID),
	)
	return scanSubmission(row)
}

// Execute runs validate and apply against one submission under a row lock.
// The subsequent UPDATE is additionally guarded by status = 'pending' so the
// transition is a compare-and-set even if a caller bypasses the lock.
func (s *Postgres) Execute(
	ctx context.Context,
	subID id.SubmissionID,
	validate func(*models.Submission) error,
	apply func(*models.Submission),
) (*models.Submission, error) {
	run := func(ctx context.Context, ex dbExecutor) (*models.Submission, error) {
		row := ex.QueryRowContext(ctx,
			`SELECT `+submissionColumns+` FROM submissions WHERE id = $1 FOR UPDATE`,
			uuid.UUID(subID),
		)
		sub, err := scanSubmission(row)
		if err != nil {
			return nil, err
		}

		if err := validate(sub); err != nil {
			return nil, err
		}
		apply(sub)

		res, err := ex.ExecContext(ctx, `
			UPDATE submissions
			SET status = $2, reviewer_id = $3, decided_at = $4, notes = $5
			WHERE id = $1 AND status = 'pending'
		`,
			uuid.UUID(subID),
			string(sub.Status),
			nullableID(sub.ReviewerID),
			sub.DecidedAt,
			sub.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: update submission: %w", sentinel.ErrUnavailable, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("%w: update submission: %w", sentinel.ErrUnavailable, err)
		}
		if affected == 0 {
			return nil, sentinel.ErrInvalidState
		}
		return sub, nil
	}

	// Inside an ambient transaction the caller owns commit/rollback.
	if tx, ok := txcontext.From(ctx); ok {
		return run(ctx, tx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", sentinel.ErrUnavailable, err)
	}
	sub, err := run(ctx, tx)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", sentinel.ErrUnavailable, err)
	}
	return sub, nil
}

// ListByUser returns every submission owned by the user, newest first.
func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Submission, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE user_id = $1
		ORDER BY submitted_at DESC, id DESC
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: query submissions: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

// ListPending returns a page of pending submissions, oldest first, so the
// longest-waiting applicants surface at the top of the review queue.
func (s *Postgres) ListPending(ctx context.Context, offset, limit int) ([]*models.Submission, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE status = 'pending'
		ORDER BY submitted_at ASC, id ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: query pending: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

// CountPending returns the number of submissions awaiting a decision.
func (s *Postgres) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE status = 'pending'`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count pending: %w", sentinel.ErrUnavailable, err)
	}
	return count, nil
}

// List returns submissions matching the filter, newest first.
func (s *Postgres) List(ctx context.Context, f Filter) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE 1=1`
	var args []any
	if f.UserID != nil {
		args = append(args, uuid.UUID(*f.UserID))
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += ` ORDER BY submitted_at DESC, id DESC`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query submissions: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var (
		sub        models.Submission
		subID      uuid.UUID
		userID     uuid.UUID
		docType    string
		status     string
		decidedAt  sql.NullTime
		reviewerID *uuid.UUID
		notes      sql.NullString
	)

	err := row.Scan(&subID, &userID, &docType, &sub.BlobRef, &status, &sub.SubmittedAt, &decidedAt, &reviewerID, &notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scan submission: %w", sentinel.ErrUnavailable, err)
	}

	sub.ID = id.SubmissionID(subID)
	sub.UserID = id.UserID(userID)
	sub.DocType = models.DocType(docType)
	sub.Status = models.Status(status)
	if decidedAt.Valid {
		t := decidedAt.Time
		sub.DecidedAt = &t
	}
	if reviewerID != nil {
		r := id.UserID(*reviewerID)
		sub.ReviewerID = &r
	}
	sub.Notes = notes.String
	return &sub, nil
}

func scanSubmissions(rows *sql.Rows) ([]*models.Submission, error) {
	var out []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate submissions: %w", sentinel.ErrUnavailable, err)
	}
	return out, nil
}

func nullableID(userID *id.UserID) *uuid.UUID {
	if userID == nil {
		return nil
	}
	u := uuid.UUID(*userID)
	return &u
}
