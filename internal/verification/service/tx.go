package service

import (
	"context"
	"database/sql"
	"fmt"

	dErrors "worklink/pkg/domain-errors"
	txcontext "worklink/pkg/platform/tx"
)

// StoreTx scopes a group of store writes to one commit. The Postgres runner
// opens a real transaction and threads it through context so the submission
// store and the audit outbox write to the same one; the pass-through runner
// backs memory stores, whose writes are individually atomic already.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// SQLStoreTx runs callbacks inside a database transaction.
type SQLStoreTx struct {
	db *sql.DB
}

func NewSQLStoreTx(db *sql.DB) *SQLStoreTx {
	return &SQLStoreTx{db: db}
}

func (r *SQLStoreTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "record store unavailable")
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "commit failed")
	}
	return nil
}
