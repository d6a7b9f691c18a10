// Package tx carries an ambient SQL transaction through context. Stores that
// find one use it instead of their own connection, which is how a decision
// update and its audit outbox row commit or roll back together.
package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

// WithTx returns a context carrying tx. A nil tx leaves ctx unchanged so
// callers can pass through whatever they were given.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

// From reports the transaction in ctx, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	t, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return t, ok
}
