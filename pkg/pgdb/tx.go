package pgdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pinwheelhq/atrium/pkg/errs"
)

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// error or panic.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RetryRead runs an idempotent read, retrying exactly once on a transient
// failure. Writes must never go through here.
func RetryRead(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !errs.IsTransient(err) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}
	return fn()
}
