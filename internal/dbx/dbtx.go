// Package dbx holds the database/sql plumbing of the SQL kv backend.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX lets statements run against either *sql.DB or *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx hands fn a transaction and commits it if fn returns nil. An error
// from fn is returned as-is (joined with any rollback failure) so callers
// can still match sentinels such as common.ErrVersionConflict. A panic in
// fn rolls back and propagates.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    for _, sw := range swaps {
//	        if err := swap(ctx, tx, sw); err != nil {
//	            return err
//	        }
//	    }
//	    return nil
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin kv transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err != nil {
			err = errors.Join(err, fmt.Errorf("rollback kv transaction: %w", rbErr))
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit kv transaction: %w", err)
	}
	committed = true
	return nil
}
