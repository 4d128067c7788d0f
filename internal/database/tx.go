package database

import (
	"context"
	"fmt"

	"identityrecon/internal/store"
)

// RunAtomic executes fn inside one transaction. A caller without a deadline
// gets the configured transaction timeout. Any error from fn rolls back.
func (db *DB) RunAtomic(ctx context.Context, fn func(tx store.ContactStore) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.txTimeout)
		defer cancel()
	}

	tx, err := db.Conn.BeginTxx(ctx, db.txOptions())
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classify(err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	repo := newContactRepo(tx, db.dialect)
	repo.now = db.now
	if err := fn(repo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", classify(err))
	}
	return nil
}
