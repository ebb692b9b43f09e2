package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// rowScanner is satisfied by both pgx.Row (QueryRow) and pgx.Rows (Query),
// letting scan helpers work against either.
type rowScanner interface {
	Scan(dest ...any) error
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic. Engine ticks go through this, so window
// expiry and last_run_at advances commit together. Run and attempt writes
// made during an execution do not: each of them commits on its own, and a
// crash mid-run can leave a PENDING run with some of its attempts.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
