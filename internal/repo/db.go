// Package repo contains all database access logic for the traffic slot
// reservation service. Each resource has its own file with an interface and
// a Postgres implementation. No business logic lives here — only SQL,
// locking, and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/transitlab/traffic-service/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// InTx runs fn inside a serializable transaction on pool. The transaction is
// committed when fn returns nil and rolled back otherwise.
//
// Serializable isolation is not optional here: the reserved counter on slots
// is incremented by concurrent sagas, and anything weaker admits lost updates.
func InTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("repo.InTx: begin: %w", err)
	}
	// Rollback after a successful commit is a no-op.
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.InTx: commit: %w", err)
	}
	return nil
}

// pgErrCode extracts the SQLSTATE from a Postgres error, or "" for other errors.
func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapTxError converts transient transaction-level failures (serialization
// failures and deadlocks, which serializable isolation can raise on any
// statement or on commit) into the retryable ErrLockContended sentinel.
// All other errors pass through unchanged.
func mapTxError(err error) error {
	switch pgErrCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%v: %w", err, domain.ErrLockContended)
	}
	return err
}
