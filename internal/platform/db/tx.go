package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres SQLSTATE codes the repositories branch on.
const (
	CodeForeignKeyViolation = "23503"
	CodeUniqueViolation     = "23505"
	CodeCheckViolation      = "23514"
	CodeSerialization       = "40001"

	// CodeInvalidTextRepresentation is raised when a malformed uuid is bound.
	CodeInvalidTextRepresentation = "22P02"
)

// WithTx executes fn within a RepeatableRead transaction. A serialization
// failure is retried once because every caller re-reads its rows under lock.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	err := runTx(ctx, pool, fn)
	if IsCode(err, CodeSerialization) {
		err = runTx(ctx, pool, fn)
	}
	return err
}

func runTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// IsNotFound reports whether a lookup by id matched nothing. An id that
// does not parse as a uuid cannot match a row either.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || IsCode(err, CodeInvalidTextRepresentation)
}

// IsCode reports whether err carries the given Postgres SQLSTATE.
func IsCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// ConstraintName returns the violated constraint, if err is a Postgres error.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
