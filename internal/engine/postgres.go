package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// ErrNoTransaction is returned when Execute/Commit/Rollback are called
// outside a transaction
var ErrNoTransaction = errors.New("no open transaction")

// PostgresEngine executes statements against a PostgreSQL instance
type PostgresEngine struct {
	db *sql.DB
	tx *sql.Tx
}

// Open creates a PostgreSQL engine for the given DSN. The connection is not
// validated here; the instance may still be starting up when the engine is
// constructed.
func Open(dsn string) (*PostgresEngine, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One run, one session
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &PostgresEngine{db: db}, nil
}

// Ping verifies the instance accepts connections
func (e *PostgresEngine) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return e.db.PingContext(ctx)
}

// InRecovery reports whether the instance is still replaying WAL
func (e *PostgresEngine) InRecovery(ctx context.Context) (bool, error) {
	var inRecovery bool
	err := e.db.QueryRowContext(ctx, "SELECT pg_is_in_recovery()").Scan(&inRecovery)
	if err != nil {
		return false, fmt.Errorf("failed to check recovery state: %w", err)
	}
	return inRecovery, nil
}

// Begin opens the run's single transaction
func (e *PostgresEngine) Begin(ctx context.Context) error {
	if e.tx != nil {
		return errors.New("transaction already open")
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	e.tx = tx
	return nil
}

// Execute runs a statement inside the open transaction, non-read-only,
// with no row limit
func (e *PostgresEngine) Execute(ctx context.Context, stmt string) (Result, error) {
	if e.tx == nil {
		return Result{}, ErrNoTransaction
	}

	res, err := e.tx.ExecContext(ctx, stmt)
	if err != nil {
		return Result{}, err
	}

	result := Result{Tag: CommandTag(stmt)}
	if rows, err := res.RowsAffected(); err == nil {
		result.RowsAffected = rows
	}
	return result, nil
}

// Commit commits the run's transaction
func (e *PostgresEngine) Commit() error {
	if e.tx == nil {
		return ErrNoTransaction
	}

	err := e.tx.Commit()
	e.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the run's transaction. Rolling back an already
// finished transaction is not an error.
func (e *PostgresEngine) Rollback() error {
	if e.tx == nil {
		return nil
	}

	err := e.tx.Rollback()
	e.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (e *PostgresEngine) Close() error {
	return e.db.Close()
}
