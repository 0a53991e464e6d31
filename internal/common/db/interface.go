package db

import "context"

// Database is the narrow record-store contract the grading pipeline needs:
// plain queries plus transactions for read-modify-write sequences
// (claiming a submission, finalizing an attempt).
type Database interface {
	Querier

	// Transaction executes fn within a transaction, committing on nil
	// and rolling back on error.
	Transaction(ctx context.Context, fn func(tx Transaction) error) error

	// Ping verifies the connection is still alive.
	Ping(ctx context.Context) error

	// Close closes the underlying connection pool.
	Close() error
}

// Transaction represents an in-flight database transaction.
type Transaction interface {
	Querier

	Commit() error
	Rollback() error
}

// Rows is the result of a multi-row query.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Row is the result of a single-row query.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result reports the outcome of an Exec.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}
