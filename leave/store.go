/*
store.go - Persistence interface for leave records

PURPOSE:
  Defines the boundary between the leave service and the database.
  The service never talks to a driver directly; it receives a
  Repository and can run against SQLite, PostgreSQL or memory.

KEY INTERFACES:
  Repository:   insert, query, get, update status
  TxRepository: adds per-employee serialized units of work

NO DELETE:
  Records are never deleted. The only mutation after insert is
  UpdateStatus.

PER-EMPLOYEE LOCK:
  WithEmployeeLock runs fn with a Repository bound to one transaction
  that is serialized against every other WithEmployeeLock call for the
  same employee. The overlap check and the insert that follows it must
  both go through the Repository passed to fn.

IMPLEMENTATIONS:
  - store/sqlite:   database/sql + go-sqlite3
  - store/postgres: database/sql + pgx, advisory locks
  - store/memory:   in-memory, for tests and dev
*/
package leave

import "context"

// Repository persists leave records.
type Repository interface {
	// Insert stores a new record and returns it with ID and CreatedAt set.
	Insert(ctx context.Context, r Record) (Record, error)

	// Query returns matching records, newest first (created_at DESC, id DESC).
	Query(ctx context.Context, f Filter) ([]Record, error)

	// Get returns ErrNotFound if no record has the id.
	Get(ctx context.Context, id int64) (Record, error)

	// UpdateStatus returns the updated record, or ErrNotFound.
	UpdateStatus(ctx context.Context, id int64, status Status) (Record, error)
}

// TxRepository adds serialized units of work keyed by employee.
type TxRepository interface {
	Repository

	// WithEmployeeLock runs fn atomically. If fn returns an error,
	// every write made through the passed Repository is rolled back.
	WithEmployeeLock(ctx context.Context, empID string, fn func(Repository) error) error
}
