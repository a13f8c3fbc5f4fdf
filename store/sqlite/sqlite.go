/*
Package sqlite provides a SQLite-backed leave.TxRepository.

PURPOSE:
  Default backend for single-node deployments and tests. The same
  schema runs on PostgreSQL (store/postgres) with dialect changes only.

KEY TABLE:
  leaves: one row per leave request. Rows are never deleted; the only
  UPDATE is on status.

CONSTRAINTS:
  The table mirrors the application rules where SQL can express them:
  - emp_id GLOB '[A-Z][A-Z][A-Z]0[0-9][0-9][0-9]'
  - status IN ('Pending', 'Approved', 'Rejected')
  - to_date >= from_date
  - reason length 5..100
  A violated constraint surfaces as a leave.ValidationError.

INDEXES:
  - idx_leaves_emp_created:    per-employee listing and overlap reads
  - idx_leaves_status_created: status-filtered listing

CONCURRENCY:
  One open connection, writers serialized by sync.RWMutex.
  Transactions start with BEGIN IMMEDIATE (_txlock=immediate), so the
  overlap read inside WithEmployeeLock already holds the write lock.

USAGE:
  store, err := sqlite.New("./leaves.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := leave.NewService(store, leave.DefaultPolicy())

MIGRATION:
  Schema is auto-migrated on New() with CREATE ... IF NOT EXISTS.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/warp/leave-service/leave"
)

// Fixed-width UTC timestamps sort lexically in creation order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements leave.TxRepository using SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the created_at clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.Named("store.sqlite")
		}
	}
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// ":memory:" is per connection; a single connection also matches
	// SQLite's single-writer model.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now, logger: zap.L().Named("store.sqlite")}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store.logger.Debug("sqlite store ready", zap.String("path", dbPath))
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leaves (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		emp_id TEXT NOT NULL CHECK (emp_id GLOB '[A-Z][A-Z][A-Z]0[0-9][0-9][0-9]'),
		name TEXT NOT NULL,
		email TEXT NOT NULL CHECK (email LIKE '%_@_%'),
		leave_type TEXT NOT NULL,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		from_hour TEXT,
		to_hour TEXT,
		reason TEXT NOT NULL CHECK (length(reason) BETWEEN 5 AND 100),
		status TEXT NOT NULL DEFAULT 'Pending'
			CHECK (status IN ('Pending', 'Approved', 'Rejected')),
		created_at TEXT NOT NULL,
		CHECK (to_date >= from_date)
	);

	CREATE INDEX IF NOT EXISTS idx_leaves_emp_created
		ON leaves(emp_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_leaves_status_created
		ON leaves(status, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REPOSITORY (leave.Repository interface)
// =============================================================================

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectColumns = `SELECT id, emp_id, name, email, leave_type, from_date, to_date,
	from_hour, to_hour, reason, status, created_at FROM leaves`

func (s *Store) Insert(ctx context.Context, r leave.Record) (leave.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(ctx, s.db, r)
}

func (s *Store) Query(ctx context.Context, f leave.Filter) ([]leave.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(ctx, s.db, f)
}

func (s *Store) Get(ctx context.Context, id int64) (leave.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(ctx, s.db, id)
}

func (s *Store) UpdateStatus(ctx context.Context, id int64, status leave.Status) (leave.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateStatus(ctx, s.db, id, status)
}

func (s *Store) insert(ctx context.Context, db querier, r leave.Record) (leave.Record, error) {
	r.CreatedAt = s.now().UTC()
	if r.Status == "" {
		r.Status = leave.StatusPending
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO leaves (emp_id, name, email, leave_type, from_date, to_date,
			from_hour, to_hour, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.EmpID, r.Name, r.Email, string(r.LeaveType),
		r.From.String(), r.To.String(),
		clockValue(r.FromHour), clockValue(r.ToHour),
		r.Reason, string(r.Status),
		r.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		if isConstraintError(err) {
			return leave.Record{}, constraintViolation()
		}
		return leave.Record{}, fmt.Errorf("insert leave: %w", err)
	}

	r.ID, err = res.LastInsertId()
	if err != nil {
		return leave.Record{}, fmt.Errorf("insert leave: %w", err)
	}
	return r, nil
}

func (s *Store) query(ctx context.Context, db querier, f leave.Filter) ([]leave.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.EmpID != "" {
		where = append(where, "emp_id = ?")
		args = append(args, f.EmpID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	q := selectColumns
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query leaves: %w", err)
	}
	defer rows.Close()

	records := make([]leave.Record, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) get(ctx context.Context, db querier, id int64) (leave.Record, error) {
	r, err := scanRecord(db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return leave.Record{}, leave.ErrNotFound
	}
	return r, err
}

func (s *Store) updateStatus(ctx context.Context, db querier, id int64, status leave.Status) (leave.Record, error) {
	res, err := db.ExecContext(ctx, `UPDATE leaves SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		if isConstraintError(err) {
			return leave.Record{}, constraintViolation()
		}
		return leave.Record{}, fmt.Errorf("update leave status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return leave.Record{}, fmt.Errorf("update leave status: %w", err)
	}
	if n == 0 {
		return leave.Record{}, leave.ErrNotFound
	}
	return s.get(ctx, db, id)
}

// =============================================================================
// TRANSACTIONAL STORE (leave.TxRepository interface)
// =============================================================================

// WithEmployeeLock runs fn within a database transaction. The store
// mutex serializes every locked unit of work, which covers per-employee
// serialization.
func (s *Store) WithEmployeeLock(ctx context.Context, empID string, fn func(leave.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txRepo{tx: sqlTx, parent: s}); err != nil {
		s.logger.Debug("transaction rolled back", zap.String("emp_id", empID), zap.Error(err))
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txRepo routes through the open transaction without touching the mutex.
type txRepo struct {
	tx     *sql.Tx
	parent *Store
}

func (t *txRepo) Insert(ctx context.Context, r leave.Record) (leave.Record, error) {
	return t.parent.insert(ctx, t.tx, r)
}

func (t *txRepo) Query(ctx context.Context, f leave.Filter) ([]leave.Record, error) {
	return t.parent.query(ctx, t.tx, f)
}

func (t *txRepo) Get(ctx context.Context, id int64) (leave.Record, error) {
	return t.parent.get(ctx, t.tx, id)
}

func (t *txRepo) UpdateStatus(ctx context.Context, id int64, status leave.Status) (leave.Record, error) {
	return t.parent.updateStatus(ctx, t.tx, id, status)
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (leave.Record, error) {
	var (
		r                 leave.Record
		leaveType, status string
		fromDate, toDate  string
		fromHour, toHour  sql.NullString
		createdAt         string
	)
	err := row.Scan(&r.ID, &r.EmpID, &r.Name, &r.Email, &leaveType,
		&fromDate, &toDate, &fromHour, &toHour, &r.Reason, &status, &createdAt)
	if err != nil {
		return leave.Record{}, err
	}

	r.LeaveType = leave.LeaveType(leaveType)
	r.Status = leave.Status(status)
	if r.From, err = leave.ParseDate(fromDate); err != nil {
		return leave.Record{}, err
	}
	if r.To, err = leave.ParseDate(toDate); err != nil {
		return leave.Record{}, err
	}
	if r.FromHour, err = scanClock(fromHour); err != nil {
		return leave.Record{}, err
	}
	if r.ToHour, err = scanClock(toHour); err != nil {
		return leave.Record{}, err
	}
	if r.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return leave.Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	return r, nil
}

func scanClock(ns sql.NullString) (*leave.Clock, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	c, err := leave.ParseClock(ns.String)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func clockValue(c *leave.Clock) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.String(), Valid: true}
}

func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

func constraintViolation() error {
	return &leave.ValidationError{
		Rule:    "store_constraint",
		Message: "Leave record violates store constraints",
	}
}
