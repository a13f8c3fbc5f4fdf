package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/leave-service/leave"
	"github.com/warp/leave-service/store/postgres"
)

var recordColumns = []string{
	"id", "emp_id", "name", "email", "leave_type",
	"from_date", "to_date", "from_hour", "to_hour",
	"reason", "status", "created_at",
}

func newMockStore(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.New(db, zap.NewNop()), mock
}

func draft() leave.Record {
	return leave.Record{
		EmpID:     "ABC0123",
		Name:      "John Doe",
		Email:     "john.doe@example.com",
		LeaveType: leave.TypeEarned,
		From:      leave.MustParseDate("2025-03-01"),
		To:        leave.MustParseDate("2025-03-05"),
		Reason:    "Family trip",
	}
}

func TestInsert_ReturnsGeneratedIDAndTimestamp(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2025, 2, 15, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO leaves")).
		WithArgs("ABC0123", "John Doe", "john.doe@example.com", "earned",
			"2025-03-01", "2025-03-05", nil, nil, "Family trip", "Pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))

	r, err := s.Insert(context.Background(), draft())

	require.NoError(t, err)
	assert.Equal(t, int64(11), r.ID)
	assert.Equal(t, leave.StatusPending, r.Status)
	assert.True(t, created.Equal(r.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_CheckViolationIsValidationError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO leaves")).
		WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "leaves_range_check"})

	_, err := s.Insert(context.Background(), draft())

	var verr *leave.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "store_constraint", verr.Rule)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_ValueTooLongIsValidationError(t *testing.T) {
	// GIVEN: A name longer than the column allows
	s, mock := newMockStore(t)
	r := draft()
	r.Name = strings.Repeat("A", 150)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO leaves")).
		WillReturnError(&pgconn.PgError{Code: "22001", Message: "value too long for type character varying(100)"})

	// WHEN: Inserting
	_, err := s.Insert(context.Background(), r)

	// THEN: The caller can correct it, so it is a validation error
	var verr *leave.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "store_constraint", verr.Rule)
	assert.True(t, leave.IsClientError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_OtherFailuresAreWrapped(t *testing.T) {
	s, mock := newMockStore(t)
	cause := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO leaves")).WillReturnError(cause)

	_, err := s.Insert(context.Background(), draft())

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, leave.KindUnknown, leave.KindOf(err))
	assert.Contains(t, err.Error(), "insert leave")
}

func TestQuery_BuildsFilterAndParsesRows(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2025, 2, 15, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE emp_id = $1 AND status = $2 ORDER BY created_at DESC, id DESC")).
		WithArgs("ABC0123", "Approved").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(int64(2), "ABC0123", "John Doe", "john.doe@example.com", "sick",
				"2025-03-10", "2025-03-10", "09:00:00", "13:00:00", "Dentist visit", "Approved", created).
			AddRow(int64(1), "ABC0123", "John Doe", "john.doe@example.com", "earned",
				"2025-03-01", "2025-03-05", nil, nil, "Family trip", "Approved", created))

	records, err := s.Query(context.Background(), leave.Filter{EmpID: "ABC0123", Status: leave.StatusApproved})

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].ID)
	assert.Equal(t, "2025-03-10", records[0].From.String())
	require.NotNil(t, records[0].FromHour)
	assert.Equal(t, "09:00", records[0].FromHour.String())
	assert.Nil(t, records[1].FromHour)
	assert.Equal(t, 5, records[1].Range().Days())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_NoFilter(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM leaves ORDER BY created_at DESC, id DESC`).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	records, err := s.Query(context.Background(), leave.Filter{})

	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NoRowsIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	_, err := s.Get(context.Background(), 9)

	assert.ErrorIs(t, err, leave.ErrNotFound)
}

func TestUpdateStatus_NoRowsIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE leaves SET status = $1 WHERE id = $2")).
		WithArgs("Approved", int64(9)).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	_, err := s.UpdateStatus(context.Background(), 9, leave.StatusApproved)

	assert.ErrorIs(t, err, leave.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithEmployeeLock_TakesAdvisoryLockAndCommits(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("ABC0123").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE emp_id = $1 AND status = $2")).
		WithArgs("ABC0123", "Approved").
		WillReturnRows(sqlmock.NewRows(recordColumns))
	mock.ExpectCommit()

	err := s.WithEmployeeLock(context.Background(), "ABC0123", func(tx leave.Repository) error {
		_, err := tx.Query(context.Background(), leave.Filter{EmpID: "ABC0123", Status: leave.StatusApproved})
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithEmployeeLock_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).
		WithArgs("ABC0123").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.WithEmployeeLock(context.Background(), "ABC0123", func(leave.Repository) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithEmployeeLock_LockFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	called := false
	err := s.WithEmployeeLock(context.Background(), "ABC0123", func(leave.Repository) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}
