package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/alem-hub/student-records/internal/domain/student"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sqlite3 "modernc.org/sqlite/lib"
)

// driverError mimics *sqlite.Error, whose fields cannot be set from outside the driver.
type driverError struct {
	code int
}

func (e driverError) Error() string { return "sqlite error" }
func (e driverError) Code() int     { return e.code }

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStoreFromDB(db, nil), mock
}

func createWithCourses(s *student.Student) func(uow student.UnitOfWork) error {
	return func(uow student.UnitOfWork) error {
		if err := uow.Students().Create(context.Background(), s); err != nil {
			return err
		}
		return uow.Enrollments().Enroll(context.Background(), s.ID(), s.Courses())
	}
}

func TestTransact_RollsBackOnEnrollmentFailure(t *testing.T) {
	store, mock := newMockStore(t)
	s := mustStudent(t, "stu-1", "Ada", 50, "CS101", "MATH101")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enrollments").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := store.Transact(context.Background(), createWithCourses(s))
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransact_RetriesWhenBusy(t *testing.T) {
	store, mock := newMockStore(t)
	s := mustStudent(t, "stu-1", "Ada", 50)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnError(driverError{code: sqlite3.SQLITE_BUSY})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Transact(context.Background(), createWithCourses(s)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransact_DoesNotRetryConstraintErrors(t *testing.T) {
	store, mock := newMockStore(t)
	s := mustStudent(t, "stu-1", "Ada", 50)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnError(driverError{code: sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY})
	mock.ExpectRollback()

	err := store.Transact(context.Background(), createWithCourses(s))
	assert.ErrorIs(t, err, student.ErrStudentAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransact_CommitFailure(t *testing.T) {
	store, mock := newMockStore(t)
	s := mustStudent(t, "stu-1", "Ada", 50)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	err := store.Transact(context.Background(), createWithCourses(s))
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsUniqueViolation(driverError{code: sqlite3.SQLITE_CONSTRAINT_UNIQUE}))
	assert.True(t, IsUniqueViolation(driverError{code: sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY}))
	assert.True(t, IsForeignKeyViolation(driverError{code: sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY}))
	assert.True(t, IsCheckViolation(driverError{code: sqlite3.SQLITE_CONSTRAINT_CHECK}))
	assert.True(t, IsBusy(driverError{code: sqlite3.SQLITE_BUSY}))
	assert.True(t, IsBusy(driverError{code: sqlite3.SQLITE_BUSY_SNAPSHOT}))
	assert.False(t, IsBusy(errors.New("plain")))
	assert.False(t, IsUniqueViolation(nil))
}
