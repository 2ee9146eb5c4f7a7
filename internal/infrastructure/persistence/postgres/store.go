package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/alem-hub/student-records/internal/domain/course"
	"github.com/alem-hub/student-records/internal/domain/student"
	"github.com/alem-hub/student-records/pkg/retry"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store bundles the connection pool with the records repositories.
type Store struct {
	conn    *Connection
	logger  *slog.Logger
	retrier *retry.Retrier

	students *StudentRepository
	courses  *CourseRepository
}

// Open connects to PostgreSQL and returns a store.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	conn, err := NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(conn, logger), nil
}

// NewStore wraps an existing connection.
func NewStore(conn *Connection, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("store", "postgres")

	s := &Store{
		conn:     conn,
		logger:   logger,
		students: NewStudentRepository(conn),
		courses:  NewCourseRepository(conn),
	}
	s.retrier = retry.StoreRetrier(IsTransient, func(attempt int, err error, delay time.Duration) {
		logger.Warn("transaction conflict, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	})
	return s
}

// Connection returns the underlying connection.
func (s *Store) Connection() *Connection {
	return s.conn
}

// Students returns a repository bound to the pool.
func (s *Store) Students() student.Repository {
	return s.students
}

// Courses returns the course catalog repository.
func (s *Store) Courses() course.Repository {
	return s.courses
}

// Migrate applies pending migrations.
func (s *Store) Migrate(ctx context.Context) error {
	return NewMigrator(s.conn).Migrate(ctx)
}

// Transact runs fn in a transaction, retrying on serialization conflicts.
func (s *Store) Transact(ctx context.Context, fn func(uow student.UnitOfWork) error) error {
	return s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.conn.WithTx(ctx, func(tx pgx.Tx) error {
			return fn(&unitOfWork{
				students:    NewStudentRepository(tx),
				enrollments: NewEnrollmentRepository(tx),
			})
		})
	})
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.conn.Close()
	return nil
}

type unitOfWork struct {
	students    *StudentRepository
	enrollments *EnrollmentRepository
}

func (u *unitOfWork) Students() student.Repository {
	return u.students
}

func (u *unitOfWork) Enrollments() student.EnrollmentRepository {
	return u.enrollments
}
