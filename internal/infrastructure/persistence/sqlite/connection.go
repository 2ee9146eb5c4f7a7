// Package sqlite implements the embedded SQLite store for student records.
// It runs on the pure-Go modernc.org/sqlite driver, so the binary needs no
// cgo and no database server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/alem-hub/student-records/internal/domain/course"
	"github.com/alem-hub/student-records/internal/domain/student"
	"github.com/alem-hub/student-records/pkg/retry"

	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("sqlite: store is closed")

	// ErrMigrationFailed indicates a migration failure.
	ErrMigrationFailed = errors.New("sqlite: migration failed")

	// ErrTransactionFailed indicates a transaction could not be started or committed.
	ErrTransactionFailed = errors.New("sqlite: transaction failed")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds SQLite connection configuration.
type Config struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum lifetime of a connection.
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Path:            "students.db",
		BusyTimeout:     5 * time.Second,
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Hour,
	}
}

// DSN returns the connection string. Pragmas are applied by the driver on
// every new connection, so foreign keys are enforced pool-wide.
func (c Config) DSN() string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	params.Add("_pragma", "journal_mode(WAL)")
	params.Set("_txlock", "immediate")
	return c.Path + "?" + params.Encode()
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is a SQLite-backed records store.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	retrier *retry.Retrier

	students *StudentRepository
	courses  *CourseRepository

	closed bool
	mu     sync.RWMutex
}

// Open opens the database file and verifies the connection.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: database path is required")
	}

	db, err := sql.Open(DriverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}

	return NewStoreFromDB(db, logger), nil
}

// NewStoreFromDB wraps an existing *sql.DB. The caller is responsible for
// the connection pragmas.
func NewStoreFromDB(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("store", "sqlite")

	s := &Store{
		db:       db,
		logger:   logger,
		students: NewStudentRepository(db),
		courses:  NewCourseRepository(db),
	}
	s.retrier = retry.StoreRetrier(IsBusy, func(attempt int, err error, delay time.Duration) {
		logger.Warn("database busy, retrying transaction",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	})
	return s
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Students returns a repository bound to the pool (outside any transaction).
func (s *Store) Students() student.Repository {
	return s.students
}

// Courses returns the course catalog repository.
func (s *Store) Courses() course.Repository {
	return s.courses
}

// Ping checks if the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	return s.db.PingContext(ctx)
}

// Close closes the connection pool. Subsequent calls are no-ops.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// Querier is implemented by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx executes fn within a transaction.
// The transaction is committed if fn returns nil, rolled back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrTransactionFailed, err)
	}

	return nil
}

// Transact runs fn in a transaction and retries the whole transaction
// while the database reports it is busy.
func (s *Store) Transact(ctx context.Context, fn func(uow student.UnitOfWork) error) error {
	return s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.WithTx(ctx, func(tx *sql.Tx) error {
			return fn(newUnitOfWork(tx))
		})
	})
}

// unitOfWork binds repositories to one transaction.
type unitOfWork struct {
	students    *StudentRepository
	enrollments *EnrollmentRepository
}

func newUnitOfWork(tx *sql.Tx) *unitOfWork {
	return &unitOfWork{
		students:    NewStudentRepository(tx),
		enrollments: NewEnrollmentRepository(tx),
	}
}

func (u *unitOfWork) Students() student.Repository {
	return u.students
}

func (u *unitOfWork) Enrollments() student.EnrollmentRepository {
	return u.enrollments
}
