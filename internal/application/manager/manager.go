// Package manager is the single entry point for student records: CRUD,
// search, aggregates, course catalog maintenance and CSV exchange.
//
// The Manager is built once at startup and shared. Schema migration and
// catalog seeding run lazily on the first operation (or on an explicit
// Init) exactly once, even under concurrent first access.
package manager

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alem-hub/student-records/internal/domain/course"
	"github.com/alem-hub/student-records/internal/domain/shared"
	"github.com/alem-hub/student-records/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Store is a persistence backend (SQLite or PostgreSQL).
type Store interface {
	student.Transactor

	// Students returns a repository outside any transaction.
	Students() student.Repository

	// Courses returns the course catalog repository.
	Courses() course.Repository

	// Migrate creates or upgrades the schema.
	Migrate(ctx context.Context) error

	// Close releases the connection pool.
	Close() error
}

// Locker serializes bootstrap across processes sharing one database.
type Locker interface {
	WithLock(ctx context.Context, resource string, fn func(ctx context.Context) error) error
}

// BootstrapLockName is the resource locked while migrating and seeding.
const BootstrapLockName = "student-records:bootstrap"

// Options configures a Manager.
type Options struct {
	// Logger receives operational logs. Nil means slog.Default().
	Logger *slog.Logger

	// Locker, when set, guards bootstrap with a cross-process lock.
	Locker Locker
}

// ══════════════════════════════════════════════════════════════════════════════
// MANAGER
// ══════════════════════════════════════════════════════════════════════════════

// Manager coordinates the entity model with the store.
type Manager struct {
	store  Store
	locker Locker
	logger *slog.Logger

	initMu      sync.Mutex
	initialized atomic.Bool
}

// New creates a Manager. No I/O happens until the first operation.
func New(store Store, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:  store,
		locker: opts.Locker,
		logger: logger.With("component", "student_manager"),
	}
}

// Init migrates the schema and seeds the default catalog if it is empty.
// It is idempotent. A failed attempt is retried by the next call.
func (m *Manager) Init(ctx context.Context) error {
	if m.initialized.Load() {
		return nil
	}

	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.initialized.Load() {
		return nil
	}

	ctx = context.WithoutCancel(ctx)

	var err error
	if m.locker != nil {
		err = m.locker.WithLock(ctx, BootstrapLockName, m.bootstrap)
	} else {
		err = m.bootstrap(ctx)
	}
	if err != nil {
		m.logger.Error("initialization failed", "error", err)
		return shared.WrapError("manager", "Init", shared.ErrPersistence, "failed to initialize store", err)
	}

	m.initialized.Store(true)
	return nil
}

func (m *Manager) bootstrap(ctx context.Context) error {
	if err := m.store.Migrate(ctx); err != nil {
		return err
	}

	seeded, err := m.store.Courses().SeedDefaults(ctx)
	if err != nil {
		return err
	}
	if seeded > 0 {
		m.logger.Info("seeded default course catalog", "courses", seeded)
	}

	m.logger.Debug("store initialized")
	return nil
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
