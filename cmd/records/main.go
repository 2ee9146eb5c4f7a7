// Package main - точка входа CLI для учёта студентов.
//
// Конфигурация читается из records.yaml, переменных RECORDS_* и флагов,
// затем открывается хранилище (SQLite или PostgreSQL) и все команды
// работают через manager.Manager.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alem-hub/student-records/config"
	"github.com/alem-hub/student-records/internal/application/manager"
	"github.com/alem-hub/student-records/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/student-records/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/student-records/internal/infrastructure/persistence/sqlite"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRING
// ══════════════════════════════════════════════════════════════════════════════

// app держит зависимости, общие для всех команд.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	manager *manager.Manager
	locker  *redis.Locker
}

// newApp собирает хранилище, блокировку и менеджер по конфигурации.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := setupLogger(cfg)

	// ─────────────────────────────────────────────────────────────────────────
	// Store
	// ─────────────────────────────────────────────────────────────────────────

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Bootstrap lock (optional)
	// ─────────────────────────────────────────────────────────────────────────

	a := &app{cfg: cfg, logger: logger}
	opts := manager.Options{Logger: logger}

	if cfg.Lock.Enabled {
		lockCfg := redis.DefaultConfig()
		lockCfg.Addr = cfg.Lock.Addr
		lockCfg.Password = cfg.Lock.Password
		lockCfg.DB = cfg.Lock.DB
		lockCfg.LockTTL = cfg.Lock.TTL
		lockCfg.WaitTimeout = cfg.Lock.WaitTimeout

		locker, err := redis.NewLocker(lockCfg, logger)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.locker = locker
		opts.Locker = locker
	}

	a.manager = manager.New(store, opts)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (manager.Store, error) {
	db := cfg.Database

	switch db.Driver {
	case config.DriverPostgres:
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = db.DSN
		pgCfg.MaxConns = int32(db.MaxOpenConns)
		pgCfg.MinConns = int32(db.MinConns)
		pgCfg.MaxConnLifetime = db.ConnMaxLifetime

		store, err := postgres.Open(ctx, pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		logger.Debug("postgres store opened")
		return store, nil

	default:
		sqlCfg := sqlite.DefaultConfig()
		sqlCfg.Path = db.DSN
		sqlCfg.BusyTimeout = db.BusyTimeout
		sqlCfg.MaxOpenConns = db.MaxOpenConns
		sqlCfg.MaxIdleConns = db.MaxOpenConns
		sqlCfg.ConnMaxLifetime = db.ConnMaxLifetime

		store, err := sqlite.Open(ctx, sqlCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		logger.Debug("sqlite store opened", "path", db.DSN)
		return store, nil
	}
}

// Close освобождает хранилище и соединение с Redis.
func (a *app) Close() {
	if err := a.manager.Close(); err != nil {
		a.logger.Error("failed to close store", "error", err)
	}
	if a.locker != nil {
		if err := a.locker.Close(); err != nil {
			a.logger.Error("failed to close redis", "error", err)
		}
	}
}

// setupLogger настраивает slog: JSON в production, текст в development.
// Логи идут в stderr, stdout занят выводом команд.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Logging.Level),
	}

	if cfg.IsProduction() || strings.EqualFold(cfg.Logging.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	log := slog.New(handler).With("app", cfg.App.Name)
	slog.SetDefault(log)

	return log
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
