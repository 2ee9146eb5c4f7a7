// Package redis implements a Redis-backed distributed lock used to
// serialize schema bootstrap across processes sharing one database.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection and lock configuration.
type Config struct {
	// Addr is the Redis server address in "host:port" format.
	Addr string

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// LockTTL bounds how long a crashed holder can block other processes.
	LockTTL time.Duration

	// WaitTimeout is how long Acquire keeps polling for a held lock.
	WaitTimeout time.Duration

	// PollInterval is the delay between acquisition attempts.
	PollInterval time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		LockTTL:      TTLDistributedLock,
		WaitTimeout:  time.Minute,
		PollInterval: 100 * time.Millisecond,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS & KEYS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrLockConnection is returned when Redis connection fails.
	ErrLockConnection = errors.New("lock: connection failed")

	// ErrLockTimeout is returned when the lock stays held past WaitTimeout.
	ErrLockTimeout = errors.New("lock: timed out waiting for lock")
)

const (
	// PrefixLock is the prefix for distributed lock keys.
	PrefixLock = "lock:"

	// TTLDistributedLock is the default lock TTL.
	TTLDistributedLock = 30 * time.Second
)

// LockKey generates the key for a locked resource.
func LockKey(resource string) string {
	return PrefixLock + resource
}

// releaseScript deletes the key only if it still holds our token, so a
// holder whose TTL expired cannot release someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ══════════════════════════════════════════════════════════════════════════════
// LOCKER
// ══════════════════════════════════════════════════════════════════════════════

// Locker acquires named locks with SET NX.
type Locker struct {
	client *redis.Client
	config Config
	logger *slog.Logger
}

// NewLocker connects to Redis and verifies the connection.
func NewLocker(cfg Config, logger *slog.Logger) (*Locker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrLockConnection, err)
	}

	return NewLockerFromClient(client, cfg, logger), nil
}

// NewLockerFromClient wraps an existing client.
func NewLockerFromClient(client *redis.Client, cfg Config, logger *slog.Logger) *Locker {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaults.LockTTL
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = defaults.WaitTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}

	return &Locker{
		client: client,
		config: cfg,
		logger: logger.With("component", "redis_lock"),
	}
}

// Close closes the Redis connection.
func (l *Locker) Close() error {
	return l.client.Close()
}

// Acquire blocks until the lock on resource is held, WaitTimeout passes or
// ctx is done. The returned release func is safe to call more than once.
func (l *Locker) Acquire(ctx context.Context, resource string) (release func(), err error) {
	key := LockKey(resource)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.config.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(l.config.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.config.LockTTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			l.logger.Debug("lock acquired", "key", key)
			return l.releaser(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-ticker.C:
		}
	}
}

// WithLock runs fn while holding the lock on resource.
func (l *Locker) WithLock(ctx context.Context, resource string, fn func(ctx context.Context) error) error {
	release, err := l.Acquire(ctx, resource)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx)
}

func (l *Locker) releaser(key, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true

		ctx, cancel := context.WithTimeout(context.Background(), l.config.DialTimeout+time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock", "key", key, "error", err)
		}
	}
}
