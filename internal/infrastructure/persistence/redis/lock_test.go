package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, cfg Config) (*Locker, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	locker := NewLockerFromClient(client, cfg, nil)
	t.Cleanup(func() { _ = locker.Close() })

	return locker, server
}

func TestLocker_AcquireAndRelease(t *testing.T) {
	locker, server := newTestLocker(t, DefaultConfig())
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "migrate")
	require.NoError(t, err)
	assert.True(t, server.Exists(LockKey("migrate")))

	release()
	release()
	assert.False(t, server.Exists(LockKey("migrate")))
}

func TestLocker_TimesOutWhileHeld(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WaitTimeout = 50 * time.Millisecond
	cfg.PollInterval = 5 * time.Millisecond
	locker, _ := newTestLocker(t, cfg)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "migrate")
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(ctx, "migrate")
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestLocker_ReleaseKeepsForeignLock(t *testing.T) {
	locker, server := newTestLocker(t, DefaultConfig())

	release, err := locker.Acquire(context.Background(), "migrate")
	require.NoError(t, err)

	// Another process took over after our TTL expired.
	require.NoError(t, server.Set(LockKey("migrate"), "someone-else"))
	release()

	got, err := server.Get(LockKey("migrate"))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestLocker_WithLockSerializes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollInterval = time.Millisecond
	locker, _ := newTestLocker(t, cfg)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), "migrate", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					old := atomic.LoadInt32(&maxInside)
					if n <= old || atomic.CompareAndSwapInt32(&maxInside, old, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}
