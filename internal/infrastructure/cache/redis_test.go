package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/sense-api/internal/infrastructure/cache"
)

func newLocker(t *testing.T) (*miniredis.Miniredis, *cache.Locker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := cache.NewRedisClient(context.Background(), "redis://"+mr.Addr(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.NewLocker(client, zerolog.Nop())
}

func TestNewRedisClient_RejectsEmptyAddress(t *testing.T) {
	_, err := cache.NewRedisClient(context.Background(), " , ", zerolog.Nop())
	require.Error(t, err)
}

func TestLocker_ExtendKeepsLockAlive(t *testing.T) {
	mr, locker := newLocker(t)
	const name = "test:lock:sweep"

	err := locker.WithLock(context.Background(), name, time.Second, func(ctx context.Context, lease *cache.Lease) error {
		mr.FastForward(800 * time.Millisecond)
		require.NoError(t, lease.Extend(ctx))

		mr.FastForward(800 * time.Millisecond)
		assert.True(t, mr.Exists(name), "extended lock outlives its first TTL")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(name), "lock released on return")
}

func TestLocker_ExtendFailsAfterExpiry(t *testing.T) {
	mr, locker := newLocker(t)

	err := locker.WithLock(context.Background(), "test:lock:expired", time.Second, func(ctx context.Context, lease *cache.Lease) error {
		mr.FastForward(2 * time.Second)
		return lease.Extend(ctx)
	})
	require.Error(t, err)
}

func TestLocker_SecondHolderGivesUp(t *testing.T) {
	_, locker := newLocker(t)
	const name = "test:lock:busy"

	err := locker.WithLock(context.Background(), name, time.Minute, func(ctx context.Context, _ *cache.Lease) error {
		return locker.WithLock(ctx, name, time.Minute, func(context.Context, *cache.Lease) error {
			t.Fatal("lock acquired twice")
			return nil
		})
	})
	require.Error(t, err)
}
