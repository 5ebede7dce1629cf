package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/infrastructure/cache"
	"github.com/janhq/sense-api/internal/infrastructure/store"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client, err := cache.NewRedisClient(context.Background(), "redis://"+mr.Addr(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *store.RedisStore) {
	mr, client := setupMiniredis(t)
	return mr, store.NewRedisStore(client, cache.NewLocker(client, zerolog.Nop()), "test:usage:", zerolog.Nop())
}

func TestRedisStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) usage.Store {
		_, s := newRedisStore(t)
		return s
	})
}

func TestRedisStore_AppendsUsageEvents(t *testing.T) {
	mr, s := newRedisStore(t)
	ctx := context.Background()

	_, err := s.EnsureAccount(ctx, "user-1", march)
	require.NoError(t, err)
	_, err = s.Increment(ctx, increment("user-1", usage.FeatureVoice, "0.5", "10", nil, march))
	require.NoError(t, err)
	_, err = s.Increment(ctx, increment("user-1", usage.FeatureVoice, "20", "10", nil, march))
	require.ErrorIs(t, err, usage.ErrQuotaExceeded)

	assert.True(t, mr.Exists("test:usage:account:user-1"))
	assert.Equal(t, "0.5", mr.HGet("test:usage:account:user-1", "voice_minutes_used"))

	stream, err := mr.Stream("test:usage:events:user-1")
	require.NoError(t, err)
	require.Len(t, stream, 1)
	assert.Contains(t, stream[0].Values, "voice")
}

func TestRedisStore_ResetStaleWaitsForLock(t *testing.T) {
	mr, s := newRedisStore(t)
	ctx := context.Background()

	_, err := s.EnsureAccount(ctx, "user-1", march)
	require.NoError(t, err)

	// Another replica holds the sweep lock.
	require.NoError(t, mr.Set("test:usage:lock:reset", "other-replica"))

	_, err = s.ResetStale(ctx, "2025-04", april)
	require.Error(t, err)

	account, err := s.GetAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "2025-03", account.Usage.Period)

	mr.Del("test:usage:lock:reset")
	n, err := s.ResetStale(ctx, "2025-04", april)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
