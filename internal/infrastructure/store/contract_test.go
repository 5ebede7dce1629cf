package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/sense-api/internal/domain/usage"
)

var (
	march = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	april = time.Date(2025, time.April, 1, 0, 5, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func increment(principal string, feature usage.Feature, amount, limit string, observed *decimal.Decimal, now time.Time) usage.IncrementRequest {
	l := usage.UnlimitedLimit()
	if limit != "" {
		l = usage.LimitOf(dec(limit))
	}
	return usage.IncrementRequest{
		PrincipalID: principal,
		Feature:     feature,
		Amount:      dec(amount),
		Limit:       l,
		Observed:    observed,
		Period:      usage.PeriodOf(now),
		Now:         now,
	}
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// runStoreContract exercises the usage.Store semantics every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) usage.Store) {
	t.Run("EnsureAccountIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first, err := s.EnsureAccount(ctx, "user-1", march)
		require.NoError(t, err)
		second, err := s.EnsureAccount(ctx, "user-1", april)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, usage.TierFree, second.Tier)
		assert.Equal(t, "2025-03", second.Usage.Period)
		assert.True(t, second.Usage.APICallsUsed.IsZero())
	})

	t.Run("UnknownPrincipal", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetAccount(ctx, "ghost")
		assert.ErrorIs(t, err, usage.ErrAccountNotFound)

		_, err = s.Increment(ctx, increment("ghost", usage.FeatureAPI, "1", "50", nil, march))
		assert.ErrorIs(t, err, usage.ErrAccountNotFound)

		_, err = s.SetSubscription(ctx, "ghost", usage.TierFree, nil, march)
		assert.ErrorIs(t, err, usage.ErrAccountNotFound)
	})

	t.Run("CommitRule", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.EnsureAccount(ctx, "user-1", march)
		require.NoError(t, err)

		account, err := s.Increment(ctx, increment("user-1", usage.FeatureText, "999", "1000", ptr(decimal.Zero), march))
		require.NoError(t, err)
		assert.True(t, account.Usage.TextCharactersUsed.Equal(dec("999")))

		// A stale snapshot must fit in the remainder.
		_, err = s.Increment(ctx, increment("user-1", usage.FeatureText, "5", "1000", ptr(dec("990")), march))
		assert.ErrorIs(t, err, usage.ErrQuotaExceeded)

		// A current snapshot may finish the unit of work across the limit.
		account, err = s.Increment(ctx, increment("user-1", usage.FeatureText, "5", "1000", ptr(dec("999")), march))
		require.NoError(t, err)
		assert.True(t, account.Usage.TextCharactersUsed.Equal(dec("1004")), "got %s", account.Usage.TextCharactersUsed)

		// At or past the limit nothing is admitted.
		_, err = s.Increment(ctx, increment("user-1", usage.FeatureText, "1", "1000", ptr(dec("1004")), march))
		assert.ErrorIs(t, err, usage.ErrQuotaExceeded)

		account, err = s.GetAccount(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, account.Usage.TextCharactersUsed.Equal(dec("1004")))
	})

	t.Run("UnlimitedAndFractional", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.EnsureAccount(ctx, "user-1", march)
		require.NoError(t, err)

		for _, amount := range []string{"0.5", "0.25", "1.125"} {
			_, err := s.Increment(ctx, increment("user-1", usage.FeatureVoice, amount, "", nil, march))
			require.NoError(t, err)
		}
		account, err := s.GetAccount(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, account.Usage.VoiceMinutesUsed.Equal(dec("1.875")), "got %s", account.Usage.VoiceMinutesUsed)
		assert.True(t, account.Usage.APICallsUsed.IsZero())
	})

	t.Run("PeriodResetAppliedOnce", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.EnsureAccount(ctx, "user-1", march)
		require.NoError(t, err)
		_, err = s.Increment(ctx, increment("user-1", usage.FeatureAPI, "50", "50", ptr(decimal.Zero), march))
		require.NoError(t, err)

		account, err := s.Increment(ctx, increment("user-1", usage.FeatureAPI, "1", "50", nil, april))
		require.NoError(t, err)
		assert.Equal(t, "2025-04", account.Usage.Period)
		assert.True(t, account.Usage.APICallsUsed.Equal(dec("1")), "got %s", account.Usage.APICallsUsed)

		account, err = s.Increment(ctx, increment("user-1", usage.FeatureAPI, "1", "50", nil, april.Add(time.Hour)))
		require.NoError(t, err)
		assert.True(t, account.Usage.APICallsUsed.Equal(dec("2")), "a second request in the period must not reset again")
	})

	t.Run("RejectedIncrementKeepsReset", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.EnsureAccount(ctx, "user-1", march)
		require.NoError(t, err)
		_, err = s.Increment(ctx, increment("user-1", usage.FeatureVoice, "8", "10", nil, march))
		require.NoError(t, err)

		_, err = s.Increment(ctx, increment("user-1", usage.FeatureVoice, "11", "10", nil, april))
		assert.ErrorIs(t, err, usage.ErrQuotaExceeded)

		account, err := s.GetAccount(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "2025-04", account.Usage.Period)
		assert.True(t, account.Usage.VoiceMinutesUsed.IsZero())
	})

	t.Run("SetSubscription", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.EnsureAccount(ctx, "user-1", march)
		require.NoError(t, err)

		expires := march.AddDate(0, 1, 0)
		account, err := s.SetSubscription(ctx, "user-1", usage.TierPremium, &expires, march)
		require.NoError(t, err)
		assert.Equal(t, usage.TierPremium, account.Tier)
		require.NotNil(t, account.SubscriptionExpiresAt)
		assert.True(t, account.SubscriptionExpiresAt.Equal(expires))

		account, err = s.SetSubscription(ctx, "user-1", usage.TierFree, nil, march)
		require.NoError(t, err)
		assert.Equal(t, usage.TierFree, account.Tier)
		assert.Nil(t, account.SubscriptionExpiresAt)
	})

	t.Run("ResetStale", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, id := range []string{"a", "b"} {
			_, err := s.EnsureAccount(ctx, id, march)
			require.NoError(t, err)
			_, err = s.Increment(ctx, increment(id, usage.FeatureAPI, "3", "", nil, march))
			require.NoError(t, err)
		}
		_, err := s.EnsureAccount(ctx, "c", april)
		require.NoError(t, err)

		n, err := s.ResetStale(ctx, "2025-04", april)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = s.ResetStale(ctx, "2025-04", april)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		account, err := s.GetAccount(ctx, "a")
		require.NoError(t, err)
		assert.True(t, account.Usage.APICallsUsed.IsZero())
		assert.Equal(t, "2025-04", account.Usage.Period)
	})

	t.Run("ConcurrentIncrementsRespectLimit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.EnsureAccount(ctx, "user-1", march)
		require.NoError(t, err)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Increment(ctx, increment("user-1", usage.FeatureAPI, "1", "10", nil, march))
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, usage.ErrQuotaExceeded)
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, accepted)
		account, err := s.GetAccount(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, account.Usage.APICallsUsed.Equal(dec("10")), "got %s", account.Usage.APICallsUsed)
	})
}
