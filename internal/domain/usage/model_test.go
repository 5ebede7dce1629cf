package usage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuotaTable(t *testing.T) {
	table, err := ParseQuotaTable(map[string]map[string]string{
		"free":    {"voice": "12.5", "text": "1000"},
		"premium": {"api": "unlimited"},
	})
	require.NoError(t, err)

	voice := table.Limit(TierFree, FeatureVoice)
	assert.False(t, voice.Unlimited)
	assert.True(t, voice.Value.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, table.Limit(TierFree, FeatureAPI).Value.Equal(decimal.NewFromInt(50)), "unset features keep defaults")
	assert.True(t, table.Limit(TierPremium, FeatureAPI).Unlimited)
	assert.True(t, table.Limit(Tier("enterprise"), FeatureText).Value.Equal(decimal.NewFromInt(1000)))

	_, err = ParseQuotaTable(map[string]map[string]string{"gold": {"voice": "1"}})
	assert.Error(t, err)
	_, err = ParseQuotaTable(map[string]map[string]string{"free": {"tokens": "1"}})
	assert.ErrorIs(t, err, ErrUnknownFeature)
	_, err = ParseQuotaTable(map[string]map[string]string{"free": {"voice": "-1.5"}})
	assert.Error(t, err)
}

func TestLimit_Allows(t *testing.T) {
	limit := LimitOf(decimal.NewFromInt(1000))
	assert.True(t, limit.Allows(decimal.NewFromInt(999)))
	assert.False(t, limit.Allows(decimal.NewFromInt(1000)))
	assert.False(t, limit.Allows(decimal.NewFromInt(1004)))
	assert.True(t, UnlimitedLimit().Allows(decimal.New(1, 30)))
}

func TestIncrementRequest_Permits(t *testing.T) {
	observed := decimal.NewFromInt(999)
	req := IncrementRequest{Amount: decimal.NewFromInt(5), Limit: LimitOf(decimal.NewFromInt(1000)), Observed: &observed}

	assert.True(t, req.Permits(decimal.NewFromInt(999)), "pre-check still current may cross the limit")
	assert.False(t, req.Permits(decimal.NewFromInt(998)), "stale view must fit in the remainder")
	assert.True(t, req.Permits(decimal.NewFromInt(995)))
	assert.False(t, req.Permits(decimal.NewFromInt(1000)))

	req.Observed = nil
	assert.False(t, req.Permits(decimal.NewFromInt(999)))

	req.Limit = UnlimitedLimit()
	assert.True(t, req.Permits(decimal.New(1, 20)))
}

func TestMetrics_ForPeriod(t *testing.T) {
	reset := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := Metrics{APICallsUsed: decimal.NewFromInt(7), Period: "2025-01", LastResetAt: reset}

	assert.Equal(t, m, m.ForPeriod("2025-01"))
	stale := m.ForPeriod("2025-02")
	assert.True(t, stale.APICallsUsed.IsZero())
	assert.Equal(t, "2025-02", stale.Period)
	assert.True(t, m.APICallsUsed.Equal(decimal.NewFromInt(7)))
}

func TestAccount_EffectiveTier(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.Equal(t, TierFree, (&Account{Tier: TierFree, SubscriptionExpiresAt: &future}).EffectiveTier(now))
	assert.Equal(t, TierPremium, (&Account{Tier: TierPremium, SubscriptionExpiresAt: &future}).EffectiveTier(now))
	assert.Equal(t, TierFree, (&Account{Tier: TierPremium, SubscriptionExpiresAt: &past}).EffectiveTier(now))
	assert.Equal(t, TierFree, (&Account{Tier: TierPremium}).EffectiveTier(now))
	var nilAccount *Account
	assert.Equal(t, TierFree, nilAccount.EffectiveTier(now))
}

func TestPeriodOf(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	assert.Equal(t, "2025-02", PeriodOf(time.Date(2025, 1, 31, 22, 0, 0, 0, loc)))
}
