package usage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrQuotaExceeded is returned when a principal has no allowance left for a feature.
	ErrQuotaExceeded = errors.New("usage quota exceeded")
	// ErrAccountNotFound is returned by stores for unknown principals.
	ErrAccountNotFound = errors.New("usage account not found")
	// ErrInvalidAmount is returned for non-positive usage amounts.
	ErrInvalidAmount = errors.New("usage amount must be positive")
	// ErrUnknownFeature is returned for feature keys outside the quota table.
	ErrUnknownFeature = errors.New("unknown usage feature")
)

// Tier is a subscription tier.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// ParseTier validates a tier name.
func ParseTier(raw string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierFree:
		return TierFree, nil
	case TierPremium:
		return TierPremium, nil
	default:
		return "", fmt.Errorf("unknown subscription tier %q", raw)
	}
}

// Feature is a metered usage counter.
type Feature string

const (
	FeatureVoice Feature = "voice"
	FeatureText  Feature = "text"
	FeatureAPI   Feature = "api"
)

// Features lists every metered feature.
var Features = []Feature{FeatureVoice, FeatureText, FeatureAPI}

// ParseFeature validates a feature key.
func ParseFeature(raw string) (Feature, error) {
	feature := Feature(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Features {
		if feature == known {
			return feature, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFeature, raw)
}

// Unit is the unit a feature is counted in.
func (f Feature) Unit() string {
	switch f {
	case FeatureVoice:
		return "minutes"
	case FeatureText:
		return "characters"
	case FeatureAPI:
		return "calls"
	default:
		return ""
	}
}

// Limit is a per-feature allowance. Unlimited is a flag rather than a large
// number so comparisons never depend on a numeric maximum.
type Limit struct {
	Value     decimal.Decimal
	Unlimited bool
}

// UnlimitedLimit returns the premium sentinel.
func UnlimitedLimit() Limit {
	return Limit{Unlimited: true}
}

// LimitOf returns a finite limit.
func LimitOf(value decimal.Decimal) Limit {
	return Limit{Value: value}
}

// Allows reports whether current usage is still below the limit.
func (l Limit) Allows(current decimal.Decimal) bool {
	return l.Unlimited || current.LessThan(l.Value)
}

// Remaining returns the allowance left, or nil for unlimited.
func (l Limit) Remaining(current decimal.Decimal) *decimal.Decimal {
	if l.Unlimited {
		return nil
	}
	remaining := l.Value.Sub(current)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return &remaining
}

func (l Limit) String() string {
	if l.Unlimited {
		return "unlimited"
	}
	return l.Value.String()
}

// ParseLimit parses "unlimited" or a non-negative decimal.
func ParseLimit(raw string) (Limit, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "unlimited" || trimmed == "-1" {
		return UnlimitedLimit(), nil
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Limit{}, fmt.Errorf("invalid quota limit %q: %w", raw, err)
	}
	if value.IsNegative() {
		return Limit{}, fmt.Errorf("invalid quota limit %q: must not be negative", raw)
	}
	return LimitOf(value), nil
}

// QuotaTable maps tier and feature to a limit. It is built once at startup
// and only read afterwards.
type QuotaTable map[Tier]map[Feature]Limit

// DefaultQuotaTable returns the built-in allowances.
func DefaultQuotaTable() QuotaTable {
	return QuotaTable{
		TierFree: {
			FeatureVoice: LimitOf(decimal.NewFromInt(10)),
			FeatureText:  LimitOf(decimal.NewFromInt(1000)),
			FeatureAPI:   LimitOf(decimal.NewFromInt(50)),
		},
		TierPremium: {
			FeatureVoice: UnlimitedLimit(),
			FeatureText:  UnlimitedLimit(),
			FeatureAPI:   UnlimitedLimit(),
		},
	}
}

// ParseQuotaTable overlays raw tier/feature limits on the defaults.
func ParseQuotaTable(raw map[string]map[string]string) (QuotaTable, error) {
	table := DefaultQuotaTable()
	for rawTier, limits := range raw {
		tier, err := ParseTier(rawTier)
		if err != nil {
			return nil, err
		}
		for rawFeature, rawLimit := range limits {
			feature, err := ParseFeature(rawFeature)
			if err != nil {
				return nil, fmt.Errorf("quotas.%s: %w", tier, err)
			}
			limit, err := ParseLimit(rawLimit)
			if err != nil {
				return nil, fmt.Errorf("quotas.%s.%s: %w", tier, feature, err)
			}
			table[tier][feature] = limit
		}
	}
	return table, nil
}

// Limit returns the limit for a tier and feature. Unknown tiers fall back to
// the free allowance; unknown features have a zero allowance.
func (q QuotaTable) Limit(tier Tier, feature Feature) Limit {
	limits, ok := q[tier]
	if !ok {
		limits = q[TierFree]
	}
	if limit, ok := limits[feature]; ok {
		return limit
	}
	return LimitOf(decimal.Zero)
}

// Metrics holds the usage counters for one billing period.
type Metrics struct {
	VoiceMinutesUsed   decimal.Decimal `json:"voiceMinutesUsed"`
	TextCharactersUsed decimal.Decimal `json:"textCharactersUsed"`
	APICallsUsed       decimal.Decimal `json:"apiCallsUsed"`
	Period             string          `json:"period"`
	LastResetAt        time.Time       `json:"lastResetAt"`
}

// Get returns the counter for a feature.
func (m Metrics) Get(feature Feature) decimal.Decimal {
	switch feature {
	case FeatureVoice:
		return m.VoiceMinutesUsed
	case FeatureText:
		return m.TextCharactersUsed
	case FeatureAPI:
		return m.APICallsUsed
	default:
		return decimal.Zero
	}
}

// Add returns a copy with amount added to the feature counter.
func (m Metrics) Add(feature Feature, amount decimal.Decimal) Metrics {
	switch feature {
	case FeatureVoice:
		m.VoiceMinutesUsed = m.VoiceMinutesUsed.Add(amount)
	case FeatureText:
		m.TextCharactersUsed = m.TextCharactersUsed.Add(amount)
	case FeatureAPI:
		m.APICallsUsed = m.APICallsUsed.Add(amount)
	}
	return m
}

// IsStale reports whether the counters belong to an earlier period.
func (m Metrics) IsStale(period string) bool {
	return m.Period != period
}

// ForPeriod returns the counters as they logically stand in period: stale
// counters read as zero. The receiver is not modified.
func (m Metrics) ForPeriod(period string) Metrics {
	if !m.IsStale(period) {
		return m
	}
	return Metrics{Period: period, LastResetAt: m.LastResetAt}
}

// PeriodOf returns the billing period key (calendar month, UTC).
func PeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Account is the persisted per-principal record.
type Account struct {
	ID                    string     `json:"id"`
	PrincipalID           string     `json:"principalId"`
	Tier                  Tier       `json:"tier"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt,omitempty"`
	Usage                 Metrics    `json:"usage"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// EffectiveTier is premium only while the subscription has not expired.
func (a *Account) EffectiveTier(now time.Time) Tier {
	if a == nil || a.Tier != TierPremium {
		return TierFree
	}
	if a.SubscriptionExpiresAt == nil || !a.SubscriptionExpiresAt.After(now) {
		return TierFree
	}
	return TierPremium
}

// Principal is the authenticated caller as seen by the meter. Usage is the
// snapshot taken when the principal was resolved for the current request.
type Principal struct {
	ID    string
	Tier  Tier
	Usage Metrics
}

// IncrementRequest is the input of the store's atomic increment.
//
// The store applies, in one atomic unit: the period reset when the stored
// period differs from Period, then the quota re-check, then the increment.
// With a finite Limit the increment is permitted when the current value is
// below the limit and either the new value stays within the limit or the
// current value still equals Observed (nothing else committed since the
// caller's pre-check). A caller whose pre-check is still current may
// therefore finish a unit of work that crosses the limit; a caller that lost
// a race must fit in what is left.
type IncrementRequest struct {
	PrincipalID string
	Feature     Feature
	Amount      decimal.Decimal
	Limit       Limit
	Observed    *decimal.Decimal
	Period      string
	Now         time.Time
}

// Permits evaluates the commit rule against the current (post-reset) value.
func (r IncrementRequest) Permits(current decimal.Decimal) bool {
	if r.Limit.Unlimited {
		return true
	}
	if !current.LessThan(r.Limit.Value) {
		return false
	}
	if current.Add(r.Amount).LessThanOrEqual(r.Limit.Value) {
		return true
	}
	return r.Observed != nil && current.Equal(*r.Observed)
}
