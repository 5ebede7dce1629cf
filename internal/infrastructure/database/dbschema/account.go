package dbschema

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/janhq/sense-api/internal/domain/usage"
)

// counterScale matches the numeric(20,4) counter columns.
const counterScale = 4

// UsageAccount is the persisted account with its current-period counters.
type UsageAccount struct {
	ID                    string `gorm:"type:varchar(40);primaryKey"`
	PrincipalID           string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Tier                  string `gorm:"type:varchar(16);not null;default:free"`
	SubscriptionExpiresAt *time.Time
	VoiceMinutesUsed      decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	TextCharactersUsed    decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	APICallsUsed          decimal.Decimal `gorm:"column:api_calls_used;type:numeric(20,4);not null;default:0"`
	Period                string          `gorm:"type:varchar(7);not null;index"`
	LastResetAt           time.Time       `gorm:"not null"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (UsageAccount) TableName() string {
	return "usage_accounts"
}

// UsageEvent is one committed increment.
type UsageEvent struct {
	ID          string          `gorm:"type:varchar(40);primaryKey"`
	AccountID   string          `gorm:"type:varchar(40);not null"`
	PrincipalID string          `gorm:"type:varchar(255);not null;index:idx_usage_events_principal_period"`
	Feature     string          `gorm:"type:varchar(16);not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Period      string          `gorm:"type:varchar(7);not null;index:idx_usage_events_principal_period"`
	CreatedAt   time.Time
}

func (UsageEvent) TableName() string {
	return "usage_events"
}

// Models lists the schema types, for AutoMigrate in tests.
func Models() []any {
	return []any{&UsageAccount{}, &UsageEvent{}}
}

// NewUsageAccount builds a fresh free-tier row.
func NewUsageAccount(principalID string, now time.Time) *UsageAccount {
	now = now.UTC()
	return &UsageAccount{
		ID:                 usage.NewAccountID(),
		PrincipalID:        principalID,
		Tier:               string(usage.TierFree),
		VoiceMinutesUsed:   decimal.Zero,
		TextCharactersUsed: decimal.Zero,
		APICallsUsed:       decimal.Zero,
		Period:             usage.PeriodOf(now),
		LastResetAt:        now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// EtoD converts the row to the domain account.
func (a *UsageAccount) EtoD() *usage.Account {
	if a == nil {
		return nil
	}
	tier, err := usage.ParseTier(a.Tier)
	if err != nil {
		tier = usage.TierFree
	}
	var expires *time.Time
	if a.SubscriptionExpiresAt != nil {
		t := a.SubscriptionExpiresAt.UTC()
		expires = &t
	}
	return &usage.Account{
		ID:                    a.ID,
		PrincipalID:           a.PrincipalID,
		Tier:                  tier,
		SubscriptionExpiresAt: expires,
		Usage: usage.Metrics{
			VoiceMinutesUsed:   a.VoiceMinutesUsed.Round(counterScale),
			TextCharactersUsed: a.TextCharactersUsed.Round(counterScale),
			APICallsUsed:       a.APICallsUsed.Round(counterScale),
			Period:             a.Period,
			LastResetAt:        a.LastResetAt.UTC(),
		},
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

// CounterColumn maps a feature to its counter column.
func CounterColumn(feature usage.Feature) (string, bool) {
	switch feature {
	case usage.FeatureVoice:
		return "voice_minutes_used", true
	case usage.FeatureText:
		return "text_characters_used", true
	case usage.FeatureAPI:
		return "api_calls_used", true
	default:
		return "", false
	}
}
