package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Observer receives meter events for metrics.
type Observer interface {
	UsageRecorded(feature Feature, tier Tier, amount decimal.Decimal)
	QuotaRejected(feature Feature, tier Tier, stage string)
}

type nopObserver struct{}

func (nopObserver) UsageRecorded(Feature, Tier, decimal.Decimal) {}
func (nopObserver) QuotaRejected(Feature, Tier, string)          {}

// Meter enforces per-tier quotas and records consumption.
type Meter struct {
	store    Store
	quotas   QuotaTable
	observer Observer
	now      func() time.Time
	log      zerolog.Logger
}

// MeterOption configures a Meter.
type MeterOption func(*Meter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MeterOption {
	return func(m *Meter) {
		m.now = now
	}
}

// WithObserver sets the metrics observer.
func WithObserver(observer Observer) MeterOption {
	return func(m *Meter) {
		if observer != nil {
			m.observer = observer
		}
	}
}

// NewMeter creates a usage meter over store.
func NewMeter(store Store, quotas QuotaTable, log zerolog.Logger, opts ...MeterOption) *Meter {
	if quotas == nil {
		quotas = DefaultQuotaTable()
	}
	m := &Meter{
		store:    store,
		quotas:   quotas,
		observer: nopObserver{},
		now:      time.Now,
		log:      log.With().Str("component", "usage-meter").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Limit returns the configured limit for a tier and feature.
func (m *Meter) Limit(tier Tier, feature Feature) Limit {
	return m.quotas.Limit(tier, feature)
}

// CheckQuota reports whether the principal's current usage of feature is
// below its tier limit. Counters from an earlier period read as zero.
func (m *Meter) CheckQuota(ctx context.Context, principal Principal, feature Feature) (bool, error) {
	if _, err := ParseFeature(string(feature)); err != nil {
		return false, err
	}
	limit := m.quotas.Limit(principal.Tier, feature)
	if limit.Unlimited {
		return true, nil
	}

	current, err := m.currentUsage(ctx, principal.ID)
	if err != nil {
		return false, err
	}
	if limit.Allows(current.Get(feature)) {
		return true, nil
	}

	m.observer.QuotaRejected(feature, principal.Tier, "check")
	m.log.Debug().
		Str("feature", string(feature)).
		Str("tier", string(principal.Tier)).
		Str("used", current.Get(feature).String()).
		Str("limit", limit.String()).
		Msg("quota check rejected")
	return false, nil
}

// RecordUsage commits amount against the principal's feature counter. The
// quota is re-validated by the store at commit time; ErrQuotaExceeded is
// returned when the commit is not permitted.
func (m *Meter) RecordUsage(ctx context.Context, principal Principal, feature Feature, amount decimal.Decimal) (*Metrics, error) {
	if _, err := ParseFeature(string(feature)); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}
	if principal.ID == "" {
		return nil, errors.New("usage: principal id is required")
	}

	now := m.now().UTC()
	period := PeriodOf(now)
	req := IncrementRequest{
		PrincipalID: principal.ID,
		Feature:     feature,
		Amount:      amount,
		Limit:       m.quotas.Limit(principal.Tier, feature),
		Period:      period,
		Now:         now,
	}
	if principal.Usage.Period != "" {
		observed := principal.Usage.ForPeriod(period).Get(feature)
		req.Observed = &observed
	}

	eventID := NewEventID()
	account, err := m.store.Increment(ctx, req)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			m.observer.QuotaRejected(feature, principal.Tier, "commit")
			m.log.Warn().
				Str("event_id", eventID).
				Str("feature", string(feature)).
				Str("tier", string(principal.Tier)).
				Str("amount", amount.String()).
				Str("limit", req.Limit.String()).
				Msg("usage commit rejected")
		}
		return nil, err
	}

	m.observer.UsageRecorded(feature, principal.Tier, amount)
	m.log.Debug().
		Str("event_id", eventID).
		Str("feature", string(feature)).
		Str("amount", amount.String()).
		Str("total", account.Usage.Get(feature).String()).
		Str("period", account.Usage.Period).
		Msg("usage recorded")

	usage := account.Usage
	return &usage, nil
}

// FeatureReport is the state of one feature in a Report.
type FeatureReport struct {
	Feature   Feature          `json:"feature"`
	Unit      string           `json:"unit"`
	Used      decimal.Decimal  `json:"used"`
	Limit     string           `json:"limit"`
	Unlimited bool             `json:"unlimited"`
	Remaining *decimal.Decimal `json:"remaining,omitempty"`
}

// Report summarises a principal's usage in the current period.
type Report struct {
	PrincipalID string          `json:"principalId"`
	Tier        Tier            `json:"tier"`
	Period      string          `json:"period"`
	LastResetAt time.Time       `json:"lastResetAt"`
	Features    []FeatureReport `json:"features"`
}

// Report returns current usage, limits and remaining allowance.
func (m *Meter) Report(ctx context.Context, principal Principal) (*Report, error) {
	current, err := m.currentUsage(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		PrincipalID: principal.ID,
		Tier:        principal.Tier,
		Period:      current.Period,
		LastResetAt: current.LastResetAt,
		Features:    make([]FeatureReport, 0, len(Features)),
	}
	for _, feature := range Features {
		limit := m.quotas.Limit(principal.Tier, feature)
		used := current.Get(feature)
		report.Features = append(report.Features, FeatureReport{
			Feature:   feature,
			Unit:      feature.Unit(),
			Used:      used,
			Limit:     limit.String(),
			Unlimited: limit.Unlimited,
			Remaining: limit.Remaining(used),
		})
	}
	return report, nil
}

func (m *Meter) currentUsage(ctx context.Context, principalID string) (Metrics, error) {
	period := PeriodOf(m.now())
	account, err := m.store.GetAccount(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Metrics{Period: period}, nil
		}
		return Metrics{}, err
	}
	return account.Usage.ForPeriod(period), nil
}
