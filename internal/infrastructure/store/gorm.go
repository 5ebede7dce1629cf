package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/infrastructure/database/dbschema"
)

// GormStore persists accounts in a SQL database. Increment runs the guarded
// reset and a conditional UPDATE in one transaction, so concurrent replicas
// cannot both pass the quota re-check. When read replicas are registered,
// GetAccount may lag; reads that follow a write go to the primary.
type GormStore struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB, log zerolog.Logger) *GormStore {
	return &GormStore{
		db:  db,
		log: log.With().Str("component", "usage-store").Str("backend", "sql").Logger(),
	}
}

func (s *GormStore) EnsureAccount(ctx context.Context, principalID string, now time.Time) (*usage.Account, error) {
	row := dbschema.NewUsageAccount(principalID, now)
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "principal_id"}}, DoNothing: true}).
		Create(row)
	if result.Error != nil {
		return nil, fmt.Errorf("ensure account: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.log.Debug().Str("account_id", row.ID).Msg("account created")
	}
	return s.primaryAccount(ctx, principalID)
}

func (s *GormStore) GetAccount(ctx context.Context, principalID string) (*usage.Account, error) {
	row, err := findAccount(s.db.WithContext(ctx), principalID)
	if err != nil {
		return nil, err
	}
	return row.EtoD(), nil
}

func (s *GormStore) Increment(ctx context.Context, req usage.IncrementRequest) (*usage.Account, error) {
	column, ok := dbschema.CounterColumn(req.Feature)
	if !ok {
		return nil, usage.ErrUnknownFeature
	}
	now := req.Now.UTC()

	var (
		updated  *dbschema.UsageAccount
		rejected bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resetStale(tx.Where("principal_id = ?", req.PrincipalID), req.Period, now); err != nil {
			return err
		}

		query := tx.Model(&dbschema.UsageAccount{}).Where("principal_id = ?", req.PrincipalID)
		if !req.Limit.Unlimited {
			limit := req.Limit.Value
			if req.Observed != nil {
				query = query.Where(
					fmt.Sprintf("%[1]s < CAST(? AS NUMERIC) AND (%[1]s + CAST(? AS NUMERIC) <= CAST(? AS NUMERIC) OR %[1]s = CAST(? AS NUMERIC))", column),
					limit, req.Amount, limit, *req.Observed,
				)
			} else {
				query = query.Where(
					fmt.Sprintf("%[1]s < CAST(? AS NUMERIC) AND %[1]s + CAST(? AS NUMERIC) <= CAST(? AS NUMERIC)", column),
					limit, req.Amount, limit,
				)
			}
		}
		result := query.Updates(map[string]any{
			column:       gorm.Expr(column+" + CAST(? AS NUMERIC)", req.Amount),
			"updated_at": now,
		})
		if result.Error != nil {
			return fmt.Errorf("increment %s: %w", column, result.Error)
		}

		row, err := findAccount(tx, req.PrincipalID)
		if err != nil {
			return err
		}
		if result.RowsAffected == 0 {
			// Commit any reset applied above; the increment itself is refused.
			rejected = true
			return nil
		}

		event := &dbschema.UsageEvent{
			ID:          usage.NewEventID(),
			AccountID:   row.ID,
			PrincipalID: req.PrincipalID,
			Feature:     string(req.Feature),
			Amount:      req.Amount,
			Period:      req.Period,
			CreatedAt:   now,
		}
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("record usage event: %w", err)
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejected {
		return nil, usage.ErrQuotaExceeded
	}
	return updated.EtoD(), nil
}

func (s *GormStore) SetSubscription(ctx context.Context, principalID string, tier usage.Tier, expiresAt *time.Time, now time.Time) (*usage.Account, error) {
	var expires any
	if expiresAt != nil {
		expires = expiresAt.UTC()
	}
	result := s.db.WithContext(ctx).
		Model(&dbschema.UsageAccount{}).
		Where("principal_id = ?", principalID).
		Updates(map[string]any{
			"tier":                    string(tier),
			"subscription_expires_at": expires,
			"updated_at":              now.UTC(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("set subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, usage.ErrAccountNotFound
	}
	return s.primaryAccount(ctx, principalID)
}

// primaryAccount reads from the primary so callers see their own write.
func (s *GormStore) primaryAccount(ctx context.Context, principalID string) (*usage.Account, error) {
	row, err := findAccount(s.db.WithContext(ctx).Clauses(dbresolver.Write), principalID)
	if err != nil {
		return nil, err
	}
	return row.EtoD(), nil
}

func (s *GormStore) ResetStale(ctx context.Context, period string, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&dbschema.UsageAccount{}).
		Where("period <> ?", period).
		Updates(resetColumns(period, now.UTC()))
	if result.Error != nil {
		return 0, fmt.Errorf("reset stale accounts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// resetStale zeroes the counters matched by scope when they belong to
// another period. The period guard makes it a no-op once applied.
func resetStale(scope *gorm.DB, period string, now time.Time) error {
	result := scope.Model(&dbschema.UsageAccount{}).
		Where("period <> ?", period).
		Updates(resetColumns(period, now))
	if result.Error != nil {
		return fmt.Errorf("reset period: %w", result.Error)
	}
	return nil
}

func resetColumns(period string, now time.Time) map[string]any {
	return map[string]any{
		"voice_minutes_used":   decimal.Zero,
		"text_characters_used": decimal.Zero,
		"api_calls_used":       decimal.Zero,
		"period":               period,
		"last_reset_at":        now,
		"updated_at":           now,
	}
}

func findAccount(db *gorm.DB, principalID string) (*dbschema.UsageAccount, error) {
	var row dbschema.UsageAccount
	if err := db.Where("principal_id = ?", principalID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	return &row, nil
}
