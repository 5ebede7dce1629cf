package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/infrastructure/cache"
)

const (
	maxTxRetries  = 64
	resetLockTTL  = time.Minute
	eventsMaxLen  = 10000
	fieldID       = "id"
	fieldTier     = "tier"
	fieldExpires  = "subscription_expires_at"
	fieldVoice    = "voice_minutes_used"
	fieldText     = "text_characters_used"
	fieldAPICalls = "api_calls_used"
	fieldPeriod   = "period"
	fieldReset    = "last_reset_at"
	fieldCreated  = "created_at"
	fieldUpdated  = "updated_at"
)

// RedisStore keeps one hash per account. Mutations run as WATCH/MULTI
// transactions and are retried when another writer touched the key first.
type RedisStore struct {
	client redis.UniversalClient
	locker *cache.Locker
	prefix string
	log    zerolog.Logger
}

func NewRedisStore(client redis.UniversalClient, locker *cache.Locker, prefix string, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		locker: locker,
		prefix: prefix,
		log:    log.With().Str("component", "usage-store").Str("backend", "redis").Logger(),
	}
}

func (s *RedisStore) accountKey(principalID string) string {
	return s.prefix + "account:" + principalID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "accounts"
}

func (s *RedisStore) eventsKey(principalID string) string {
	return s.prefix + "events:" + principalID
}

func (s *RedisStore) EnsureAccount(ctx context.Context, principalID string, now time.Time) (*usage.Account, error) {
	key := s.accountKey(principalID)
	var account *usage.Account
	err := s.transact(ctx, key, func(tx *redis.Tx) error {
		existing, err := loadAccount(ctx, tx, key, principalID)
		if err == nil {
			account = existing
			return nil
		}
		if !errors.Is(err, usage.ErrAccountNotFound) {
			return err
		}

		now = now.UTC()
		created := &usage.Account{
			ID:          usage.NewAccountID(),
			PrincipalID: principalID,
			Tier:        usage.TierFree,
			Usage:       usage.Metrics{Period: usage.PeriodOf(now), LastResetAt: now},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, accountFields(created))
			pipe.SAdd(ctx, s.indexKey(), principalID)
			return nil
		})
		if err != nil {
			return err
		}
		s.log.Debug().Str("account_id", created.ID).Msg("account created")
		account = created
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ensure account: %w", err)
	}
	return account, nil
}

func (s *RedisStore) GetAccount(ctx context.Context, principalID string) (*usage.Account, error) {
	return loadAccount(ctx, s.client, s.accountKey(principalID), principalID)
}

func (s *RedisStore) Increment(ctx context.Context, req usage.IncrementRequest) (*usage.Account, error) {
	if _, ok := counterField(req.Feature); !ok {
		return nil, usage.ErrUnknownFeature
	}
	key := s.accountKey(req.PrincipalID)
	now := req.Now.UTC()

	var (
		updated  *usage.Account
		rejected bool
	)
	err := s.transact(ctx, key, func(tx *redis.Tx) error {
		rejected = false
		account, err := loadAccount(ctx, tx, key, req.PrincipalID)
		if err != nil {
			return err
		}

		metrics := account.Usage
		if metrics.IsStale(req.Period) {
			metrics = usage.Metrics{Period: req.Period, LastResetAt: now}
		}
		if !req.Permits(metrics.Get(req.Feature)) {
			rejected = true
			if metrics.Period == account.Usage.Period {
				return nil
			}
			account.Usage = metrics
			account.UpdatedAt = now
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, accountFields(account))
				return nil
			})
			return err
		}

		account.Usage = metrics.Add(req.Feature, req.Amount)
		account.UpdatedAt = now
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, accountFields(account))
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: s.eventsKey(req.PrincipalID),
				MaxLen: eventsMaxLen,
				Approx: true,
				Values: map[string]any{
					"id":      usage.NewEventID(),
					"feature": string(req.Feature),
					"amount":  req.Amount.String(),
					"period":  req.Period,
					"at":      now.Format(time.RFC3339Nano),
				},
			})
			return nil
		})
		if err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		if errors.Is(err, usage.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("increment usage: %w", err)
	}
	if rejected {
		return nil, usage.ErrQuotaExceeded
	}
	return updated, nil
}

func (s *RedisStore) SetSubscription(ctx context.Context, principalID string, tier usage.Tier, expiresAt *time.Time, now time.Time) (*usage.Account, error) {
	key := s.accountKey(principalID)
	var updated *usage.Account
	err := s.transact(ctx, key, func(tx *redis.Tx) error {
		account, err := loadAccount(ctx, tx, key, principalID)
		if err != nil {
			return err
		}
		account.Tier = tier
		account.SubscriptionExpiresAt = copyTime(expiresAt)
		if account.SubscriptionExpiresAt != nil {
			utc := account.SubscriptionExpiresAt.UTC()
			account.SubscriptionExpiresAt = &utc
		}
		account.UpdatedAt = now.UTC()
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, accountFields(account))
			return nil
		})
		if err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		if errors.Is(err, usage.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set subscription: %w", err)
	}
	return updated, nil
}

// ResetStale sweeps the account index under a cluster-wide lock, so only one
// replica runs the monthly job at a time. The lock is extended after every
// scanned page, so resetLockTTL bounds a single page rather than the sweep.
func (s *RedisStore) ResetStale(ctx context.Context, period string, now time.Time) (int64, error) {
	var reset int64
	err := s.locker.WithLock(ctx, s.prefix+"lock:reset", resetLockTTL, func(ctx context.Context, lease *cache.Lease) error {
		var cursor uint64
		for {
			principals, next, err := s.client.SScan(ctx, s.indexKey(), cursor, "", 500).Result()
			if err != nil {
				return fmt.Errorf("scan accounts: %w", err)
			}
			for _, principalID := range principals {
				changed, err := s.resetOne(ctx, principalID, period, now.UTC())
				if err != nil {
					return err
				}
				if changed {
					reset++
				}
			}
			if next == 0 {
				return nil
			}
			if err := lease.Extend(ctx); err != nil {
				return err
			}
			cursor = next
		}
	})
	if err != nil {
		return reset, fmt.Errorf("reset stale accounts: %w", err)
	}
	return reset, nil
}

func (s *RedisStore) resetOne(ctx context.Context, principalID, period string, now time.Time) (bool, error) {
	key := s.accountKey(principalID)
	var changed bool
	err := s.transact(ctx, key, func(tx *redis.Tx) error {
		changed = false
		account, err := loadAccount(ctx, tx, key, principalID)
		if errors.Is(err, usage.ErrAccountNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !account.Usage.IsStale(period) {
			return nil
		}
		account.Usage = usage.Metrics{Period: period, LastResetAt: now}
		account.UpdatedAt = now
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, accountFields(account))
			return nil
		})
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

// transact runs fn under WATCH key and retries when the transaction lost a race.
func (s *RedisStore) transact(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	s.log.Warn().Str("key", key).Msg("transaction retries exhausted")
	return fmt.Errorf("%s: too much contention", key)
}

func counterField(feature usage.Feature) (string, bool) {
	switch feature {
	case usage.FeatureVoice:
		return fieldVoice, true
	case usage.FeatureText:
		return fieldText, true
	case usage.FeatureAPI:
		return fieldAPICalls, true
	default:
		return "", false
	}
}

func accountFields(a *usage.Account) map[string]any {
	expires := ""
	if a.SubscriptionExpiresAt != nil {
		expires = a.SubscriptionExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return map[string]any{
		fieldID:       a.ID,
		fieldTier:     string(a.Tier),
		fieldExpires:  expires,
		fieldVoice:    a.Usage.VoiceMinutesUsed.String(),
		fieldText:     a.Usage.TextCharactersUsed.String(),
		fieldAPICalls: a.Usage.APICallsUsed.String(),
		fieldPeriod:   a.Usage.Period,
		fieldReset:    a.Usage.LastResetAt.UTC().Format(time.RFC3339Nano),
		fieldCreated:  a.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldUpdated:  a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func loadAccount(ctx context.Context, client hashReader, key, principalID string) (*usage.Account, error) {
	fields, err := client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if len(fields) == 0 {
		return nil, usage.ErrAccountNotFound
	}

	var parseErr error
	num := func(name string) decimal.Decimal {
		raw := fields[name]
		if raw == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(raw)
		if err != nil && parseErr == nil {
			parseErr = fmt.Errorf("field %s: %w", name, err)
		}
		return d
	}
	ts := func(name string) time.Time {
		raw := fields[name]
		if raw == "" {
			return time.Time{}
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil && parseErr == nil {
			parseErr = fmt.Errorf("field %s: %w", name, err)
		}
		return t.UTC()
	}

	tier, err := usage.ParseTier(fields[fieldTier])
	if err != nil {
		tier = usage.TierFree
	}
	account := &usage.Account{
		ID:          fields[fieldID],
		PrincipalID: principalID,
		Tier:        tier,
		Usage: usage.Metrics{
			VoiceMinutesUsed:   num(fieldVoice),
			TextCharactersUsed: num(fieldText),
			APICallsUsed:       num(fieldAPICalls),
			Period:             fields[fieldPeriod],
			LastResetAt:        ts(fieldReset),
		},
		CreatedAt: ts(fieldCreated),
		UpdatedAt: ts(fieldUpdated),
	}
	if fields[fieldExpires] != "" {
		expires := ts(fieldExpires)
		account.SubscriptionExpiresAt = &expires
	}
	if parseErr != nil {
		return nil, fmt.Errorf("decode account %s: %w", principalID, parseErr)
	}
	return account, nil
}
