package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/janhq/sense-api/internal/domain/usage"
)

// MemoryStore is a mutex-based in-memory account store.
// Increment holds the write lock across reset, re-check and add, which makes
// it atomic per process. Not shared between replicas.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*usage.Account // principal ID -> account
	log      zerolog.Logger
}

// NewMemoryStore creates a new in-memory account store.
func NewMemoryStore(log zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*usage.Account),
		log:      log.With().Str("component", "usage-store").Str("backend", "memory").Logger(),
	}
}

// EnsureAccount returns the account, creating it on first sight.
func (s *MemoryStore) EnsureAccount(ctx context.Context, principalID string, now time.Time) (*usage.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account, ok := s.accounts[principalID]; ok {
		return cloneAccount(account), nil
	}

	account := &usage.Account{
		ID:          usage.NewAccountID(),
		PrincipalID: principalID,
		Tier:        usage.TierFree,
		Usage: usage.Metrics{
			Period:      usage.PeriodOf(now),
			LastResetAt: now.UTC(),
		},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	s.accounts[principalID] = account
	s.log.Debug().Str("account_id", account.ID).Msg("account created")
	return cloneAccount(account), nil
}

// GetAccount retrieves an account by principal ID.
func (s *MemoryStore) GetAccount(ctx context.Context, principalID string) (*usage.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[principalID]
	if !ok {
		return nil, usage.ErrAccountNotFound
	}
	return cloneAccount(account), nil
}

// Increment applies the period reset, re-checks the quota and adds the amount.
func (s *MemoryStore) Increment(ctx context.Context, req usage.IncrementRequest) (*usage.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[req.PrincipalID]
	if !ok {
		return nil, usage.ErrAccountNotFound
	}

	metrics := account.Usage
	if metrics.IsStale(req.Period) {
		metrics = usage.Metrics{Period: req.Period, LastResetAt: req.Now.UTC()}
	}
	if !req.Permits(metrics.Get(req.Feature)) {
		if metrics.Period != account.Usage.Period {
			account.Usage = metrics
			account.UpdatedAt = req.Now.UTC()
		}
		return nil, usage.ErrQuotaExceeded
	}

	account.Usage = metrics.Add(req.Feature, req.Amount)
	account.UpdatedAt = req.Now.UTC()
	return cloneAccount(account), nil
}

// SetSubscription updates the tier and expiry of an existing account.
func (s *MemoryStore) SetSubscription(ctx context.Context, principalID string, tier usage.Tier, expiresAt *time.Time, now time.Time) (*usage.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[principalID]
	if !ok {
		return nil, usage.ErrAccountNotFound
	}
	account.Tier = tier
	account.SubscriptionExpiresAt = copyTime(expiresAt)
	account.UpdatedAt = now.UTC()
	return cloneAccount(account), nil
}

// ResetStale zeroes the counters of accounts from an earlier period.
func (s *MemoryStore) ResetStale(ctx context.Context, period string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reset int64
	for _, account := range s.accounts {
		if !account.Usage.IsStale(period) {
			continue
		}
		account.Usage = usage.Metrics{
			VoiceMinutesUsed:   decimal.Zero,
			TextCharactersUsed: decimal.Zero,
			APICallsUsed:       decimal.Zero,
			Period:             period,
			LastResetAt:        now.UTC(),
		}
		account.UpdatedAt = now.UTC()
		reset++
	}
	return reset, nil
}

// Len returns the number of accounts held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func cloneAccount(account *usage.Account) *usage.Account {
	clone := *account
	clone.SubscriptionExpiresAt = copyTime(account.SubscriptionExpiresAt)
	return &clone
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}
