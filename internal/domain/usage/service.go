package usage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidSubscription is returned for subscription updates that cannot apply.
var ErrInvalidSubscription = errors.New("invalid subscription update")

// Service manages accounts and resolves principals for metering.
type Service interface {
	ResolvePrincipal(ctx context.Context, principalID string) (*Principal, error)
	GetAccount(ctx context.Context, principalID string) (*Account, error)
	SetSubscription(ctx context.Context, principalID string, tier Tier, expiresAt *time.Time) (*Account, error)
}

type service struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

// NewService creates a new account service.
func NewService(store Store, log zerolog.Logger) Service {
	return &service{
		store: store,
		now:   time.Now,
		log:   log.With().Str("component", "usage-service").Logger(),
	}
}

// NewServiceWithClock creates an account service with a fixed time source.
func NewServiceWithClock(store Store, now func() time.Time, log zerolog.Logger) Service {
	svc := NewService(store, log).(*service)
	svc.now = now
	return svc
}

func (s *service) ResolvePrincipal(ctx context.Context, principalID string) (*Principal, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return nil, errors.New("principal id is required")
	}
	now := s.now().UTC()
	account, err := s.store.EnsureAccount(ctx, principalID, now)
	if err != nil {
		return nil, err
	}
	return &Principal{
		ID:    account.PrincipalID,
		Tier:  account.EffectiveTier(now),
		Usage: account.Usage,
	}, nil
}

func (s *service) GetAccount(ctx context.Context, principalID string) (*Account, error) {
	return s.store.GetAccount(ctx, principalID)
}

func (s *service) SetSubscription(ctx context.Context, principalID string, tier Tier, expiresAt *time.Time) (*Account, error) {
	now := s.now().UTC()
	switch tier {
	case TierPremium:
		if expiresAt == nil || !expiresAt.After(now) {
			return nil, errors.Join(ErrInvalidSubscription, errors.New("premium requires an expiry in the future"))
		}
		utc := expiresAt.UTC()
		expiresAt = &utc
	case TierFree:
		expiresAt = nil
	default:
		return nil, errors.Join(ErrInvalidSubscription, errors.New("unknown tier "+string(tier)))
	}

	if _, err := s.store.EnsureAccount(ctx, principalID, now); err != nil {
		return nil, err
	}
	account, err := s.store.SetSubscription(ctx, principalID, tier, expiresAt, now)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", account.ID).
		Str("tier", string(tier)).
		Msg("subscription updated")
	return account, nil
}
