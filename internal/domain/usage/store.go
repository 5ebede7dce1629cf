package usage

import (
	"context"
	"time"
)

// Store persists accounts and their usage counters. Increment is the only
// operation that mutates counters and must be atomic per principal.
type Store interface {
	// EnsureAccount returns the account for principalID, creating a free-tier
	// account stamped with the current period on first sight.
	EnsureAccount(ctx context.Context, principalID string, now time.Time) (*Account, error)

	// GetAccount returns ErrAccountNotFound for unknown principals.
	GetAccount(ctx context.Context, principalID string) (*Account, error)

	// Increment applies reset, re-check and increment atomically.
	// It returns ErrQuotaExceeded when req.Permits rejects the current value.
	Increment(ctx context.Context, req IncrementRequest) (*Account, error)

	// SetSubscription updates tier and expiry.
	SetSubscription(ctx context.Context, principalID string, tier Tier, expiresAt *time.Time, now time.Time) (*Account, error)

	// ResetStale zeroes counters of every account whose period differs from
	// period and returns the number of accounts reset.
	ResetStale(ctx context.Context, period string, now time.Time) (int64, error)
}
