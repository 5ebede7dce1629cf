package handlers

import (
	"context"
	"time"

	"github.com/janhq/sense-api/internal/domain/usage"
)

// UsageReporter builds usage reports; *usage.Meter implements it.
type UsageReporter interface {
	Report(ctx context.Context, principal usage.Principal) (*usage.Report, error)
}

// UsageHandler serves usage reports and subscription administration.
type UsageHandler struct {
	accounts usage.Service
	reporter UsageReporter
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(accounts usage.Service, reporter UsageReporter) *UsageHandler {
	return &UsageHandler{accounts: accounts, reporter: reporter}
}

// Report returns the caller's usage in the current period.
func (h *UsageHandler) Report(ctx context.Context, userID string) (*usage.Report, error) {
	principal, err := h.accounts.ResolvePrincipal(ctx, userID)
	if err != nil {
		return nil, err
	}
	return h.reporter.Report(ctx, *principal)
}

// GetAccount returns a stored account.
func (h *UsageHandler) GetAccount(ctx context.Context, principalID string) (*usage.Account, error) {
	return h.accounts.GetAccount(ctx, principalID)
}

// SetSubscription changes an account's tier.
func (h *UsageHandler) SetSubscription(ctx context.Context, principalID string, tier usage.Tier, expiresAt *time.Time) (*usage.Account, error) {
	return h.accounts.SetSubscription(ctx, principalID, tier, expiresAt)
}
