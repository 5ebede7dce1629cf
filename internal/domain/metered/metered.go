// Package metered runs a capability call between the quota pre-check and the
// usage commit.
package metered

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/utils/platformerrors"
)

// DefaultTimeout is the overall deadline for check, orchestration and commit.
const DefaultTimeout = 90 * time.Second

// Usage is the consumption billed for one request.
type Usage struct {
	AmountConsumed decimal.Decimal `json:"amountConsumed"`
	Unit           string          `json:"unit"`
	Feature        usage.Feature   `json:"feature"`
}

// Outcome is a billed, successful capability call.
type Outcome[Res any] struct {
	Payload         Res
	ServingProvider string
	Degraded        bool
	Attempts        []capability.Attempt
	Usage           Usage
	Totals          usage.Metrics
}

// Gate holds the collaborators shared by the capability services.
type Gate struct {
	accounts usage.Service
	meter    *usage.Meter
	timeout  time.Duration
}

// NewGate creates a gate. A non-positive timeout uses DefaultTimeout.
func NewGate(accounts usage.Service, meter *usage.Meter, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gate{accounts: accounts, meter: meter, timeout: timeout}
}

// Call describes one metered capability invocation.
type Call[Req, Res any] struct {
	PrincipalID string
	Feature     usage.Feature
	Request     Req
	Handle      func(ctx context.Context, req Req) (*capability.Result[Res], error)
	Amount      func(req Req, payload Res) decimal.Decimal
}

// Run resolves the principal, pre-checks the quota, runs the orchestration
// and commits usage. Nothing is committed when the context is done by the
// time the orchestration returns, and a rejected commit discards the result.
func Run[Req, Res any](ctx context.Context, gate *Gate, call Call[Req, Res], log zerolog.Logger) (*Outcome[Res], error) {
	ctx, cancel := context.WithTimeout(ctx, gate.timeout)
	defer cancel()

	principal, err := gate.accounts.ResolvePrincipal(ctx, call.PrincipalID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to resolve principal")
	}

	allowed, err := gate.meter.CheckQuota(ctx, *principal, call.Feature)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to check quota")
	}
	if !allowed {
		return nil, quotaExceeded(ctx, call.Feature, gate.meter.Limit(principal.Tier, call.Feature))
	}

	result, err := call.Handle(ctx, call.Request)
	if err != nil {
		if errors.Is(err, capability.ErrAllProvidersExhausted) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeProvidersExhausted,
				"the service is temporarily unavailable", err, "9c1e2a57-4d0b-4f3e-8a61-2b7f05d3c4e8")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "capability request did not complete")
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Info().
			Str("serving_provider", result.ServingProvider).
			Err(ctxErr).
			Msg("request ended before commit, usage not recorded")
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, ctxErr, "request cancelled")
	}

	amount := call.Amount(call.Request, result.Payload)
	totals, err := gate.meter.RecordUsage(ctx, *principal, call.Feature, amount)
	if err != nil {
		if errors.Is(err, usage.ErrQuotaExceeded) {
			return nil, quotaExceeded(ctx, call.Feature, gate.meter.Limit(principal.Tier, call.Feature))
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to record usage")
	}

	return &Outcome[Res]{
		Payload:         result.Payload,
		ServingProvider: result.ServingProvider,
		Degraded:        result.Degraded,
		Attempts:        result.Attempts,
		Usage: Usage{
			AmountConsumed: amount,
			Unit:           call.Feature.Unit(),
			Feature:        call.Feature,
		},
		Totals: *totals,
	}, nil
}

// Validate wraps a request validation failure as a platform validation error.
func Validate(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
		err.Error(), err, "4e7b9d12-6a3f-4c85-b0e1-73d2a9f68c15")
}

func quotaExceeded(ctx context.Context, feature usage.Feature, limit usage.Limit) error {
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeQuotaExceeded,
		"monthly "+string(feature)+" quota exceeded, upgrade to premium for unlimited usage",
		usage.ErrQuotaExceeded, "d5a0c8e3-1f72-4b96-9e4d-86c3b1f2a7d0",
		map[string]any{"feature": string(feature), "limit": limit.String()})
}
