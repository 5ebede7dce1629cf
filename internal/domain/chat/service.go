package chat

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/janhq/sense-api/internal/domain/metered"
	"github.com/janhq/sense-api/internal/domain/usage"
)

// Reply is a billed chat response.
type Reply = metered.Outcome[Response]

// Service answers chat turns through the chat fallback chain.
type Service interface {
	Respond(ctx context.Context, principalID string, req Request) (*Reply, error)
}

type service struct {
	orchestrator *Orchestrator
	gate         *metered.Gate
	log          zerolog.Logger
}

// NewService creates a new chat service.
func NewService(orchestrator *Orchestrator, gate *metered.Gate, log zerolog.Logger) Service {
	return &service{
		orchestrator: orchestrator,
		gate:         gate,
		log:          log.With().Str("component", "chat-service").Logger(),
	}
}

func (s *service) Respond(ctx context.Context, principalID string, req Request) (*Reply, error) {
	if err := req.Validate(); err != nil {
		return nil, metered.Validate(ctx, err)
	}

	reply, err := metered.Run(ctx, s.gate, metered.Call[Request, Response]{
		PrincipalID: principalID,
		Feature:     usage.FeatureAPI,
		Request:     req,
		Handle:      s.orchestrator.Handle,
		Amount: func(Request, Response) decimal.Decimal {
			return decimal.NewFromInt(1)
		},
	}, s.log)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("serving_provider", reply.ServingProvider).
		Bool("degraded", reply.Degraded).
		Int("total_tokens", reply.Payload.Usage.TotalTokens).
		Msg("chat served")
	return reply, nil
}
