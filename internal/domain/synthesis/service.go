package synthesis

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/janhq/sense-api/internal/domain/metered"
	"github.com/janhq/sense-api/internal/domain/usage"
)

// Reply is billed synthesized audio.
type Reply = metered.Outcome[Audio]

// Service synthesizes speech through the text-to-speech fallback chain.
type Service interface {
	Synthesize(ctx context.Context, principalID string, req Request) (*Reply, error)
}

type service struct {
	orchestrator *Orchestrator
	gate         *metered.Gate
	log          zerolog.Logger
}

// NewService creates a new text-to-speech service.
func NewService(orchestrator *Orchestrator, gate *metered.Gate, log zerolog.Logger) Service {
	return &service{
		orchestrator: orchestrator,
		gate:         gate,
		log:          log.With().Str("component", "synthesis-service").Logger(),
	}
}

func (s *service) Synthesize(ctx context.Context, principalID string, req Request) (*Reply, error) {
	if err := req.Validate(); err != nil {
		return nil, metered.Validate(ctx, err)
	}

	reply, err := metered.Run(ctx, s.gate, metered.Call[Request, Audio]{
		PrincipalID: principalID,
		Feature:     usage.FeatureText,
		Request:     req,
		Handle:      s.orchestrator.Handle,
		Amount: func(req Request, _ Audio) decimal.Decimal {
			return decimal.NewFromInt(int64(req.Characters()))
		},
	}, s.log)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("serving_provider", reply.ServingProvider).
		Bool("degraded", reply.Degraded).
		Int("characters", req.Characters()).
		Int("audio_bytes", len(reply.Payload.Content)).
		Msg("synthesis served")
	return reply, nil
}
