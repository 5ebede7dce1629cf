package speech

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/domain/metered"
	"github.com/janhq/sense-api/internal/domain/usage"
)

// Reply is a billed transcription.
type Reply = metered.Outcome[Transcript]

// Service transcribes audio through the speech-to-text fallback chain.
type Service interface {
	Transcribe(ctx context.Context, principalID string, req Request) (*Reply, error)
}

type service struct {
	orchestrator *Orchestrator
	gate         *metered.Gate
	log          zerolog.Logger
}

// NewService creates a new speech-to-text service.
func NewService(orchestrator *Orchestrator, gate *metered.Gate, log zerolog.Logger) Service {
	return &service{
		orchestrator: orchestrator,
		gate:         gate,
		log:          log.With().Str("component", "speech-service").Logger(),
	}
}

func (s *service) Transcribe(ctx context.Context, principalID string, req Request) (*Reply, error) {
	if err := req.Validate(); err != nil {
		return nil, metered.Validate(ctx, err)
	}

	reply, err := metered.Run(ctx, s.gate, metered.Call[Request, Transcript]{
		PrincipalID: principalID,
		Feature:     usage.FeatureVoice,
		Request:     req,
		Handle:      s.orchestrator.Handle,
		Amount:      BilledMinutes,
	}, s.log)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("serving_provider", reply.ServingProvider).
		Bool("degraded", reply.Degraded).
		Int("audio_bytes", len(req.Audio)).
		Str("minutes", reply.Usage.AmountConsumed.String()).
		Msg("transcription served")
	return reply, nil
}
