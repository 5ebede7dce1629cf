package local

import (
	"context"
	"strconv"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/speech"
)

const (
	// SpeechConfidence is the fixed confidence of a local transcript.
	SpeechConfidence = 0.5
	SpeechNote       = "This is a fallback response. For better accuracy, please configure API keys for Google Cloud or Azure Speech services."
)

var speechReplies = []string{
	"I'm processing your audio. Please ensure your microphone is working properly.",
	"Audio received. I'm using a simplified speech recognition system.",
	"I can hear you! I'm processing your speech using local fallback methods.",
	"Audio input detected. Processing with local speech recognition.",
}

// SpeechAdapter acknowledges audio without recognizing it.
type SpeechAdapter struct{}

// NewSpeechAdapter returns the local speech-to-text fallback.
func NewSpeechAdapter() *SpeechAdapter {
	return &SpeechAdapter{}
}

func (a *SpeechAdapter) Name() string {
	return capability.LocalProvider
}

func (a *SpeechAdapter) Execute(ctx context.Context, req speech.Request) (speech.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return speech.Transcript{}, err
	}
	return speech.Transcript{
		Text:       pick(speechReplies, strconv.Itoa(len(req.Audio))),
		Confidence: SpeechConfidence,
		Language:   req.Options.LanguageOr(),
		Note:       SpeechNote,
	}, nil
}
