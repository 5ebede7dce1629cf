package speech

import (
	"github.com/shopspring/decimal"

	"github.com/janhq/sense-api/internal/domain/capability"
)

const (
	DefaultLanguage   = "en-US"
	DefaultEncoding   = "WEBM_OPUS"
	DefaultSampleRate = 48000

	// estimatedBitrate is used to approximate duration when neither the
	// provider nor the caller reports one (32 kbit/s, typical for Opus voice).
	estimatedBitrate = 32000
)

// Options are the recognized transcription parameters.
type Options struct {
	Language        string   `json:"language,omitempty"`
	Encoding        string   `json:"encoding,omitempty"`
	SampleRate      int      `json:"sampleRate,omitempty" validate:"gte=0"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty" validate:"omitempty,gt=0"`
}

// LanguageOr returns the requested language or the default.
func (o Options) LanguageOr() string {
	if o.Language == "" {
		return DefaultLanguage
	}
	return o.Language
}

// Request is one audio clip to transcribe.
type Request struct {
	Audio   []byte `validate:"required,min=1024,max=10485760"`
	Options Options
}

// Validate checks the clip size and options.
func (r Request) Validate() error {
	return capability.ValidateStruct(r)
}

// Transcript is the recognized text.
type Transcript struct {
	Text            string  `json:"text"`
	Confidence      float64 `json:"confidence"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	Note            string  `json:"note,omitempty"`
}

// minBilledMinutes is the floor for clips too short to register at the
// quotient's precision.
var minBilledMinutes = decimal.New(1, -int32(decimal.DivisionPrecision))

// BilledMinutes returns the audio length to meter, in minutes: the provider's
// duration when reported, else the caller's, else an estimate from size. The
// quotient is not rounded and is never zero.
func BilledMinutes(req Request, transcript Transcript) decimal.Decimal {
	var seconds decimal.Decimal
	switch {
	case transcript.DurationSeconds > 0:
		seconds = decimal.NewFromFloat(transcript.DurationSeconds)
	case req.Options.DurationSeconds != nil && *req.Options.DurationSeconds > 0:
		seconds = decimal.NewFromFloat(*req.Options.DurationSeconds)
	default:
		bits := decimal.NewFromInt(int64(len(req.Audio)) * 8)
		seconds = bits.Div(decimal.NewFromInt(estimatedBitrate))
	}
	minutes := seconds.Div(decimal.NewFromInt(60))
	if !minutes.IsPositive() {
		return minBilledMinutes
	}
	return minutes
}

// Adapter is a speech-to-text provider.
type Adapter = capability.Adapter[Request, Transcript]

// Orchestrator is the speech-to-text fallback chain.
type Orchestrator = capability.Orchestrator[Request, Transcript]
