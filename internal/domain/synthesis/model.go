package synthesis

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/janhq/sense-api/internal/domain/capability"
)

const (
	// MaxTextLength mirrors the max tag on Request.Text.
	MaxTextLength = 5000

	DefaultLanguage     = "en-US"
	DefaultSpeakingRate = 1.0

	wordsPerMinute     = 150
	minDurationSeconds = 0.5
)

// Options are the recognized synthesis parameters.
type Options struct {
	Voice        string   `json:"voice,omitempty"`
	Language     string   `json:"language,omitempty"`
	Gender       string   `json:"gender,omitempty"`
	SpeakingRate *float64 `json:"speakingRate,omitempty" validate:"omitempty,gte=0.25,lte=4"`
	Pitch        *float64 `json:"pitch,omitempty" validate:"omitempty,gte=-20,lte=20"`
	VolumeGainDb *float64 `json:"volumeGainDb,omitempty" validate:"omitempty,gte=-96,lte=16"`
}

// SpeakingRateOr returns the requested rate or 1.0.
func (o Options) SpeakingRateOr() float64 {
	if o.SpeakingRate == nil {
		return DefaultSpeakingRate
	}
	return *o.SpeakingRate
}

// Request is text to synthesize.
type Request struct {
	Text    string  `json:"text" validate:"required,min=1,max=5000"`
	Options Options `json:"options"`
}

// Characters is the metered length of the text.
func (r Request) Characters() int {
	return utf8.RuneCountInString(r.Text)
}

// Validate checks text length and option ranges. Whitespace-only text
// counts as missing.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		r.Text = ""
	}
	return capability.ValidateStruct(r)
}

// Audio is synthesized speech.
type Audio struct {
	Content         []byte  `json:"-"`
	Format          string  `json:"format"`
	ContentType     string  `json:"contentType"`
	Voice           string  `json:"voice"`
	DurationSeconds float64 `json:"durationSeconds"`
	Note            string  `json:"note,omitempty"`
}

// EstimateDurationSeconds approximates spoken length at 150 words per minute
// scaled by the speaking rate, never below half a second.
func EstimateDurationSeconds(text string, speakingRate float64) float64 {
	if speakingRate <= 0 {
		speakingRate = DefaultSpeakingRate
	}
	words := len(strings.Fields(text))
	seconds := float64(words) / (wordsPerMinute * speakingRate) * 60
	seconds = math.Round(seconds*100) / 100
	return math.Max(seconds, minDurationSeconds)
}

// Adapter is a text-to-speech provider.
type Adapter = capability.Adapter[Request, Audio]

// Orchestrator is the text-to-speech fallback chain.
type Orchestrator = capability.Orchestrator[Request, Audio]
