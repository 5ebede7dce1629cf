package openaicompat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/infrastructure/providers/providerhttp"
)

const (
	defaultTranscriptionModel = "whisper-large-v3"
	// whisperConfidence is reported because the API returns none.
	whisperConfidence = 0.9
)

// TranscriptionAdapter calls POST {base}/audio/transcriptions.
type TranscriptionAdapter struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *resty.Client
}

// NewTranscriptionAdapter builds a speech-to-text adapter from a provider binding.
func NewTranscriptionAdapter(cfg capability.ProviderConfig, client *resty.Client) *TranscriptionAdapter {
	model := cfg.Model
	if model == "" {
		model = defaultTranscriptionModel
	}
	return &TranscriptionAdapter{
		name:    cfg.Name,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  client,
	}
}

func (a *TranscriptionAdapter) Name() string {
	return a.name
}

func (a *TranscriptionAdapter) Execute(ctx context.Context, req speech.Request) (speech.Transcript, error) {
	if strings.TrimSpace(a.apiKey) == "" || a.baseURL == "" {
		return speech.Transcript{}, capability.ConfigurationError(a.name, errors.New("api key and base url are required"))
	}

	fileName, contentType := audioFile(req.Options.Encoding)
	language := req.Options.LanguageOr()

	form := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", a.apiKey))
	form.SetMultipartField("file", fileName, contentType, bytes.NewReader(req.Audio))
	form.SetFormData(map[string]string{
		"model":           a.model,
		"language":        baseLanguage(language),
		"response_format": string(openai.AudioResponseFormatVerboseJSON),
	})

	resp, err := form.Post(providerhttp.Endpoint(a.baseURL, "audio/transcriptions"))
	body, err := providerhttp.Check(a.name, resp, err)
	if err != nil {
		return speech.Transcript{}, err
	}

	var result openai.AudioResponse
	if err := providerhttp.DecodeJSON(a.name, body, &result); err != nil {
		return speech.Transcript{}, err
	}
	text := strings.TrimSpace(result.Text)
	if text == "" {
		return speech.Transcript{}, capability.EmptyResultError(a.name, "no speech recognized")
	}

	return speech.Transcript{
		Text:            text,
		Confidence:      whisperConfidence,
		Language:        language,
		DurationSeconds: result.Duration,
	}, nil
}

// baseLanguage reduces a BCP-47 tag to the ISO-639-1 code Whisper expects.
func baseLanguage(tag string) string {
	base, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(base)
}

func audioFile(encoding string) (string, string) {
	switch strings.ToUpper(encoding) {
	case "LINEAR16", "WAV":
		return "audio.wav", "audio/wav"
	case "MP3":
		return "audio.mp3", "audio/mpeg"
	case "FLAC":
		return "audio.flac", "audio/flac"
	case "OGG_OPUS":
		return "audio.ogg", "audio/ogg"
	case "M4A":
		return "audio.m4a", "audio/mp4"
	default:
		return "audio.webm", "audio/webm"
	}
}
