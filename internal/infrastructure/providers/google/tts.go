package google

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/synthesis"
	"github.com/janhq/sense-api/internal/infrastructure/providers/providerhttp"
)

const (
	defaultTTSBaseURL = "https://texttospeech.googleapis.com/v1"
	defaultVoice      = "en-US-Wavenet-D"
	defaultGender     = "NEUTRAL"
)

type synthesizeRequest struct {
	Input       synthesisInput `json:"input"`
	Voice       voiceSelection `json:"voice"`
	AudioConfig audioConfig    `json:"audioConfig"`
}

type synthesisInput struct {
	Text string `json:"text"`
}

type voiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name,omitempty"`
	SSMLGender   string `json:"ssmlGender,omitempty"`
}

type audioConfig struct {
	AudioEncoding string  `json:"audioEncoding"`
	SpeakingRate  float64 `json:"speakingRate"`
	Pitch         float64 `json:"pitch"`
	VolumeGainDb  float64 `json:"volumeGainDb"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// TTSAdapter calls POST {base}/text:synthesize.
type TTSAdapter struct {
	name     string
	baseURL  string
	apiKey   string
	voice    string
	language string
	gender   string
	client   *resty.Client
}

// NewTTSAdapter builds a text-to-speech adapter from a provider binding.
func NewTTSAdapter(cfg capability.ProviderConfig, client *resty.Client) *TTSAdapter {
	adapter := &TTSAdapter{
		name:     cfg.Name,
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		voice:    cfg.Voice,
		language: cfg.Language,
		gender:   cfg.Gender,
		client:   client,
	}
	if adapter.baseURL == "" {
		adapter.baseURL = defaultTTSBaseURL
	}
	if adapter.voice == "" {
		adapter.voice = defaultVoice
	}
	if adapter.language == "" {
		adapter.language = synthesis.DefaultLanguage
	}
	if adapter.gender == "" {
		adapter.gender = defaultGender
	}
	return adapter
}

func (a *TTSAdapter) Name() string {
	return a.name
}

func (a *TTSAdapter) Execute(ctx context.Context, req synthesis.Request) (synthesis.Audio, error) {
	if strings.TrimSpace(a.apiKey) == "" {
		return synthesis.Audio{}, capability.ConfigurationError(a.name, errors.New("api key is required"))
	}

	voice := firstNonEmpty(req.Options.Voice, a.voice)
	language := firstNonEmpty(req.Options.Language, a.language)
	gender := strings.ToUpper(firstNonEmpty(req.Options.Gender, a.gender))
	rate := req.Options.SpeakingRateOr()

	payload := synthesizeRequest{
		Input: synthesisInput{Text: req.Text},
		Voice: voiceSelection{LanguageCode: language, Name: voice, SSMLGender: gender},
		AudioConfig: audioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  rate,
		},
	}
	if req.Options.Pitch != nil {
		payload.AudioConfig.Pitch = *req.Options.Pitch
	}
	if req.Options.VolumeGainDb != nil {
		payload.AudioConfig.VolumeGainDb = *req.Options.VolumeGainDb
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", a.apiKey).
		SetBody(payload).
		Post(providerhttp.Endpoint(a.baseURL, "text:synthesize"))
	body, err := providerhttp.Check(a.name, resp, err)
	if err != nil {
		return synthesis.Audio{}, err
	}

	var result synthesizeResponse
	if err := providerhttp.DecodeJSON(a.name, body, &result); err != nil {
		return synthesis.Audio{}, err
	}
	if result.AudioContent == "" {
		return synthesis.Audio{}, capability.EmptyResultError(a.name, "no audio content")
	}
	content, err := base64.StdEncoding.DecodeString(result.AudioContent)
	if err != nil {
		return synthesis.Audio{}, capability.TransientError(a.name, fmt.Errorf("decode audio content: %w", err))
	}
	if len(content) == 0 {
		return synthesis.Audio{}, capability.EmptyResultError(a.name, "no audio content")
	}

	return synthesis.Audio{
		Content:         content,
		Format:          "mp3",
		ContentType:     "audio/mpeg",
		Voice:           voice,
		DurationSeconds: synthesis.EstimateDurationSeconds(req.Text, rate),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
