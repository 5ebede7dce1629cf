// Package google adapts Google Cloud Speech-to-Text and Text-to-Speech REST
// endpoints, authenticated with an API key.
package google

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/infrastructure/providers/providerhttp"
)

const (
	defaultSpeechBaseURL = "https://speech.googleapis.com/v1"
	defaultSpeechModel   = "latest_long"
	// defaultConfidence applies when the top alternative omits one.
	defaultConfidence = 0.8
)

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  recognitionAudio  `json:"audio"`
}

type recognitionConfig struct {
	Encoding                   string `json:"encoding"`
	SampleRateHertz            int    `json:"sampleRateHertz,omitempty"`
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
	Model                      string `json:"model,omitempty"`
}

type recognitionAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string   `json:"transcript"`
			Confidence *float64 `json:"confidence"`
		} `json:"alternatives"`
		LanguageCode string `json:"languageCode"`
	} `json:"results"`
}

// SpeechAdapter calls POST {base}/speech:recognize.
type SpeechAdapter struct {
	name     string
	baseURL  string
	apiKey   string
	model    string
	language string
	client   *resty.Client
}

// NewSpeechAdapter builds a speech-to-text adapter from a provider binding.
func NewSpeechAdapter(cfg capability.ProviderConfig, client *resty.Client) *SpeechAdapter {
	base := cfg.BaseURL
	if base == "" {
		base = defaultSpeechBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultSpeechModel
	}
	return &SpeechAdapter{
		name:     cfg.Name,
		baseURL:  base,
		apiKey:   cfg.APIKey,
		model:    model,
		language: cfg.Language,
		client:   client,
	}
}

func (a *SpeechAdapter) Name() string {
	return a.name
}

func (a *SpeechAdapter) Execute(ctx context.Context, req speech.Request) (speech.Transcript, error) {
	if strings.TrimSpace(a.apiKey) == "" {
		return speech.Transcript{}, capability.ConfigurationError(a.name, errors.New("api key is required"))
	}

	language := req.Options.Language
	if language == "" {
		language = a.language
	}
	if language == "" {
		language = speech.DefaultLanguage
	}
	encoding := req.Options.Encoding
	if encoding == "" {
		encoding = speech.DefaultEncoding
	}
	sampleRate := req.Options.SampleRate
	if sampleRate == 0 {
		sampleRate = speech.DefaultSampleRate
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", a.apiKey).
		SetBody(recognizeRequest{
			Config: recognitionConfig{
				Encoding:                   strings.ToUpper(encoding),
				SampleRateHertz:            sampleRate,
				LanguageCode:               language,
				EnableAutomaticPunctuation: true,
				Model:                      a.model,
			},
			Audio: recognitionAudio{Content: base64.StdEncoding.EncodeToString(req.Audio)},
		}).
		Post(providerhttp.Endpoint(a.baseURL, "speech:recognize"))
	body, err := providerhttp.Check(a.name, resp, err)
	if err != nil {
		return speech.Transcript{}, err
	}

	var result recognizeResponse
	if err := providerhttp.DecodeJSON(a.name, body, &result); err != nil {
		return speech.Transcript{}, err
	}
	if len(result.Results) == 0 || len(result.Results[0].Alternatives) == 0 {
		return speech.Transcript{}, capability.EmptyResultError(a.name, "no speech recognized")
	}

	top := result.Results[0].Alternatives[0]
	text := strings.TrimSpace(top.Transcript)
	if text == "" {
		return speech.Transcript{}, capability.EmptyResultError(a.name, "empty transcript")
	}
	confidence := defaultConfidence
	if top.Confidence != nil {
		confidence = *top.Confidence
	}
	return speech.Transcript{
		Text:       text,
		Confidence: confidence,
		Language:   language,
	}, nil
}
