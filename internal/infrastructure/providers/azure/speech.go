package azure

import (
	"context"
	"fmt"
	"strings"

	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/infrastructure/providers/providerhttp"
)

const (
	defaultConfidence = 0.8
	// Azure reports offsets and durations in 100ns ticks.
	ticksPerSecond = 10_000_000
)

type recognitionResponse struct {
	RecognitionStatus string  `json:"RecognitionStatus"`
	DisplayText       string  `json:"DisplayText"`
	Duration          int64   `json:"Duration"`
	Confidence        float64 `json:"Confidence"`
	NBest             []struct {
		Confidence float64 `json:"Confidence"`
		Display    string  `json:"Display"`
	} `json:"NBest"`
}

// SpeechAdapter posts audio to the short-audio recognition endpoint.
type SpeechAdapter struct {
	name     string
	endpoint string
	language string
	tokens   *TokenSource
	client   *resty.Client
}

// NewSpeechAdapter builds a speech-to-text adapter. tokens may be shared with
// the synthesis adapter for the same subscription.
func NewSpeechAdapter(cfg capability.ProviderConfig, tokens *TokenSource, client *resty.Client) *SpeechAdapter {
	return &SpeechAdapter{
		name:     cfg.Name,
		endpoint: RegionalEndpoints(cfg.Region, cfg.BaseURL).Recognition,
		language: cfg.Language,
		tokens:   tokens,
		client:   client,
	}
}

func (a *SpeechAdapter) Name() string {
	return a.name
}

func (a *SpeechAdapter) Execute(ctx context.Context, req speech.Request) (speech.Transcript, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return speech.Transcript{}, err
	}

	language := req.Options.Language
	if language == "" {
		language = a.language
	}
	if language == "" {
		language = speech.DefaultLanguage
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", token)).
		SetHeader("Content-Type", "audio/wav").
		SetHeader("Accept", "application/json").
		SetQueryParam("language", language).
		SetQueryParam("format", "detailed").
		SetBody(req.Audio).
		Post(a.endpoint)
	body, err := providerhttp.Check(a.name, resp, err)
	if err != nil {
		if capability.Classify(err) == capability.OutcomeConfiguration {
			a.tokens.Invalidate()
		}
		return speech.Transcript{}, err
	}

	var result recognitionResponse
	if err := providerhttp.DecodeJSON(a.name, body, &result); err != nil {
		return speech.Transcript{}, err
	}

	switch result.RecognitionStatus {
	case "Success":
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		return speech.Transcript{}, capability.EmptyResultError(a.name, "recognition status "+result.RecognitionStatus)
	default:
		return speech.Transcript{}, capability.TransientError(a.name, fmt.Errorf("recognition status %q", result.RecognitionStatus))
	}

	text := strings.TrimSpace(result.DisplayText)
	confidence := result.Confidence
	if len(result.NBest) > 0 {
		if text == "" {
			text = strings.TrimSpace(result.NBest[0].Display)
		}
		if confidence == 0 {
			confidence = result.NBest[0].Confidence
		}
	}
	if text == "" {
		return speech.Transcript{}, capability.EmptyResultError(a.name, "empty transcript")
	}
	if confidence == 0 {
		confidence = defaultConfidence
	}

	return speech.Transcript{
		Text:            text,
		Confidence:      confidence,
		Language:        language,
		DurationSeconds: float64(result.Duration) / ticksPerSecond,
	}, nil
}
