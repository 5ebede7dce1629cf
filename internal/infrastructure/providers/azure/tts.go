package azure

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"math"
	"strings"

	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/synthesis"
	"github.com/janhq/sense-api/internal/infrastructure/providers/providerhttp"
)

const (
	defaultVoice = "en-US-AriaNeural"
	outputFormat = "audio-16khz-128kbitrate-mono-mp3"
)

// TTSAdapter posts SSML to the regional synthesis endpoint.
type TTSAdapter struct {
	name     string
	endpoint string
	voice    string
	language string
	tokens   *TokenSource
	client   *resty.Client
}

// NewTTSAdapter builds a text-to-speech adapter.
func NewTTSAdapter(cfg capability.ProviderConfig, tokens *TokenSource, client *resty.Client) *TTSAdapter {
	adapter := &TTSAdapter{
		name:     cfg.Name,
		endpoint: RegionalEndpoints(cfg.Region, cfg.BaseURL).Synthesis,
		voice:    cfg.Voice,
		language: cfg.Language,
		tokens:   tokens,
		client:   client,
	}
	if adapter.voice == "" {
		adapter.voice = defaultVoice
	}
	if adapter.language == "" {
		adapter.language = synthesis.DefaultLanguage
	}
	return adapter
}

func (a *TTSAdapter) Name() string {
	return a.name
}

func (a *TTSAdapter) Execute(ctx context.Context, req synthesis.Request) (synthesis.Audio, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return synthesis.Audio{}, err
	}

	voice := a.voice
	if v := strings.TrimSpace(req.Options.Voice); v != "" {
		voice = v
	}
	language := a.language
	if l := strings.TrimSpace(req.Options.Language); l != "" {
		language = l
	}
	ssml, err := BuildSSML(req, voice, language)
	if err != nil {
		return synthesis.Audio{}, capability.TransientError(a.name, err)
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", token)).
		SetHeader("Content-Type", "application/ssml+xml").
		SetHeader("X-Microsoft-OutputFormat", outputFormat).
		SetBody(ssml).
		Post(a.endpoint)
	body, err := providerhttp.Check(a.name, resp, err)
	if err != nil {
		if capability.Classify(err) == capability.OutcomeConfiguration {
			a.tokens.Invalidate()
		}
		return synthesis.Audio{}, err
	}
	if len(body) == 0 {
		return synthesis.Audio{}, capability.EmptyResultError(a.name, "no audio content")
	}

	rate := req.Options.SpeakingRateOr()
	return synthesis.Audio{
		Content:         body,
		Format:          "mp3",
		ContentType:     "audio/mpeg",
		Voice:           voice,
		DurationSeconds: synthesis.EstimateDurationSeconds(req.Text, rate),
	}, nil
}

// BuildSSML renders the request as a single-voice SSML document. Pitch is
// given in semitones and volume gain in decibels, matching the Google
// parameters; both are converted to Azure prosody values.
func BuildSSML(req synthesis.Request, voice, language string) (string, error) {
	var text bytes.Buffer
	if err := xml.EscapeText(&text, []byte(req.Text)); err != nil {
		return "", fmt.Errorf("escape text: %w", err)
	}

	pitch := "default"
	if req.Options.Pitch != nil {
		pitch = fmt.Sprintf("%+.1fst", *req.Options.Pitch)
	}
	volume := "default"
	if req.Options.VolumeGainDb != nil {
		change := (math.Pow(10, *req.Options.VolumeGainDb/20) - 1) * 100
		volume = fmt.Sprintf("%+.0f%%", math.Max(change, -100))
	}

	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s"><voice name="%s"><prosody rate="%.2f" pitch="%s" volume="%s">%s</prosody></voice></speak>`,
		escapeAttr(language), escapeAttr(voice), req.Options.SpeakingRateOr(), pitch, volume, text.String(),
	), nil
}

func escapeAttr(value string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(value))
	return b.String()
}
