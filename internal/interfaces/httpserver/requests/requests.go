// Package requests contains HTTP request DTOs for sense-api.
package requests

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/janhq/sense-api/internal/domain/chat"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/domain/synthesis"
	"github.com/janhq/sense-api/internal/domain/usage"
)

// ChatRequest is the body of POST /v1/ai/chat.
type ChatRequest struct {
	Message string         `json:"message"`
	History []chat.Message `json:"history"`
	Options chat.Options   `json:"options"`
}

// ToDomain converts the body to a chat request.
func (r ChatRequest) ToDomain() chat.Request {
	return chat.Request{Message: r.Message, History: r.History, Options: r.Options}
}

// SpeechToTextRequest is the body of POST /v1/ai/speech-to-text. Audio is
// base64, optionally as a data URL.
type SpeechToTextRequest struct {
	Audio   string         `json:"audio" binding:"required"`
	Options speech.Options `json:"options"`
}

// ToDomain decodes the audio payload. Size limits apply to the decoded bytes
// in speech.Request.Validate.
func (r SpeechToTextRequest) ToDomain() (speech.Request, error) {
	encoded := strings.TrimSpace(r.Audio)
	if strings.HasPrefix(encoded, "data:") {
		if _, data, ok := strings.Cut(encoded, ","); ok {
			encoded = data
		}
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return speech.Request{}, errors.New("audio must be base64 encoded")
	}
	return speech.Request{Audio: audio, Options: r.Options}, nil
}

// TextToSpeechRequest is the body of POST /v1/ai/text-to-speech.
type TextToSpeechRequest struct {
	Text    string            `json:"text"`
	Options synthesis.Options `json:"options"`
}

// ToDomain converts the body to a synthesis request.
func (r TextToSpeechRequest) ToDomain() synthesis.Request {
	return synthesis.Request{Text: r.Text, Options: r.Options}
}

// SubscriptionRequest is the body of PUT /v1/admin/accounts/:id/subscription.
type SubscriptionRequest struct {
	Tier      string     `json:"tier" binding:"required"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// ParsedTier validates the tier name.
func (r SubscriptionRequest) ParsedTier() (usage.Tier, error) {
	return usage.ParseTier(r.Tier)
}
