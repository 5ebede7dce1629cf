// Package responses contains HTTP response DTOs and error writers.
package responses

import (
	"encoding/base64"

	"github.com/janhq/sense-api/internal/domain/metered"
	"github.com/janhq/sense-api/internal/domain/synthesis"
)

// Error kinds reported in failure envelopes.
const (
	ErrorKindQuotaExceeded         = "QuotaExceeded"
	ErrorKindAllProvidersExhausted = "AllProvidersExhausted"
	ErrorKindInvalidInput          = "InvalidInput"
)

// Envelope wraps every successful capability response.
type Envelope[T any] struct {
	Success         bool          `json:"success"`
	Payload         T             `json:"payload"`
	ServingProvider string        `json:"servingProvider"`
	Degraded        bool          `json:"degraded"`
	Usage           metered.Usage `json:"usage"`
	RequestID       string        `json:"requestId,omitempty"`
}

// Failure is the envelope for quota, exhaustion and input errors.
type Failure struct {
	Success   bool           `json:"success"`
	ErrorKind string         `json:"errorKind"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

// Data wraps non-metered responses such as status and usage reports.
type Data[T any] struct {
	Success   bool   `json:"success"`
	Data      T      `json:"data"`
	RequestID string `json:"requestId,omitempty"`
}

// NewEnvelope builds a success envelope from a metered outcome.
func NewEnvelope[Res, T any](outcome *metered.Outcome[Res], payload T, requestID string) Envelope[T] {
	return Envelope[T]{
		Success:         true,
		Payload:         payload,
		ServingProvider: outcome.ServingProvider,
		Degraded:        outcome.Degraded,
		Usage:           outcome.Usage,
		RequestID:       requestID,
	}
}

// NewData builds a success wrapper.
func NewData[T any](data T, requestID string) Data[T] {
	return Data[T]{Success: true, Data: data, RequestID: requestID}
}

// AudioPayload is synthesized audio with base64 content.
type AudioPayload struct {
	AudioContent    string  `json:"audioContent"`
	Format          string  `json:"format"`
	ContentType     string  `json:"contentType"`
	Voice           string  `json:"voice"`
	DurationSeconds float64 `json:"durationSeconds"`
	Note            string  `json:"note,omitempty"`
}

// NewAudioPayload encodes synthesized audio for JSON.
func NewAudioPayload(audio synthesis.Audio) AudioPayload {
	return AudioPayload{
		AudioContent:    base64.StdEncoding.EncodeToString(audio.Content),
		Format:          audio.Format,
		ContentType:     audio.ContentType,
		Voice:           audio.Voice,
		DurationSeconds: audio.DurationSeconds,
		Note:            audio.Note,
	}
}
