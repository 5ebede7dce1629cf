package handlers

import (
	"context"

	"github.com/janhq/sense-api/internal/domain/chat"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/domain/synthesis"
)

// AIHandler serves the metered capability endpoints.
type AIHandler struct {
	chat      chat.Service
	speech    speech.Service
	synthesis synthesis.Service
}

// NewAIHandler creates a new AI handler.
func NewAIHandler(chatService chat.Service, speechService speech.Service, synthesisService synthesis.Service) *AIHandler {
	return &AIHandler{chat: chatService, speech: speechService, synthesis: synthesisService}
}

// Chat answers one chat turn for userID.
func (h *AIHandler) Chat(ctx context.Context, userID string, req chat.Request) (*chat.Reply, error) {
	return h.chat.Respond(ctx, userID, req)
}

// SpeechToText transcribes audio for userID.
func (h *AIHandler) SpeechToText(ctx context.Context, userID string, req speech.Request) (*speech.Reply, error) {
	return h.speech.Transcribe(ctx, userID, req)
}

// TextToSpeech synthesizes text for userID.
func (h *AIHandler) TextToSpeech(ctx context.Context, userID string, req synthesis.Request) (*synthesis.Reply, error) {
	return h.synthesis.Synthesize(ctx, userID, req)
}
