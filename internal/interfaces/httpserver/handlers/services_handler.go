package handlers

import (
	"context"

	"github.com/janhq/sense-api/internal/domain/assistant"
	"github.com/janhq/sense-api/internal/domain/synthesis"
)

// ServicesManager is the status and self-test surface of assistant.Manager.
type ServicesManager interface {
	Status() assistant.Status
	SelfTest(ctx context.Context) assistant.SelfTestReport
	Recommendations() []assistant.Recommendation
	Voices(language string) []synthesis.Voice
}

// ServicesHandler serves the unmetered service-management endpoints.
type ServicesHandler struct {
	manager ServicesManager
}

// NewServicesHandler creates a new services handler.
func NewServicesHandler(manager ServicesManager) *ServicesHandler {
	return &ServicesHandler{manager: manager}
}

func (h *ServicesHandler) Status() assistant.Status {
	return h.manager.Status()
}

func (h *ServicesHandler) SelfTest(ctx context.Context) assistant.SelfTestReport {
	return h.manager.SelfTest(ctx)
}

func (h *ServicesHandler) Recommendations() []assistant.Recommendation {
	return h.manager.Recommendations()
}

func (h *ServicesHandler) Voices(language string) []synthesis.Voice {
	return h.manager.Voices(language)
}
