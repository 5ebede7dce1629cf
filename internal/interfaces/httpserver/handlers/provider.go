package handlers

import (
	"github.com/google/wire"

	"github.com/janhq/sense-api/internal/domain/assistant"
	"github.com/janhq/sense-api/internal/domain/usage"
)

// Provider holds all HTTP handlers.
type Provider struct {
	AI       *AIHandler
	Services *ServicesHandler
	Usage    *UsageHandler
}

// NewProvider creates a new handler provider.
func NewProvider(ai *AIHandler, services *ServicesHandler, usageHandler *UsageHandler) *Provider {
	return &Provider{AI: ai, Services: services, Usage: usageHandler}
}

// HandlerProvider provides all handlers for wire.
var HandlerProvider = wire.NewSet(
	NewAIHandler,
	NewServicesHandler,
	NewUsageHandler,
	NewProvider,
	wire.Bind(new(ServicesManager), new(*assistant.Manager)),
	wire.Bind(new(UsageReporter), new(*usage.Meter)),
)
