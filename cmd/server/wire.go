//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/config"
	"github.com/janhq/sense-api/internal/domain"
	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/infrastructure/metrics"
	"github.com/janhq/sense-api/internal/interfaces"
)

// ProviderSet is the wire provider set for the application.
var ProviderSet = wire.NewSet(
	// Infrastructure providers
	ProvideUsageBackend,
	ProvideUsageStore,
	ProvideReadinessCheck,
	ProvideProviderCatalog,
	ProvideSanitizer,
	ProvideAdapterRegistry,
	ProvideChatAdapters,
	ProvideSpeechAdapters,
	ProvideSynthesisAdapters,
	ProvideMetricsRecorder,
	wire.Bind(new(capability.Observer), new(*metrics.Recorder)),
	wire.Bind(new(usage.Observer), new(*metrics.Recorder)),
	ProvideAuthValidator,
	ProvideCrontab,

	// Domain providers
	domain.ServiceProvider,

	// Interface providers
	interfaces.InterfacesProvider,

	// Application
	NewApplication,
)

// CreateApplication creates the application with all dependencies wired.
func CreateApplication(
	ctx context.Context,
	cfg *config.Config,
	log zerolog.Logger,
) (*Application, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
