package domain

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/config"
	"github.com/janhq/sense-api/internal/domain/assistant"
	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/chat"
	"github.com/janhq/sense-api/internal/domain/metered"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/domain/synthesis"
	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/pkg/telemetry"
)

// ProvideSelector builds the provider selector from the catalogue.
func ProvideSelector(catalog *config.ProviderCatalog) *capability.Selector {
	return capability.NewSelector(
		capability.PrioritiesFromCatalog(catalog),
		capability.ProviderConfigsFromCatalog(catalog),
	)
}

// ProvideQuotaTable overlays catalogue quotas on the defaults.
func ProvideQuotaTable(catalog *config.ProviderCatalog) (usage.QuotaTable, error) {
	if catalog == nil {
		return usage.DefaultQuotaTable(), nil
	}
	return usage.ParseQuotaTable(catalog.Quotas)
}

// ProvideMeter provides the usage meter.
func ProvideMeter(store usage.Store, quotas usage.QuotaTable, observer usage.Observer, log zerolog.Logger) *usage.Meter {
	return usage.NewMeter(store, quotas, log, usage.WithObserver(observer))
}

// ProvideUsageService provides the account service.
func ProvideUsageService(store usage.Store, log zerolog.Logger) usage.Service {
	return usage.NewService(store, log)
}

// ProvideGate provides the metering gate shared by the capability services.
func ProvideGate(accounts usage.Service, meter *usage.Meter, cfg *config.Config) *metered.Gate {
	return metered.NewGate(accounts, meter, cfg.OrchestrationTimeout)
}

// ProvideOrchestratorOptions provides the options shared by all orchestrators.
func ProvideOrchestratorOptions(cfg *config.Config, observer capability.Observer, sanitizer *telemetry.Sanitizer) capability.Options {
	return capability.Options{
		ProviderTimeout: cfg.ProviderTimeout,
		Observer:        observer,
		Sanitizer:       sanitizer,
	}
}

// ProvideChatOrchestrator provides the chat fallback chain.
func ProvideChatOrchestrator(selector *capability.Selector, adapters []chat.Adapter, opts capability.Options, log zerolog.Logger) *chat.Orchestrator {
	return capability.NewOrchestrator(capability.Chat, selector, adapters, opts, log)
}

// ProvideSpeechOrchestrator provides the speech-to-text fallback chain.
func ProvideSpeechOrchestrator(selector *capability.Selector, adapters []speech.Adapter, opts capability.Options, log zerolog.Logger) *speech.Orchestrator {
	return capability.NewOrchestrator(capability.SpeechToText, selector, adapters, opts, log)
}

// ProvideSynthesisOrchestrator provides the text-to-speech fallback chain.
func ProvideSynthesisOrchestrator(selector *capability.Selector, adapters []synthesis.Adapter, opts capability.Options, log zerolog.Logger) *synthesis.Orchestrator {
	return capability.NewOrchestrator(capability.TextToSpeech, selector, adapters, opts, log)
}

// ProvideManager provides the services manager. It gets the orchestrators,
// never the gate, so nothing it runs is metered.
func ProvideManager(
	selector *capability.Selector,
	chatOrchestrator *chat.Orchestrator,
	speechOrchestrator *speech.Orchestrator,
	synthesisOrchestrator *synthesis.Orchestrator,
	log zerolog.Logger,
) *assistant.Manager {
	return assistant.NewManager(selector, chatOrchestrator, speechOrchestrator, synthesisOrchestrator, log)
}

// ServiceProvider provides all domain services.
var ServiceProvider = wire.NewSet(
	ProvideSelector,
	ProvideQuotaTable,
	ProvideMeter,
	ProvideUsageService,
	ProvideGate,
	ProvideOrchestratorOptions,
	ProvideChatOrchestrator,
	ProvideSpeechOrchestrator,
	ProvideSynthesisOrchestrator,
	ProvideManager,
	chat.NewService,
	speech.NewService,
	synthesis.NewService,
)
