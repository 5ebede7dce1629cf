// Package providers turns the provider catalogue into adapter chains.
package providers

import (
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/chat"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/domain/synthesis"
	"github.com/janhq/sense-api/internal/infrastructure/providers/azure"
	"github.com/janhq/sense-api/internal/infrastructure/providers/google"
	"github.com/janhq/sense-api/internal/infrastructure/providers/huggingface"
	"github.com/janhq/sense-api/internal/infrastructure/providers/local"
	"github.com/janhq/sense-api/internal/infrastructure/providers/openaicompat"
	"github.com/janhq/sense-api/internal/utils/httpclients"
	"github.com/janhq/sense-api/pkg/telemetry"
)

// Registry holds one adapter per known provider for each capability.
type Registry struct {
	Chat      []chat.Adapter
	Speech    []speech.Adapter
	Synthesis []synthesis.Adapter
}

// ClientFactory builds the HTTP client used by one provider.
type ClientFactory func(provider string) *resty.Client

// DefaultClientFactory returns logging resty clients.
func DefaultClientFactory(log zerolog.Logger, sanitizer *telemetry.Sanitizer) ClientFactory {
	return func(provider string) *resty.Client {
		return httpclients.NewClient(provider, log, sanitizer)
	}
}

// NewRegistry builds adapters for every provider the selector knows.
// Providers without a matching adapter implementation are logged and skipped;
// local is always registered.
func NewRegistry(selector *capability.Selector, clients ClientFactory, log zerolog.Logger) *Registry {
	log = log.With().Str("component", "provider_registry").Logger()
	registry := &Registry{}
	tokenSources := make(map[string]*azure.TokenSource)
	httpClients := make(map[string]*resty.Client)

	client := func(name string) *resty.Client {
		if c, ok := httpClients[name]; ok {
			return c
		}
		c := clients(name)
		httpClients[name] = c
		return c
	}
	azureTokens := func(cfg capability.ProviderConfig) *azure.TokenSource {
		key := cfg.Region + "|" + cfg.BaseURL + "|" + cfg.APIKey
		if ts, ok := tokenSources[key]; ok {
			return ts
		}
		endpoints := azure.RegionalEndpoints(cfg.Region, cfg.BaseURL)
		ts := azure.NewTokenSource(cfg.Name, cfg.APIKey, endpoints.Token, client(cfg.Name))
		tokenSources[key] = ts
		return ts
	}

	for _, cfg := range selector.Providers(capability.Chat) {
		switch cfg.Name {
		case capability.LocalProvider:
			registry.Chat = append(registry.Chat, local.NewChatAdapter())
		case "groq":
			registry.Chat = append(registry.Chat, openaicompat.NewChatAdapter(cfg, client(cfg.Name)))
		case "huggingface":
			registry.Chat = append(registry.Chat, huggingface.NewChatAdapter(cfg, client(cfg.Name)))
		default:
			// Any other catalogue entry is assumed to speak the OpenAI API.
			registry.Chat = append(registry.Chat, openaicompat.NewChatAdapter(cfg, client(cfg.Name)))
		}
	}

	for _, cfg := range selector.Providers(capability.SpeechToText) {
		switch cfg.Name {
		case capability.LocalProvider:
			registry.Speech = append(registry.Speech, local.NewSpeechAdapter())
		case "google":
			registry.Speech = append(registry.Speech, google.NewSpeechAdapter(cfg, client(cfg.Name)))
		case "azure":
			registry.Speech = append(registry.Speech, azure.NewSpeechAdapter(cfg, azureTokens(cfg), client(cfg.Name)))
		case "whisper":
			registry.Speech = append(registry.Speech, openaicompat.NewTranscriptionAdapter(cfg, client(cfg.Name)))
		default:
			log.Warn().Str("provider", cfg.Name).Str("capability", string(cfg.Capability)).Msg("no adapter for provider, skipping")
		}
	}

	for _, cfg := range selector.Providers(capability.TextToSpeech) {
		switch cfg.Name {
		case capability.LocalProvider:
			registry.Synthesis = append(registry.Synthesis, local.NewTTSAdapter())
		case "google":
			registry.Synthesis = append(registry.Synthesis, google.NewTTSAdapter(cfg, client(cfg.Name)))
		case "azure":
			registry.Synthesis = append(registry.Synthesis, azure.NewTTSAdapter(cfg, azureTokens(cfg), client(cfg.Name)))
		default:
			log.Warn().Str("provider", cfg.Name).Str("capability", string(cfg.Capability)).Msg("no adapter for provider, skipping")
		}
	}

	log.Info().
		Int("chat", len(registry.Chat)).
		Int("speech_to_text", len(registry.Speech)).
		Int("text_to_speech", len(registry.Synthesis)).
		Msg("provider adapters registered")
	return registry
}
