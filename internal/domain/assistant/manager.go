// Package assistant reports on and exercises the capability chains without
// going through usage metering.
package assistant

import (
	"context"
	"errors"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/chat"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/domain/synthesis"
)

const (
	selfTestMessage   = "Hello, this is a test message."
	selfTestSpeech    = "Hello, this is a test."
	selfTestAudioSize = 2048

	localServicesLabel = "Local Fallback Services"
)

// Chain is the part of an orchestrator the manager needs.
type Chain[Req, Res any] interface {
	Handle(ctx context.Context, req Req) (*capability.Result[Res], error)
	Chain() []string
	Stats() capability.Stats
}

// ProviderStatus describes one provider bound to a capability.
type ProviderStatus struct {
	Name             string           `json:"name"`
	DisplayName      string           `json:"displayName"`
	HasCredentials   bool             `json:"hasCredentials"`
	RateLimits       map[string]int64 `json:"rateLimits,omitempty"`
	SupportedFormats []string         `json:"supportedFormats,omitempty"`
}

// CapabilityStatus describes one fallback chain.
type CapabilityStatus struct {
	Capability        capability.Capability `json:"capability"`
	Label             string                `json:"label"`
	Available         bool                  `json:"available"`
	PreferredProvider string                `json:"preferredProvider"`
	Chain             []string              `json:"chain"`
	Providers         []ProviderStatus      `json:"providers"`
	Stats             capability.Stats      `json:"stats"`
}

// Configuration summarises which hosted providers have credentials.
type Configuration struct {
	HasAPIKeys         bool     `json:"hasApiKeys"`
	ConfiguredServices []string `json:"servicesConfigured"`
}

// Status is the full services report.
type Status struct {
	Chat          CapabilityStatus `json:"chat"`
	SpeechToText  CapabilityStatus `json:"speechToText"`
	TextToSpeech  CapabilityStatus `json:"textToSpeech"`
	Configuration Configuration    `json:"configuration"`
}

// TestResult is the outcome of one self-test call.
type TestResult struct {
	Success  bool                 `json:"success"`
	Service  string               `json:"service,omitempty"`
	Degraded bool                 `json:"degraded"`
	Response string               `json:"response,omitempty"`
	Error    string               `json:"error,omitempty"`
	Attempts []capability.Attempt `json:"attempts,omitempty"`
}

// SelfTestReport holds one result per capability.
type SelfTestReport struct {
	Chat         TestResult `json:"chat"`
	SpeechToText TestResult `json:"speechToText"`
	TextToSpeech TestResult `json:"textToSpeech"`
}

// Manager is the services facade. It holds no usage meter, so self-tests are never billed.
type Manager struct {
	selector  *capability.Selector
	chat      Chain[chat.Request, chat.Response]
	speech    Chain[speech.Request, speech.Transcript]
	synthesis Chain[synthesis.Request, synthesis.Audio]
	log       zerolog.Logger
}

func NewManager(
	selector *capability.Selector,
	chatChain Chain[chat.Request, chat.Response],
	speechChain Chain[speech.Request, speech.Transcript],
	synthesisChain Chain[synthesis.Request, synthesis.Audio],
	log zerolog.Logger,
) *Manager {
	return &Manager{
		selector:  selector,
		chat:      chatChain,
		speech:    speechChain,
		synthesis: synthesisChain,
		log:       log.With().Str("component", "assistant-manager").Logger(),
	}
}

// Status reports every chain and the credential summary.
func (m *Manager) Status() Status {
	return Status{
		Chat:          m.capabilityStatus(capability.Chat, m.chat.Chain(), m.chat.Stats()),
		SpeechToText:  m.capabilityStatus(capability.SpeechToText, m.speech.Chain(), m.speech.Stats()),
		TextToSpeech:  m.capabilityStatus(capability.TextToSpeech, m.synthesis.Chain(), m.synthesis.Stats()),
		Configuration: m.configuration(),
	}
}

func (m *Manager) capabilityStatus(c capability.Capability, chain []string, stats capability.Stats) CapabilityStatus {
	providers := m.selector.Providers(c)
	statuses := make([]ProviderStatus, 0, len(providers))
	for _, p := range providers {
		status := ProviderStatus{
			Name:             p.Name,
			DisplayName:      p.DisplayName,
			HasCredentials:   p.Credentialed,
			SupportedFormats: p.Formats,
		}
		if p.Credentialed {
			status.RateLimits = p.RateLimits
		}
		statuses = append(statuses, status)
	}
	preferred := capability.LocalProvider
	if len(chain) > 0 {
		preferred = chain[0]
	}
	return CapabilityStatus{
		Capability:        c,
		Label:             c.Label(),
		Available:         len(chain) > 0,
		PreferredProvider: preferred,
		Chain:             chain,
		Providers:         statuses,
		Stats:             stats,
	}
}

func (m *Manager) configuration() Configuration {
	var services []string
	for _, c := range capability.All() {
		for _, p := range m.selector.Providers(c) {
			if p.IsLocal() || !p.Credentialed {
				continue
			}
			name := serviceName(c, p)
			if !slices.Contains(services, name) {
				services = append(services, name)
			}
		}
	}
	cfg := Configuration{HasAPIKeys: len(services) > 0, ConfiguredServices: services}
	if len(services) == 0 {
		cfg.ConfiguredServices = []string{localServicesLabel}
	}
	return cfg
}

// SelfTest runs each chain once with a fixed payload. The three chains run
// concurrently; each one still tries its providers one at a time.
func (m *Manager) SelfTest(ctx context.Context) SelfTestReport {
	var (
		report SelfTestReport
		g      errgroup.Group
	)

	g.Go(func() error {
		result, err := m.chat.Handle(ctx, chat.Request{Message: selfTestMessage})
		report.Chat = testResult(result, err, func(r chat.Response) string { return r.Text })
		return nil
	})
	g.Go(func() error {
		req := speech.Request{Audio: make([]byte, selfTestAudioSize)}
		result, err := m.speech.Handle(ctx, req)
		report.SpeechToText = testResult(result, err, func(t speech.Transcript) string { return t.Text })
		return nil
	})
	g.Go(func() error {
		result, err := m.synthesis.Handle(ctx, synthesis.Request{Text: selfTestSpeech})
		report.TextToSpeech = testResult(result, err, func(synthesis.Audio) string { return "" })
		return nil
	})
	_ = g.Wait()

	m.log.Info().
		Bool("chat", report.Chat.Success).
		Bool("speech_to_text", report.SpeechToText.Success).
		Bool("text_to_speech", report.TextToSpeech.Success).
		Msg("self-test finished")
	return report
}

func testResult[Res any](result *capability.Result[Res], err error, text func(Res) string) TestResult {
	if err != nil {
		out := TestResult{Error: err.Error()}
		var exhausted *capability.ExhaustedError
		if errors.As(err, &exhausted) {
			out.Attempts = exhausted.Attempts
		}
		return out
	}
	return TestResult{
		Success:  true,
		Service:  result.ServingProvider,
		Degraded: result.Degraded,
		Response: text(result.Payload),
		Attempts: result.Attempts,
	}
}

// Voices returns the voice catalogue for a language.
func (m *Manager) Voices(language string) []synthesis.Voice {
	return synthesis.Voices(language)
}
