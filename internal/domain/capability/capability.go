package capability

import (
	"fmt"
	"strings"

	"github.com/janhq/sense-api/internal/config"
)

// Capability is one of the AI functions served through a fallback chain.
type Capability string

const (
	Chat         Capability = "chat"
	SpeechToText Capability = "speech_to_text"
	TextToSpeech Capability = "text_to_speech"
)

// LocalProvider is the id of the built-in fallback adapter for every capability.
const LocalProvider = "local"

// All returns every capability in display order.
func All() []Capability {
	return []Capability{Chat, SpeechToText, TextToSpeech}
}

// Parse validates a capability name.
func Parse(raw string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range All() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown capability %q", raw)
}

// Label is the human readable capability name.
func (c Capability) Label() string {
	switch c {
	case Chat:
		return "Chat"
	case SpeechToText:
		return "Speech-to-Text"
	case TextToSpeech:
		return "Text-to-Speech"
	default:
		return string(c)
	}
}

// DefaultPriorities is the fallback order used when the catalogue omits one.
func DefaultPriorities() map[Capability][]string {
	return map[Capability][]string{
		Chat:         {"groq", "huggingface", LocalProvider},
		SpeechToText: {"google", "azure", "whisper", LocalProvider},
		TextToSpeech: {"google", "azure", LocalProvider},
	}
}

// ProviderConfig binds one provider to one capability. Values are built once
// at startup and shared read-only.
type ProviderConfig struct {
	Name          string           `json:"name"`
	DisplayName   string           `json:"displayName"`
	Capability    Capability       `json:"capability"`
	Credentialed  bool             `json:"hasCredentials"`
	APIKey        string           `json:"-"`
	BaseURL       string           `json:"-"`
	Region        string           `json:"region,omitempty"`
	ProjectID     string           `json:"-"`
	Model         string           `json:"model,omitempty"`
	Voice         string           `json:"voice,omitempty"`
	Language      string           `json:"language,omitempty"`
	Gender        string           `json:"gender,omitempty"`
	RateLimits    map[string]int64 `json:"rateLimits,omitempty"`
	Formats       []string         `json:"supportedFormats,omitempty"`
	SetupURL      string           `json:"setupUrl,omitempty"`
	SetupPriority string           `json:"setupPriority,omitempty"`
}

// IsLocal reports whether this is the built-in fallback.
func (p ProviderConfig) IsLocal() bool {
	return p.Name == LocalProvider
}

// ProviderConfigsFromCatalog converts catalogue entries for known capabilities.
func ProviderConfigsFromCatalog(catalog *config.ProviderCatalog) []ProviderConfig {
	if catalog == nil {
		return nil
	}
	configs := make([]ProviderConfig, 0, len(catalog.Providers))
	for _, entry := range catalog.Providers {
		c, err := Parse(entry.Capability)
		if err != nil {
			continue
		}
		configs = append(configs, ProviderConfig{
			Name:          entry.ID,
			DisplayName:   entry.Name,
			Capability:    c,
			Credentialed:  entry.Credentialed || entry.ID == LocalProvider,
			APIKey:        entry.APIKey,
			BaseURL:       entry.BaseURL,
			Region:        entry.Region,
			ProjectID:     entry.ProjectID,
			Model:         entry.Model,
			Voice:         entry.Voice,
			Language:      entry.Language,
			Gender:        entry.Gender,
			RateLimits:    entry.RateLimits,
			Formats:       entry.Formats,
			SetupURL:      entry.SetupURL,
			SetupPriority: entry.Priority,
		})
	}
	return configs
}

// PrioritiesFromCatalog converts the catalogue priorities, ignoring unknown capabilities.
func PrioritiesFromCatalog(catalog *config.ProviderCatalog) map[Capability][]string {
	priorities := make(map[Capability][]string)
	if catalog == nil {
		return priorities
	}
	for raw, order := range catalog.Priorities {
		c, err := Parse(raw)
		if err != nil {
			continue
		}
		priorities[c] = append([]string(nil), order...)
	}
	return priorities
}
