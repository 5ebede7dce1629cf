package assistant

import (
	"cmp"
	"slices"

	"github.com/janhq/sense-api/internal/domain/capability"
)

// Recommendation suggests a hosted provider worth configuring.
type Recommendation struct {
	Service     string `json:"service"`
	Capability  string `json:"capability"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Reason      string `json:"reason"`
}

type pitch struct {
	description string
	reason      string
}

var pitches = map[capability.Capability]map[string]pitch{
	capability.Chat: {
		"groq":        {"Free tier with 14,400 requests/day", "Fastest and most generous free tier for chat"},
		"huggingface": {"Free tier with 1,000 requests/month", "Good fallback for chat services"},
	},
	capability.SpeechToText: {
		"google":  {"Free tier with 60 minutes/month", "Best free speech-to-text service"},
		"azure":   {"Free tier with 5 hours/month", "Alternative speech services"},
		"whisper": {"Whisper transcription through an OpenAI-compatible API", "Extra speech-to-text fallback"},
	},
	capability.TextToSpeech: {
		"google": {"Free tier with 1M characters/month", "Best free text-to-speech service"},
		"azure":  {"Free tier with 5 hours/month", "Alternative speech services"},
	},
}

var priorityRank = map[string]int{"high": 0, "medium": 1, "low": 2}

// Recommendations lists hosted providers without credentials, high priority
// first. A provider serving several capabilities is listed once.
func (m *Manager) Recommendations() []Recommendation {
	var out []Recommendation
	seen := make(map[string]bool)
	for _, c := range capability.All() {
		for _, p := range m.selector.Providers(c) {
			if p.IsLocal() || p.Credentialed || p.SetupURL == "" {
				continue
			}
			name := serviceName(c, p)
			if seen[name] {
				continue
			}
			seen[name] = true

			info := pitches[c][p.Name]
			priority := p.SetupPriority
			if priority == "" {
				priority = "low"
			}
			out = append(out, Recommendation{
				Service:     name,
				Capability:  c.Label(),
				URL:         p.SetupURL,
				Description: info.description,
				Priority:    priority,
				Reason:      info.reason,
			})
		}
	}
	slices.SortStableFunc(out, func(a, b Recommendation) int {
		return cmp.Compare(rank(a.Priority), rank(b.Priority))
	})
	return out
}

func rank(priority string) int {
	if r, ok := priorityRank[priority]; ok {
		return r
	}
	return len(priorityRank)
}

func serviceName(c capability.Capability, p capability.ProviderConfig) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name + " " + c.Label()
}
