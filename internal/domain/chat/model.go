package chat

import (
	"strings"

	"github.com/janhq/sense-api/internal/domain/capability"
)

const (
	// DefaultTemperature and DefaultMaxTokens apply when options omit them.
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000

	// SystemPrompt is sent ahead of the conversation to hosted models.
	SystemPrompt = "You are Sense AI, an accessible AI assistant designed to help users with accessibility features, voice-to-text, text-to-speech, and general assistance. Be helpful, inclusive, and focus on accessibility."
)

// Role is a conversation role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn of the conversation.
type Message struct {
	Role    Role   `json:"role" validate:"oneof=user assistant system"`
	Content string `json:"content"`
}

// Options are the recognized chat parameters.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int     `json:"maxTokens,omitempty" validate:"omitempty,gte=1,lte=8192"`
}

// TemperatureOr returns the requested temperature or def.
func (o Options) TemperatureOr(def float64) float64 {
	if o.Temperature == nil {
		return def
	}
	return *o.Temperature
}

// MaxTokensOr returns the requested output size or def.
func (o Options) MaxTokensOr(def int) int {
	if o.MaxTokens == nil {
		return def
	}
	return *o.MaxTokens
}

// Request is a chat turn.
type Request struct {
	Message string    `json:"message" validate:"required,max=4000"`
	History []Message `json:"history,omitempty" validate:"dive"`
	Options Options   `json:"options"`
}

// Validate rejects requests that never reach a provider. The message is
// checked after trimming.
func (r Request) Validate() error {
	r.Message = strings.TrimSpace(r.Message)
	return capability.ValidateStruct(r)
}

// RecentHistory returns at most the last n messages.
func RecentHistory(history []Message, n int) []Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// TokenUsage is what the serving provider reported for the turn.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Response is the assistant's reply.
type Response struct {
	Text  string     `json:"response"`
	Model string     `json:"model,omitempty"`
	Usage TokenUsage `json:"tokenUsage"`
	Note  string     `json:"note,omitempty"`
}

// Adapter is a chat provider.
type Adapter = capability.Adapter[Request, Response]

// Orchestrator is the chat fallback chain.
type Orchestrator = capability.Orchestrator[Request, Response]
