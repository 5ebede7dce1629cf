// Package huggingface adapts the Hugging Face inference API text generation
// endpoint to the chat capability.
package huggingface

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/chat"
	"github.com/janhq/sense-api/internal/infrastructure/providers/providerhttp"
)

const (
	historyWindow       = 5
	defaultMaxNewTokens = 100
	defaultModel        = "microsoft/DialoGPT-medium"
	contextPreamble     = "You are Sense AI, an accessible AI assistant. "
)

type generationRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters generationParameters `json:"parameters"`
}

type generationParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generation struct {
	GeneratedText string `json:"generated_text"`
}

// ChatAdapter calls POST {base}/{model}.
type ChatAdapter struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *resty.Client
}

// NewChatAdapter builds a chat adapter from a provider binding.
func NewChatAdapter(cfg capability.ProviderConfig, client *resty.Client) *ChatAdapter {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &ChatAdapter{
		name:    cfg.Name,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  client,
	}
}

func (a *ChatAdapter) Name() string {
	return a.name
}

func (a *ChatAdapter) Execute(ctx context.Context, req chat.Request) (chat.Response, error) {
	if strings.TrimSpace(a.apiKey) == "" || a.baseURL == "" {
		return chat.Response{}, capability.ConfigurationError(a.name, errors.New("api key and base url are required"))
	}

	prompt := BuildPrompt(req.History, req.Message)
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", a.apiKey)).
		SetBody(generationRequest{
			Inputs: prompt,
			Parameters: generationParameters{
				MaxNewTokens: req.Options.MaxTokensOr(defaultMaxNewTokens),
				Temperature:  req.Options.TemperatureOr(chat.DefaultTemperature),
			},
		}).
		Post(providerhttp.Endpoint(a.baseURL, a.model))
	body, err := providerhttp.Check(a.name, resp, err)
	if err != nil {
		return chat.Response{}, err
	}

	var generations []generation
	if err := providerhttp.DecodeJSON(a.name, body, &generations); err != nil {
		return chat.Response{}, err
	}
	if len(generations) == 0 {
		return chat.Response{}, capability.EmptyResultError(a.name, "no generations returned")
	}
	text := strings.TrimSpace(generations[0].GeneratedText)
	if text == "" {
		return chat.Response{}, capability.EmptyResultError(a.name, "empty generation")
	}

	// The endpoint reports no token counts; characters stand in for them.
	promptLen := utf8.RuneCountInString(prompt)
	completionLen := utf8.RuneCountInString(text)
	return chat.Response{
		Text:  text,
		Model: a.model,
		Usage: chat.TokenUsage{
			PromptTokens:     promptLen,
			CompletionTokens: completionLen,
			TotalTokens:      promptLen + completionLen,
		},
	}, nil
}

// BuildPrompt flattens the recent conversation into a single text prompt.
func BuildPrompt(history []chat.Message, message string) string {
	var b strings.Builder
	b.WriteString(contextPreamble)
	for _, msg := range chat.RecentHistory(history, historyWindow) {
		role := string(msg.Role)
		if role == "" {
			role = "User"
		}
		fmt.Fprintf(&b, "%s: %s ", role, msg.Content)
	}
	fmt.Fprintf(&b, "User: %s Assistant:", message)
	return b.String()
}
