// Package openaicompat adapts OpenAI-compatible endpoints (Groq and any
// hosted Whisper deployment) to the capability adapters.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/chat"
	"github.com/janhq/sense-api/internal/infrastructure/providers/providerhttp"
)

const (
	historyWindow = 10
	defaultModel  = "llama3-8b-8192"
)

// ChatAdapter calls POST {base}/chat/completions.
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

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", a.apiKey)).
		SetBody(a.completionRequest(req)).
		Post(providerhttp.Endpoint(a.baseURL, "chat/completions"))
	body, err := providerhttp.Check(a.name, resp, err)
	if err != nil {
		return chat.Response{}, err
	}

	var completion openai.ChatCompletionResponse
	if err := providerhttp.DecodeJSON(a.name, body, &completion); err != nil {
		return chat.Response{}, err
	}
	if len(completion.Choices) == 0 {
		return chat.Response{}, capability.EmptyResultError(a.name, "no choices returned")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return chat.Response{}, capability.EmptyResultError(a.name, "empty completion")
	}

	model := completion.Model
	if model == "" {
		model = a.model
	}
	return chat.Response{
		Text:  text,
		Model: model,
		Usage: chat.TokenUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}, nil
}

func (a *ChatAdapter) completionRequest(req chat.Request) openai.ChatCompletionRequest {
	history := chat.RecentHistory(req.History, historyWindow)
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: chat.SystemPrompt,
	})
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: string(msg.Role), Content: msg.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	return openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: float32(req.Options.TemperatureOr(chat.DefaultTemperature)),
		MaxTokens:   req.Options.MaxTokensOr(chat.DefaultMaxTokens),
		TopP:        1,
	}
}
