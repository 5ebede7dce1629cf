// Package local holds the built-in fallback adapters. They never call out,
// never need credentials, and label every result as degraded.
package local

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode/utf8"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/chat"
)

// FallbackModel is reported as the model of local chat replies.
const FallbackModel = "local-fallback"

// ChatNote marks a local chat reply.
const ChatNote = "This is a fallback response. For better answers, please configure API keys for Groq or Hugging Face."

var chatReplies = map[string][]string{
	"greeting": {
		"Hello! I'm Sense AI, your accessible AI assistant. How can I help you today?",
		"Hi there! I'm here to assist you. What would you like to know?",
		"Greetings! I'm Sense AI, ready to help with your questions.",
	},
	"help": {
		"I can help you with various tasks including voice-to-text, text-to-speech, and general questions. What specific help do you need?",
		"I'm designed to be an accessible AI assistant. I can help with accessibility features, answer questions, and assist with daily tasks.",
		"I'm here to help! I can assist with accessibility features, answer questions, and provide support. What do you need help with?",
	},
	"accessibility": {
		"I'm designed with accessibility in mind. I can help with voice features, text processing, and making technology more accessible for everyone.",
		"Accessibility is my core focus. I can assist with voice-to-text, text-to-speech, and other accessibility features.",
		"I'm built to be accessible and inclusive. How can I help make technology more accessible for you?",
	},
	"default": {
		"I understand you're asking about that. While I'm in fallback mode, I can still help with basic questions and accessibility features.",
		"That's an interesting question. I'm currently using a simplified response system, but I'm still here to help!",
		"I'm processing your request. In fallback mode, I can provide basic assistance and information.",
	},
}

// ChatAdapter answers from keyword-matched canned replies.
type ChatAdapter struct{}

// NewChatAdapter returns the local chat fallback.
func NewChatAdapter() *ChatAdapter {
	return &ChatAdapter{}
}

func (a *ChatAdapter) Name() string {
	return capability.LocalProvider
}

func (a *ChatAdapter) Execute(ctx context.Context, req chat.Request) (chat.Response, error) {
	if err := ctx.Err(); err != nil {
		return chat.Response{}, err
	}

	reply := pick(chatReplies[topic(req.Message)], req.Message)
	prompt := utf8.RuneCountInString(req.Message)
	completion := utf8.RuneCountInString(reply)
	return chat.Response{
		Text:  reply,
		Model: FallbackModel,
		Usage: chat.TokenUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
		Note: ChatNote,
	}, nil
}

func topic(message string) string {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	has := func(keywords ...string) bool {
		for _, w := range words {
			for _, k := range keywords {
				if w == k {
					return true
				}
			}
		}
		return false
	}
	switch {
	case has("hello", "hi", "hey"):
		return "greeting"
	case has("help", "assist", "assistance"):
		return "help"
	case has("accessibility", "accessible"):
		return "accessibility"
	default:
		return "default"
	}
}

// pick chooses a reply deterministically so the same input yields the same
// fallback text.
func pick(options []string, seed string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return options[int(h.Sum32()%uint32(len(options)))]
}
