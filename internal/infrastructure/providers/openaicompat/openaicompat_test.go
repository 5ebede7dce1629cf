package openaicompat_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/chat"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/infrastructure/providers/openaicompat"
)

func chatConfig(baseURL string) capability.ProviderConfig {
	return capability.ProviderConfig{
		Name:         "groq",
		Capability:   capability.Chat,
		Credentialed: true,
		APIKey:       "gsk-test",
		BaseURL:      baseURL,
		Model:        "llama3-8b-8192",
	}
}

func TestChatAdapter_Execute(t *testing.T) {
	var received openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer gsk-test" {
			t.Errorf("unexpected authorization %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3-8b-8192","choices":[{"message":{"role":"assistant","content":" Hi! "}}],"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`))
	}))
	defer server.Close()

	history := make([]chat.Message, 0, 12)
	for i := 0; i < 12; i++ {
		history = append(history, chat.Message{Role: chat.RoleUser, Content: "turn"})
	}
	adapter := openaicompat.NewChatAdapter(chatConfig(server.URL+"/openai/v1/"), resty.New())
	resp, err := adapter.Execute(context.Background(), chat.Request{Message: "hello", History: history})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if resp.Text != "Hi!" {
		t.Errorf("expected trimmed reply, got %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
	// system prompt + last 10 history turns + the new message
	if len(received.Messages) != 12 {
		t.Fatalf("expected 12 messages, got %d", len(received.Messages))
	}
	if received.Messages[0].Role != openai.ChatMessageRoleSystem || received.Messages[0].Content != chat.SystemPrompt {
		t.Errorf("expected system prompt first, got %+v", received.Messages[0])
	}
	if last := received.Messages[11]; last.Content != "hello" {
		t.Errorf("expected user message last, got %+v", last)
	}
	if received.MaxTokens != chat.DefaultMaxTokens || received.Temperature != float32(chat.DefaultTemperature) {
		t.Errorf("expected default options, got max=%d temp=%v", received.MaxTokens, received.Temperature)
	}
}

func TestChatAdapter_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   capability.Outcome
	}{
		{"invalid key", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key"}}`, capability.OutcomeConfiguration},
		{"server error", http.StatusInternalServerError, `oops`, capability.OutcomeTransient},
		{"malformed", http.StatusOK, `not json`, capability.OutcomeTransient},
		{"no choices", http.StatusOK, `{"choices":[]}`, capability.OutcomeEmpty},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`, capability.OutcomeEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := openaicompat.NewChatAdapter(chatConfig(server.URL), resty.New())
			_, err := adapter.Execute(context.Background(), chat.Request{Message: "hello"})
			if got := capability.Classify(err); got != tt.want {
				t.Fatalf("expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}

func TestChatAdapter_MissingKey(t *testing.T) {
	cfg := chatConfig("https://api.example.com")
	cfg.APIKey = ""
	adapter := openaicompat.NewChatAdapter(cfg, resty.New())
	_, err := adapter.Execute(context.Background(), chat.Request{Message: "hello"})
	if capability.Classify(err) != capability.OutcomeConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTranscriptionAdapter_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-large-v3" {
			t.Errorf("unexpected model %q", got)
		}
		if got := r.FormValue("language"); got != "fr" {
			t.Errorf("expected base language fr, got %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file: %v", err)
		}
		data, _ := io.ReadAll(file)
		if len(data) != 2048 || !strings.HasSuffix(header.Filename, ".wav") {
			t.Errorf("unexpected upload %s (%d bytes)", header.Filename, len(data))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"task":"transcribe","language":"french","duration":4.5,"text":"bonjour"}`))
	}))
	defer server.Close()

	adapter := openaicompat.NewTranscriptionAdapter(capability.ProviderConfig{
		Name:    "whisper",
		APIKey:  "key",
		BaseURL: server.URL + "/v1",
	}, resty.New())

	transcript, err := adapter.Execute(context.Background(), speech.Request{
		Audio:   make([]byte, 2048),
		Options: speech.Options{Language: "fr-FR", Encoding: "LINEAR16"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if transcript.Text != "bonjour" || transcript.DurationSeconds != 4.5 || transcript.Language != "fr-FR" {
		t.Errorf("unexpected transcript %+v", transcript)
	}
}

func TestTranscriptionAdapter_EmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":""}`))
	}))
	defer server.Close()

	adapter := openaicompat.NewTranscriptionAdapter(capability.ProviderConfig{Name: "whisper", APIKey: "key", BaseURL: server.URL}, resty.New())
	_, err := adapter.Execute(context.Background(), speech.Request{Audio: make([]byte, 2048)})
	if capability.Classify(err) != capability.OutcomeEmpty {
		t.Fatalf("expected empty result, got %v", err)
	}
}
