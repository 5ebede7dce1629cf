package google_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/domain/synthesis"
	"github.com/janhq/sense-api/internal/infrastructure/providers/google"
)

func TestSpeechAdapter_Execute(t *testing.T) {
	audio := make([]byte, 4096)
	var received map[string]map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech:recognize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "g-key" {
			t.Errorf("unexpected key %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		_, _ = w.Write([]byte(`{"results":[{"alternatives":[{"transcript":"turn on captions","confidence":0.93}]}]}`))
	}))
	defer server.Close()

	adapter := google.NewSpeechAdapter(capability.ProviderConfig{
		Name:    "google",
		APIKey:  "g-key",
		BaseURL: server.URL + "/v1",
	}, resty.New())

	transcript, err := adapter.Execute(context.Background(), speech.Request{Audio: audio})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if transcript.Text != "turn on captions" || transcript.Confidence != 0.93 || transcript.Language != "en-US" {
		t.Errorf("unexpected transcript %+v", transcript)
	}

	cfg := received["config"]
	if cfg["encoding"] != "WEBM_OPUS" || cfg["sampleRateHertz"] != float64(48000) || cfg["model"] != "latest_long" {
		t.Errorf("unexpected config %v", cfg)
	}
	if cfg["enableAutomaticPunctuation"] != true {
		t.Errorf("expected automatic punctuation")
	}
	if received["audio"]["content"] != base64.StdEncoding.EncodeToString(audio) {
		t.Errorf("audio not base64 encoded")
	}
}

func TestSpeechAdapter_DefaultConfidenceAndEmpty(t *testing.T) {
	body := `{"results":[{"alternatives":[{"transcript":"hello"}]}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	adapter := google.NewSpeechAdapter(capability.ProviderConfig{Name: "google", APIKey: "k", BaseURL: server.URL}, resty.New())
	transcript, err := adapter.Execute(context.Background(), speech.Request{Audio: make([]byte, 2048)})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if transcript.Confidence != 0.8 {
		t.Errorf("expected default confidence 0.8, got %v", transcript.Confidence)
	}

	body = `{}`
	_, err = adapter.Execute(context.Background(), speech.Request{Audio: make([]byte, 2048)})
	if capability.Classify(err) != capability.OutcomeEmpty {
		t.Fatalf("expected empty result, got %v", err)
	}
}

func TestTTSAdapter_Execute(t *testing.T) {
	audio := []byte("ID3-mp3-bytes")
	var received map[string]map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text:synthesize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(map[string]string{"audioContent": base64.StdEncoding.EncodeToString(audio)})
	}))
	defer server.Close()

	adapter := google.NewTTSAdapter(capability.ProviderConfig{
		Name:    "google",
		APIKey:  "g-key",
		BaseURL: server.URL + "/v1",
		Voice:   "en-US-Wavenet-D",
		Gender:  "NEUTRAL",
	}, resty.New())

	rate, pitch := 1.5, -2.0
	result, err := adapter.Execute(context.Background(), synthesis.Request{
		Text:    "Read this aloud please",
		Options: synthesis.Options{Voice: "en-US-Wavenet-F", SpeakingRate: &rate, Pitch: &pitch},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if string(result.Content) != string(audio) || result.Format != "mp3" || result.Voice != "en-US-Wavenet-F" {
		t.Errorf("unexpected audio %+v", result)
	}
	if result.DurationSeconds != synthesis.EstimateDurationSeconds("Read this aloud please", rate) {
		t.Errorf("unexpected duration %v", result.DurationSeconds)
	}
	if received["voice"]["name"] != "en-US-Wavenet-F" || received["voice"]["ssmlGender"] != "NEUTRAL" {
		t.Errorf("unexpected voice %v", received["voice"])
	}
	if received["audioConfig"]["speakingRate"] != 1.5 || received["audioConfig"]["pitch"] != -2.0 {
		t.Errorf("unexpected audio config %v", received["audioConfig"])
	}
}

func TestTTSAdapter_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   capability.Outcome
	}{
		{"bad key", http.StatusBadRequest, `{"error":{"message":"API key not valid. Please pass a valid API key."}}`, capability.OutcomeConfiguration},
		{"quota", http.StatusTooManyRequests, `{}`, capability.OutcomeTransient},
		{"no audio", http.StatusOK, `{"audioContent":""}`, capability.OutcomeEmpty},
		{"bad base64", http.StatusOK, `{"audioContent":"***"}`, capability.OutcomeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := google.NewTTSAdapter(capability.ProviderConfig{Name: "google", APIKey: "k", BaseURL: server.URL}, resty.New())
			_, err := adapter.Execute(context.Background(), synthesis.Request{Text: "hello"})
			if got := capability.Classify(err); got != tt.want {
				t.Fatalf("expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}
