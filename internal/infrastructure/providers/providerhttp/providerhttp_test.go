package providerhttp_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/infrastructure/providers/providerhttp"
)

func TestCheck_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   capability.Outcome
	}{
		{"ok", http.StatusOK, `{"ok":true}`, capability.OutcomeSuccess},
		{"unauthorized", http.StatusUnauthorized, `bad key`, capability.OutcomeConfiguration},
		{"forbidden", http.StatusForbidden, ``, capability.OutcomeConfiguration},
		{"google bad key", http.StatusBadRequest, `{"error":{"status":"INVALID_ARGUMENT","details":[{"reason":"API_KEY_INVALID"}]}}`, capability.OutcomeConfiguration},
		{"bad request", http.StatusBadRequest, `{"error":"bad audio"}`, capability.OutcomeTransient},
		{"rate limited", http.StatusTooManyRequests, `slow down`, capability.OutcomeTransient},
		{"server error", http.StatusBadGateway, ``, capability.OutcomeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := resty.New()
			defer client.Close()
			resp, err := client.R().Post(server.URL)
			body, err := providerhttp.Check("test", resp, err)

			if got := capability.Classify(err); got != tt.want {
				t.Fatalf("expected %s, got %s (err=%v)", tt.want, got, err)
			}
			if tt.want == capability.OutcomeSuccess && string(body) != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, body)
			}
			var statusErr *providerhttp.StatusError
			if tt.want != capability.OutcomeSuccess && !errors.As(err, &statusErr) {
				t.Errorf("expected a StatusError in %v", err)
			}
		})
	}
}

func TestCheck_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := resty.New()
	defer client.Close()
	resp, err := client.R().Get(url)
	_, err = providerhttp.Check("test", resp, err)
	if capability.Classify(err) != capability.OutcomeTransient {
		t.Fatalf("expected transient, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Text string `json:"text"`
	}
	if err := providerhttp.DecodeJSON("test", []byte(`{"text":"hi"}`), &out); err != nil || out.Text != "hi" {
		t.Fatalf("unexpected decode result %q, %v", out.Text, err)
	}
	if err := providerhttp.DecodeJSON("test", []byte("  "), &out); capability.Classify(err) != capability.OutcomeEmpty {
		t.Errorf("expected empty result, got %v", err)
	}
	if err := providerhttp.DecodeJSON("test", []byte("<html>"), &out); capability.Classify(err) != capability.OutcomeTransient {
		t.Errorf("expected transient, got %v", err)
	}
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		base  string
		parts []string
		want  string
	}{
		{"https://api.example.com/v1/", []string{"/chat/completions"}, "https://api.example.com/v1/chat/completions"},
		{"https://api.example.com/models", []string{"org/model"}, "https://api.example.com/models/org/model"},
		{"https://speech.example.com/v1", []string{"speech:recognize"}, "https://speech.example.com/v1/speech:recognize"},
		{"https://api.example.com", []string{"", "a"}, "https://api.example.com/a"},
	}
	for _, tt := range tests {
		if got := providerhttp.Endpoint(tt.base, tt.parts...); got != tt.want {
			t.Errorf("Endpoint(%q, %v) = %q, want %q", tt.base, tt.parts, got, tt.want)
		}
	}
}
