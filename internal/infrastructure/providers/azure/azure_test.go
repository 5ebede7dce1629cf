package azure_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/domain/synthesis"
	"github.com/janhq/sense-api/internal/infrastructure/providers/azure"
)

type fakeAzure struct {
	server       *httptest.Server
	tokenCalls   atomic.Int32
	recognition  string
	recognitionS int
	lastSSML     string
	mu           sync.Mutex
}

func newFakeAzure(t *testing.T) *fakeAzure {
	t.Helper()
	f := &fakeAzure{
		recognition:  `{"RecognitionStatus":"Success","DisplayText":"Open settings.","Duration":35000000,"NBest":[{"Confidence":0.91,"Display":"Open settings."}]}`,
		recognitionS: http.StatusOK,
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sts/v1.0/issuetoken":
			if r.Header.Get("Ocp-Apim-Subscription-Key") != "az-key" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			f.tokenCalls.Add(1)
			_, _ = w.Write([]byte("token-123"))
		case "/speech/recognition/conversation/cognitiveservices/v1":
			if r.Header.Get("Authorization") != "Bearer token-123" {
				t.Errorf("missing bearer token")
			}
			if r.URL.Query().Get("format") != "detailed" {
				t.Errorf("expected detailed format")
			}
			f.mu.Lock()
			status, body := f.recognitionS, f.recognition
			f.mu.Unlock()
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		case "/cognitiveservices/v1":
			if r.Header.Get("X-Microsoft-OutputFormat") == "" {
				t.Errorf("missing output format")
			}
			data, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.lastSSML = string(data)
			f.mu.Unlock()
			_, _ = w.Write([]byte("mp3-bytes"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAzure) config(key string) capability.ProviderConfig {
	return capability.ProviderConfig{Name: "azure", APIKey: key, Region: "eastus", BaseURL: f.server.URL}
}

func (f *fakeAzure) tokens(key string) *azure.TokenSource {
	return azure.NewTokenSource("azure", key, azure.RegionalEndpoints("eastus", f.server.URL).Token, resty.New())
}

func TestRegionalEndpoints(t *testing.T) {
	endpoints := azure.RegionalEndpoints("westeurope", "")
	if endpoints.Token != "https://westeurope.api.cognitive.microsoft.com/sts/v1.0/issuetoken" {
		t.Errorf("unexpected token endpoint %s", endpoints.Token)
	}
	if !strings.HasPrefix(endpoints.Recognition, "https://westeurope.stt.speech.microsoft.com/") {
		t.Errorf("unexpected recognition endpoint %s", endpoints.Recognition)
	}
	if endpoints.Synthesis != "https://westeurope.tts.speech.microsoft.com/cognitiveservices/v1" {
		t.Errorf("unexpected synthesis endpoint %s", endpoints.Synthesis)
	}
}

func TestSpeechAdapter_Execute(t *testing.T) {
	fake := newFakeAzure(t)
	tokens := fake.tokens("az-key")
	adapter := azure.NewSpeechAdapter(fake.config("az-key"), tokens, resty.New())

	for i := 0; i < 2; i++ {
		transcript, err := adapter.Execute(context.Background(), speech.Request{Audio: make([]byte, 2048)})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if transcript.Text != "Open settings." || transcript.Confidence != 0.91 || transcript.DurationSeconds != 3.5 {
			t.Errorf("unexpected transcript %+v", transcript)
		}
	}
	if calls := fake.tokenCalls.Load(); calls != 1 {
		t.Errorf("expected the token to be cached, got %d token calls", calls)
	}
}

func TestSpeechAdapter_RecognitionStatus(t *testing.T) {
	tests := []struct {
		body string
		want capability.Outcome
	}{
		{`{"RecognitionStatus":"NoMatch"}`, capability.OutcomeEmpty},
		{`{"RecognitionStatus":"InitialSilenceTimeout"}`, capability.OutcomeEmpty},
		{`{"RecognitionStatus":"Error"}`, capability.OutcomeTransient},
		{`{"RecognitionStatus":"Success","DisplayText":""}`, capability.OutcomeEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			fake := newFakeAzure(t)
			fake.recognition = tt.body
			adapter := azure.NewSpeechAdapter(fake.config("az-key"), fake.tokens("az-key"), resty.New())
			_, err := adapter.Execute(context.Background(), speech.Request{Audio: make([]byte, 2048)})
			if got := capability.Classify(err); got != tt.want {
				t.Fatalf("expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}

func TestSpeechAdapter_RejectedKey(t *testing.T) {
	fake := newFakeAzure(t)
	adapter := azure.NewSpeechAdapter(fake.config("wrong"), fake.tokens("wrong"), resty.New())
	_, err := adapter.Execute(context.Background(), speech.Request{Audio: make([]byte, 2048)})
	if capability.Classify(err) != capability.OutcomeConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTokenSource_MissingKey(t *testing.T) {
	tokens := azure.NewTokenSource("azure", "", "http://unused", resty.New())
	_, err := tokens.Token(context.Background())
	if capability.Classify(err) != capability.OutcomeConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestTTSAdapter_Execute(t *testing.T) {
	fake := newFakeAzure(t)
	adapter := azure.NewTTSAdapter(fake.config("az-key"), fake.tokens("az-key"), resty.New())

	result, err := adapter.Execute(context.Background(), synthesis.Request{Text: `Tom & "Jerry" <3`})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if string(result.Content) != "mp3-bytes" || result.Voice != "en-US-AriaNeural" || result.ContentType != "audio/mpeg" {
		t.Errorf("unexpected audio %+v", result)
	}
	if !strings.Contains(fake.lastSSML, "Tom &amp; &#34;Jerry&#34; &lt;3") {
		t.Errorf("text not escaped: %s", fake.lastSSML)
	}
}

func TestBuildSSML(t *testing.T) {
	rate, pitch, gain := 1.25, 2.0, -6.0
	ssml, err := azure.BuildSSML(synthesis.Request{
		Text:    "hi",
		Options: synthesis.Options{SpeakingRate: &rate, Pitch: &pitch, VolumeGainDb: &gain},
	}, "en-GB-SoniaNeural", "en-GB")
	if err != nil {
		t.Fatalf("BuildSSML failed: %v", err)
	}
	for _, want := range []string{
		`xml:lang="en-GB"`,
		`<voice name="en-GB-SoniaNeural">`,
		`rate="1.25"`,
		`pitch="+2.0st"`,
		`volume="-50%"`,
		`>hi</prosody>`,
	} {
		if !strings.Contains(ssml, want) {
			t.Errorf("expected %q in %s", want, ssml)
		}
	}

	ssml, _ = azure.BuildSSML(synthesis.Request{Text: "hi"}, "v", "en-US")
	if !strings.Contains(ssml, `pitch="default" volume="default"`) {
		t.Errorf("expected default prosody in %s", ssml)
	}
}
