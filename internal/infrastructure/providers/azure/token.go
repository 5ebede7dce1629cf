// Package azure adapts Azure Speech Services. Both directions authenticate
// with a short-lived token exchanged for the subscription key.
package azure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/infrastructure/providers/providerhttp"
)

// Tokens are valid for ten minutes; refresh a little early.
const tokenLifetime = 9 * time.Minute

// Endpoints are the three regional hosts Azure Speech uses.
type Endpoints struct {
	Token       string
	Recognition string
	Synthesis   string
}

// RegionalEndpoints returns the public endpoints for a region. A non-empty
// base replaces all three hosts, which is how tests and proxies point the
// adapters elsewhere.
func RegionalEndpoints(region, base string) Endpoints {
	if base != "" {
		return Endpoints{
			Token:       providerhttp.Endpoint(base, "sts/v1.0/issuetoken"),
			Recognition: providerhttp.Endpoint(base, "speech/recognition/conversation/cognitiveservices/v1"),
			Synthesis:   providerhttp.Endpoint(base, "cognitiveservices/v1"),
		}
	}
	return Endpoints{
		Token:       fmt.Sprintf("https://%s.api.cognitive.microsoft.com/sts/v1.0/issuetoken", region),
		Recognition: fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", region),
		Synthesis:   fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region),
	}
}

// TokenSource exchanges the subscription key for bearer tokens and caches
// them. Concurrent refreshes share one request.
type TokenSource struct {
	provider string
	key      string
	endpoint string
	client   *resty.Client
	now      func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource builds a token source for one subscription key.
func NewTokenSource(provider, key, endpoint string, client *resty.Client) *TokenSource {
	return &TokenSource{provider: provider, key: key, endpoint: endpoint, client: client, now: time.Now}
}

// Token returns a cached token or fetches a new one.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if strings.TrimSpace(s.key) == "" {
		return "", capability.ConfigurationError(s.provider, errors.New("subscription key is required"))
	}

	s.mu.Lock()
	if s.token != "" && s.now().Before(s.expires) {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	result, err, _ := s.group.Do("token", func() (any, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Invalidate drops the cached token after the service rejects it.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

func (s *TokenSource) fetch(ctx context.Context) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Ocp-Apim-Subscription-Key", s.key).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		Post(s.endpoint)
	body, err := providerhttp.Check(s.provider, resp, err)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", capability.TransientError(s.provider, errors.New("empty access token"))
	}

	s.mu.Lock()
	s.token = token
	s.expires = s.now().Add(tokenLifetime)
	s.mu.Unlock()
	return token, nil
}
