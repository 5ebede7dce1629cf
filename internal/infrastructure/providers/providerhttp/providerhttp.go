// Package providerhttp holds the response classification shared by the
// hosted provider adapters.
package providerhttp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/domain/capability"
)

const maxErrorBody = 512

// StatusError is a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// Check classifies the outcome of a resty call and returns the response body.
// Rejected credentials are configuration errors; every other failure,
// including network errors and timeouts, is transient.
func Check(provider string, resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, capability.TransientError(provider, fmt.Errorf("request failed: %w", err))
	}
	if resp == nil {
		return nil, capability.TransientError(provider, fmt.Errorf("no response"))
	}

	body := resp.Bytes()
	status := resp.StatusCode()
	if status < http.StatusBadRequest {
		return body, nil
	}

	statusErr := &StatusError{StatusCode: status, Body: truncate(strings.TrimSpace(string(body)))}
	if isCredentialRejection(status, statusErr.Body) {
		return nil, capability.ConfigurationError(provider, statusErr)
	}
	return nil, capability.TransientError(provider, statusErr)
}

// DecodeJSON unmarshals a provider body. An empty body is an empty result;
// a malformed one is transient.
func DecodeJSON(provider string, body []byte, out any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return capability.EmptyResultError(provider, "empty response body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return capability.TransientError(provider, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Endpoint joins a base URL and path segments with single slashes.
func Endpoint(base string, parts ...string) string {
	result := strings.TrimRight(strings.TrimSpace(base), "/")
	for _, part := range parts {
		part = strings.Trim(part, "/")
		if part == "" {
			continue
		}
		result += "/" + part
	}
	return result
}

func isCredentialRejection(status int, body string) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	case http.StatusBadRequest:
		// Google reports a bad API key as a 400.
		return strings.Contains(body, "API_KEY_INVALID") || strings.Contains(body, "API key not valid")
	default:
		return false
	}
}

func truncate(body string) string {
	if utf8.RuneCountInString(body) <= maxErrorBody {
		return body
	}
	return string([]rune(body)[:maxErrorBody]) + "..."
}
