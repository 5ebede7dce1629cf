package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// PIILevel defines how much user content may reach logs and spans.
type PIILevel string

const (
	// PIILevelNone redacts all user content
	PIILevelNone PIILevel = "none"
	// PIILevelHashed hashes detected PII with the service salt
	PIILevelHashed PIILevel = "hashed"
	// PIILevelFull leaves user content untouched (secrets are still redacted)
	PIILevelFull PIILevel = "full"
)

// ParsePIILevel maps a config value to a PIILevel, defaulting to hashed.
func ParsePIILevel(raw string) PIILevel {
	switch PIILevel(strings.ToLower(strings.TrimSpace(raw))) {
	case PIILevelNone:
		return PIILevelNone
	case PIILevelFull:
		return PIILevelFull
	default:
		return PIILevelHashed
	}
}

// Sanitizer scrubs user content and provider credentials before they are logged.
type Sanitizer struct {
	level PIILevel
	salt  string

	emailPattern *regexp.Regexp
	phonePattern *regexp.Regexp
	cardPattern  *regexp.Regexp

	queryKeyPattern *regexp.Regexp
	bearerPattern   *regexp.Regexp
	tokenPattern    *regexp.Regexp
}

// NewSanitizer creates a sanitizer; salt keeps hashes stable per deployment.
func NewSanitizer(level PIILevel, salt string) *Sanitizer {
	return &Sanitizer{
		level:           level,
		salt:            salt,
		emailPattern:    regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		phonePattern:    regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
		cardPattern:     regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
		queryKeyPattern: regexp.MustCompile(`(?i)([?&](?:key|api_key|apikey|access_token|subscription-key)=)[^&\s"']+`),
		bearerPattern:   regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/=-]+`),
		tokenPattern:    regexp.MustCompile(`\b(?:gsk|hf|sk)_[A-Za-z0-9]{8,}\b`),
	}
}

// Level returns the configured PII level.
func (s *Sanitizer) Level() PIILevel {
	return s.level
}

// RedactSecrets removes API keys and bearer tokens from URLs and error text.
// It applies at every PII level.
func (s *Sanitizer) RedactSecrets(input string) string {
	if input == "" {
		return ""
	}
	result := s.queryKeyPattern.ReplaceAllString(input, "${1}[REDACTED]")
	result = s.bearerPattern.ReplaceAllString(result, "${1}[REDACTED]")
	return s.tokenPattern.ReplaceAllString(result, "[REDACTED]")
}

// SanitizeContent sanitizes user-provided text (chat messages, transcripts,
// synthesis input) according to the PII level.
func (s *Sanitizer) SanitizeContent(input string) string {
	if input == "" {
		return ""
	}
	switch s.level {
	case PIILevelNone:
		return "[REDACTED]"
	case PIILevelFull:
		return s.RedactSecrets(input)
	default:
		return s.hashPII(s.RedactSecrets(input))
	}
}

// SanitizeError sanitizes a provider error for logging.
func (s *Sanitizer) SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return s.RedactSecrets(err.Error())
}

// SanitizePrincipal sanitizes a principal id.
func (s *Sanitizer) SanitizePrincipal(id string) string {
	if id == "" {
		return ""
	}
	switch s.level {
	case PIILevelNone:
		return "[REDACTED]"
	case PIILevelFull:
		return id
	default:
		return s.hash(id)
	}
}

func (s *Sanitizer) hashPII(input string) string {
	result := s.emailPattern.ReplaceAllStringFunc(input, func(match string) string {
		return fmt.Sprintf("[EMAIL:%s]", s.hash(match))
	})
	result = s.cardPattern.ReplaceAllString(result, "[CC:REDACTED]")
	return s.phonePattern.ReplaceAllStringFunc(result, func(match string) string {
		return fmt.Sprintf("[PHONE:%s]", s.hash(match))
	})
}

func (s *Sanitizer) hash(data string) string {
	sum := sha256.Sum256([]byte(data + s.salt))
	return hex.EncodeToString(sum[:])[:8]
}
