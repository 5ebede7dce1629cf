package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed providers.default.yml
var defaultProviderCatalog []byte

// DefaultProviderCatalogSource names the embedded catalogue in logs.
const DefaultProviderCatalogSource = "embedded:providers.default.yml"

// ProviderEntry is one provider/capability binding after env expansion.
type ProviderEntry struct {
	ID           string
	Capability   string
	Name         string
	APIKey       string
	BaseURL      string
	Region       string
	ProjectID    string
	Model        string
	Voice        string
	Language     string
	Gender       string
	Credentialed bool
	RateLimits   map[string]int64
	Formats      []string
	SetupURL     string
	Priority     string
}

// ProviderCatalog holds the provider settings, selection priorities and quota table.
type ProviderCatalog struct {
	Source     string
	Priorities map[string][]string
	Providers  []ProviderEntry
	Quotas     map[string]map[string]string
}

// ProvidersFor returns the enabled entries bound to a capability.
func (c *ProviderCatalog) ProvidersFor(capability string) []ProviderEntry {
	if c == nil {
		return nil
	}
	var result []ProviderEntry
	for _, entry := range c.Providers {
		if entry.Capability == capability {
			result = append(result, entry)
		}
	}
	return result
}

// LoadProviderCatalog reads the catalogue at path, falling back to the
// embedded defaults when the file does not exist.
func LoadProviderCatalog(path string) (*ProviderCatalog, error) {
	cleanPath := filepath.Clean(strings.TrimSpace(path))
	if strings.TrimSpace(path) == "" {
		return ParseProviderCatalog(defaultProviderCatalog, DefaultProviderCatalogSource)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ParseProviderCatalog(defaultProviderCatalog, DefaultProviderCatalogSource)
		}
		return nil, fmt.Errorf("read provider config %q: %w", cleanPath, err)
	}
	return ParseProviderCatalog(data, cleanPath)
}

// ParseProviderCatalog parses a catalogue document, expanding ${VAR} and
// ${VAR:-default} references from the environment.
func ParseProviderCatalog(data []byte, source string) (*ProviderCatalog, error) {
	var doc providerCatalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse provider config %q: %w", source, err)
	}
	if len(doc.Providers) == 0 {
		return nil, fmt.Errorf("provider config %q has no providers defined", source)
	}

	catalog := &ProviderCatalog{
		Source:     source,
		Priorities: make(map[string][]string, len(doc.Priorities)),
		Quotas:     make(map[string]map[string]string, len(doc.Quotas)),
	}

	for capability, order := range doc.Priorities {
		key := strings.TrimSpace(capability)
		for _, id := range order {
			if id = strings.TrimSpace(id); id != "" {
				catalog.Priorities[key] = append(catalog.Priorities[key], id)
			}
		}
	}

	seen := make(map[string]bool)
	for idx, entry := range doc.Providers {
		enabled, err := parseEnabled(entry.EnableRaw)
		if err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", idx, err)
		}
		if !enabled {
			continue
		}
		normalized, err := normalizeProviderEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", idx, err)
		}
		key := normalized.Capability + "/" + normalized.ID
		if seen[key] {
			return nil, fmt.Errorf("providers[%d]: duplicate provider %s", idx, key)
		}
		seen[key] = true
		catalog.Providers = append(catalog.Providers, normalized)
	}

	for tier, limits := range doc.Quotas {
		tierKey := strings.ToLower(strings.TrimSpace(tier))
		catalog.Quotas[tierKey] = make(map[string]string, len(limits))
		for feature, raw := range limits {
			catalog.Quotas[tierKey][strings.ToLower(strings.TrimSpace(feature))] = strings.TrimSpace(expandEnv(raw))
		}
	}

	return catalog, nil
}

type providerCatalogDocument struct {
	Priorities map[string][]string          `yaml:"priorities"`
	Providers  []providerCatalogEntry       `yaml:"providers"`
	Quotas     map[string]map[string]string `yaml:"quotas"`
}

type providerCatalogEntry struct {
	EnableRaw  string           `yaml:"enable"`
	ID         string           `yaml:"id"`
	Capability string           `yaml:"capability"`
	Name       string           `yaml:"name"`
	APIKey     string           `yaml:"api_key"`
	BaseURL    string           `yaml:"base_url"`
	Region     string           `yaml:"region"`
	ProjectID  string           `yaml:"project_id"`
	Model      string           `yaml:"model"`
	Voice      string           `yaml:"voice"`
	Language   string           `yaml:"language"`
	Gender     string           `yaml:"gender"`
	Requires   []string         `yaml:"requires"`
	RateLimits map[string]int64 `yaml:"rate_limits"`
	Formats    []string         `yaml:"formats"`
	SetupURL   string           `yaml:"setup_url"`
	Priority   string           `yaml:"setup_priority"`
}

func normalizeProviderEntry(entry providerCatalogEntry) (ProviderEntry, error) {
	id := strings.ToLower(strings.TrimSpace(entry.ID))
	if id == "" {
		return ProviderEntry{}, errors.New("provider id is required")
	}
	capability := strings.ToLower(strings.TrimSpace(entry.Capability))
	if capability == "" {
		return ProviderEntry{}, errors.New("provider capability is required")
	}

	name := strings.TrimSpace(expandEnv(entry.Name))
	if name == "" {
		name = strings.ToUpper(id[:1]) + id[1:]
	}

	normalized := ProviderEntry{
		ID:         id,
		Capability: capability,
		Name:       name,
		APIKey:     strings.TrimSpace(expandEnv(entry.APIKey)),
		BaseURL:    strings.TrimRight(strings.TrimSpace(expandEnv(entry.BaseURL)), "/"),
		Region:     strings.TrimSpace(expandEnv(entry.Region)),
		ProjectID:  strings.TrimSpace(expandEnv(entry.ProjectID)),
		Model:      strings.TrimSpace(expandEnv(entry.Model)),
		Voice:      strings.TrimSpace(expandEnv(entry.Voice)),
		Language:   strings.TrimSpace(expandEnv(entry.Language)),
		Gender:     strings.TrimSpace(expandEnv(entry.Gender)),
		RateLimits: entry.RateLimits,
		Formats:    entry.Formats,
		SetupURL:   strings.TrimSpace(entry.SetupURL),
		Priority:   strings.TrimSpace(entry.Priority),
	}

	requires := entry.Requires
	if len(requires) == 0 {
		requires = []string{"api_key"}
	}
	if id == "local" {
		requires = nil
	}
	normalized.Credentialed = true
	for _, field := range requires {
		switch strings.TrimSpace(field) {
		case "api_key":
			normalized.Credentialed = normalized.Credentialed && normalized.APIKey != ""
		case "base_url":
			normalized.Credentialed = normalized.Credentialed && normalized.BaseURL != ""
		case "region":
			normalized.Credentialed = normalized.Credentialed && normalized.Region != ""
		case "project_id":
			normalized.Credentialed = normalized.Credentialed && normalized.ProjectID != ""
		default:
			return ProviderEntry{}, fmt.Errorf("unknown required field %q", field)
		}
	}

	return normalized, nil
}

func parseEnabled(raw string) (bool, error) {
	resolved := strings.TrimSpace(expandEnv(strings.TrimSpace(raw)))
	if resolved == "" {
		return true, nil
	}
	parsed, err := strconv.ParseBool(resolved)
	if err != nil {
		return false, fmt.Errorf("enable: %w", err)
	}
	return parsed, nil
}

// expandEnv expands ${VAR} and ${VAR:-default} syntax using os envs.
func expandEnv(raw string) string {
	if raw == "" {
		return ""
	}
	return os.Expand(raw, func(expr string) string {
		name, fallback, hasDefault := strings.Cut(expr, ":-")
		if val := os.Getenv(name); val != "" {
			return val
		}
		if hasDefault {
			return fallback
		}
		return ""
	})
}
