package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Usage store backends.
const (
	UsageStoreMemory   = "memory"
	UsageStorePostgres = "postgres"
	UsageStoreRedis    = "redis"
)

// Config holds all configuration for the sense-api service.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"sense-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"SENSE_API_PORT" envDefault:"8190"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"`
	LogPIILevel     string        `env:"LOG_PII_LEVEL" envDefault:"hashed"`
	LogPIISalt      string        `env:"LOG_PII_SALT"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	// Auth (Keycloak)
	AuthEnabled  bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer   string `env:"ISSUER"`
	AuthAudience string `env:"AUDIENCE"`
	AuthJWKSURL  string `env:"JWKS_URL"`
	AdminRole    string `env:"ADMIN_ROLE" envDefault:"admin"`

	// Providers
	ProviderConfigFile   string        `env:"PROVIDER_CONFIG_FILE" envDefault:"config/providers.yml"`
	ProviderTimeout      time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"30s"`
	OrchestrationTimeout time.Duration `env:"ORCHESTRATION_TIMEOUT" envDefault:"90s"`

	// Usage metering
	UsageStore          string        `env:"USAGE_STORE" envDefault:"memory"`
	DatabaseURL         string        `env:"DATABASE_URL"`
	DatabaseReplicaURLs []string      `env:"DATABASE_REPLICA_URLS" envSeparator:","`
	DBMaxIdleConns      int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns      int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBConnMaxLifetime   time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	RedisURL            string        `env:"REDIS_URL"`
	RedisKeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"sense:usage:"`
	UsageResetSchedule  string        `env:"USAGE_RESET_CRON" envDefault:"5 0 1 * *"`

	// Inbound rate limiting (per principal)
	RateLimitPerMinute float64 `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
	RateLimitCacheSize int     `env:"RATE_LIMIT_CACHE_SIZE" envDefault:"10000"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if cfg.AuthEnabled {
		if strings.TrimSpace(cfg.AuthIssuer) == "" {
			return nil, fmt.Errorf("ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(cfg.AuthAudience) == "" {
			return nil, fmt.Errorf("AUDIENCE is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(cfg.AuthJWKSURL) == "" {
			return nil, fmt.Errorf("JWKS_URL is required when AUTH_ENABLED is true")
		}
	}

	cfg.UsageStore = strings.ToLower(strings.TrimSpace(cfg.UsageStore))
	switch cfg.UsageStore {
	case UsageStoreMemory:
	case UsageStorePostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when USAGE_STORE is postgres")
		}
	case UsageStoreRedis:
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return nil, fmt.Errorf("REDIS_URL is required when USAGE_STORE is redis")
		}
	default:
		return nil, fmt.Errorf("unsupported USAGE_STORE %q", cfg.UsageStore)
	}

	if cfg.ProviderTimeout <= 0 {
		return nil, fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	if cfg.OrchestrationTimeout < cfg.ProviderTimeout {
		return nil, fmt.Errorf("ORCHESTRATION_TIMEOUT must not be shorter than PROVIDER_TIMEOUT")
	}

	return cfg, nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
