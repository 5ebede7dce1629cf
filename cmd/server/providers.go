package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/config"
	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/chat"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/domain/synthesis"
	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/infrastructure/auth"
	"github.com/janhq/sense-api/internal/infrastructure/cache"
	"github.com/janhq/sense-api/internal/infrastructure/crontab"
	"github.com/janhq/sense-api/internal/infrastructure/database"
	"github.com/janhq/sense-api/internal/infrastructure/metrics"
	"github.com/janhq/sense-api/internal/infrastructure/providers"
	"github.com/janhq/sense-api/internal/infrastructure/store"
	"github.com/janhq/sense-api/internal/interfaces/httpserver"
	"github.com/janhq/sense-api/pkg/telemetry"
)

// UsageBackend is the selected usage store plus its readiness check.
type UsageBackend struct {
	Store usage.Store
	Ready httpserver.ReadinessCheck
}

// ProvideUsageBackend opens the store named by USAGE_STORE.
func ProvideUsageBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*UsageBackend, func(), error) {
	log = log.With().Str("usage_store", cfg.UsageStore).Logger()

	switch cfg.UsageStore {
	case config.UsageStorePostgres:
		db, err := database.Connect(database.Config{
			DatabaseURL: cfg.DatabaseURL,
			ReplicaURLs: cfg.DatabaseReplicaURLs,
			MaxIdle:     cfg.DBMaxIdleConns,
			MaxOpen:     cfg.DBMaxOpenConns,
			MaxLifetime: cfg.DBConnMaxLifetime,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := database.Close(db); err != nil {
				log.Error().Err(err).Msg("failed to close database")
			}
		}
		if err := database.Migrate(ctx, db, log); err != nil {
			cleanup()
			return nil, nil, err
		}
		ready := func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
		return &UsageBackend{Store: store.NewGormStore(db, log), Ready: ready}, cleanup, nil

	case config.UsageStoreRedis:
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close redis client")
			}
		}
		ready := func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		redisStore := store.NewRedisStore(client, cache.NewLocker(client, log), cfg.RedisKeyPrefix, log)
		return &UsageBackend{Store: redisStore, Ready: ready}, cleanup, nil

	case config.UsageStoreMemory:
		log.Warn().Msg("usage counters are kept in memory and lost on restart")
		return &UsageBackend{Store: store.NewMemoryStore(log)}, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported usage store %q", cfg.UsageStore)
	}
}

// ProvideUsageStore extracts the store from the backend.
func ProvideUsageStore(backend *UsageBackend) usage.Store {
	return backend.Store
}

// ProvideReadinessCheck extracts the readiness check from the backend.
func ProvideReadinessCheck(backend *UsageBackend) httpserver.ReadinessCheck {
	return backend.Ready
}

// ProvideProviderCatalog loads config/providers.yml or the embedded defaults.
func ProvideProviderCatalog(cfg *config.Config, log zerolog.Logger) (*config.ProviderCatalog, error) {
	catalog, err := config.LoadProviderCatalog(cfg.ProviderConfigFile)
	if err != nil {
		return nil, err
	}
	log.Info().Str("source", catalog.Source).Int("providers", len(catalog.Providers)).Msg("provider catalogue loaded")
	return catalog, nil
}

// ProvideSanitizer provides the log and span sanitizer.
func ProvideSanitizer(cfg *config.Config) *telemetry.Sanitizer {
	return telemetry.NewSanitizer(telemetry.ParsePIILevel(cfg.LogPIILevel), cfg.LogPIISalt)
}

// ProvideAdapterRegistry builds one adapter per catalogue provider.
func ProvideAdapterRegistry(selector *capability.Selector, sanitizer *telemetry.Sanitizer, log zerolog.Logger) *providers.Registry {
	return providers.NewRegistry(selector, providers.DefaultClientFactory(log, sanitizer), log)
}

// ProvideChatAdapters, ProvideSpeechAdapters and ProvideSynthesisAdapters
// split the registry per capability.
func ProvideChatAdapters(registry *providers.Registry) []chat.Adapter {
	return registry.Chat
}

func ProvideSpeechAdapters(registry *providers.Registry) []speech.Adapter {
	return registry.Speech
}

func ProvideSynthesisAdapters(registry *providers.Registry) []synthesis.Adapter {
	return registry.Synthesis
}

// ProvideMetricsRecorder provides the Prometheus observer.
func ProvideMetricsRecorder() *metrics.Recorder {
	return metrics.NewRecorder()
}

// ProvideAuthValidator provides the auth validator.
func ProvideAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

// ProvideCrontab schedules the monthly usage sweep.
func ProvideCrontab(usageStore usage.Store, cfg *config.Config, log zerolog.Logger) *crontab.Crontab {
	return crontab.NewCrontab(usageStore, cfg.UsageResetSchedule, log)
}
