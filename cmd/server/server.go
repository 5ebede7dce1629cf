// @title           Sense API
// @version         1.0
// @description     Chat, speech-to-text and text-to-speech with provider fallback and usage metering.

// @host      localhost:8190
// @BasePath  /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token from Keycloak

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/janhq/sense-api/internal/config"
	"github.com/janhq/sense-api/internal/domain"
	"github.com/janhq/sense-api/internal/domain/chat"
	"github.com/janhq/sense-api/internal/domain/speech"
	"github.com/janhq/sense-api/internal/domain/synthesis"
	"github.com/janhq/sense-api/internal/infrastructure/crontab"
	"github.com/janhq/sense-api/internal/infrastructure/logger"
	"github.com/janhq/sense-api/internal/infrastructure/observability"
	"github.com/janhq/sense-api/internal/interfaces/httpserver"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/handlers"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/middlewares"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/routes"
)

// Application holds the long-running components.
type Application struct {
	httpServer *httpserver.HTTPServer
	crontab    *crontab.Crontab
	log        zerolog.Logger
}

// NewApplication creates a new application instance.
func NewApplication(httpServer *httpserver.HTTPServer, ctab *crontab.Crontab, log zerolog.Logger) *Application {
	return &Application{httpServer: httpServer, crontab: ctab, log: log}
}

// Start runs the HTTP server and the usage reset job until ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.crontab.Run(ctx)
	})
	g.Go(func() error {
		return a.httpServer.Run(ctx)
	})
	return g.Wait()
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	app, cleanup, err := buildApplication(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}
	defer cleanup()

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Str("usage_store", cfg.UsageStore).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}

	log.Info().Msg("application exited cleanly")
}

// buildApplication wires the object graph by hand, in the order wire.go declares it.
func buildApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, func(), error) {
	backend, cleanup, err := ProvideUsageBackend(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	fail := func(err error) (*Application, func(), error) {
		cleanup()
		return nil, nil, err
	}

	authValidator, err := ProvideAuthValidator(ctx, cfg, log)
	if err != nil {
		return fail(err)
	}
	catalog, err := ProvideProviderCatalog(cfg, log)
	if err != nil {
		return fail(err)
	}
	quotas, err := domain.ProvideQuotaTable(catalog)
	if err != nil {
		return fail(err)
	}

	recorder := ProvideMetricsRecorder()
	sanitizer := ProvideSanitizer(cfg)
	selector := domain.ProvideSelector(catalog)
	registry := ProvideAdapterRegistry(selector, sanitizer, log)
	opts := domain.ProvideOrchestratorOptions(cfg, recorder, sanitizer)

	chatOrchestrator := domain.ProvideChatOrchestrator(selector, registry.Chat, opts, log)
	speechOrchestrator := domain.ProvideSpeechOrchestrator(selector, registry.Speech, opts, log)
	synthesisOrchestrator := domain.ProvideSynthesisOrchestrator(selector, registry.Synthesis, opts, log)

	meter := domain.ProvideMeter(backend.Store, quotas, recorder, log)
	accounts := domain.ProvideUsageService(backend.Store, log)
	gate := domain.ProvideGate(accounts, meter, cfg)
	manager := domain.ProvideManager(selector, chatOrchestrator, speechOrchestrator, synthesisOrchestrator, log)

	handlerProvider := handlers.NewProvider(
		handlers.NewAIHandler(
			chat.NewService(chatOrchestrator, gate, log),
			speech.NewService(speechOrchestrator, gate, log),
			synthesis.NewService(synthesisOrchestrator, gate, log),
		),
		handlers.NewServicesHandler(manager),
		handlers.NewUsageHandler(accounts, meter),
	)

	rateLimiter, err := middlewares.NewRateLimiter(cfg)
	if err != nil {
		return fail(err)
	}
	routeProvider := routes.NewProvider(handlerProvider, authValidator, rateLimiter, log)
	httpServer := httpserver.New(cfg, log, routeProvider, backend.Ready)

	return NewApplication(httpServer, ProvideCrontab(backend.Store, cfg, log), log), cleanup, nil
}

func loadEnvFiles() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
