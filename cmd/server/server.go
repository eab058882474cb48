// @title           Men's Health Chat Assistant API
// @version         1.0
// @description     Health, fitness and nutrition chat agent with session history,
// @description     pending supplement orders and a WebSocket turn protocol.

// @contact.name   Jan Team
// @contact.url    https://github.com/janhq/health-agent

// @host      localhost:8004
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/config"
	"github.com/janhq/health-agent/internal/domain"
	"github.com/janhq/health-agent/internal/infrastructure"
	"github.com/janhq/health-agent/internal/infrastructure/logger"
	"github.com/janhq/health-agent/internal/infrastructure/observability"
	"github.com/janhq/health-agent/internal/interfaces"
	"github.com/janhq/health-agent/internal/interfaces/httpserver"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/handlers"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/routes"
)

// Application holds the main application components.
type Application struct {
	httpServer *httpserver.HTTPServer
	log        zerolog.Logger
}

// NewApplication creates a new application instance.
func NewApplication(httpServer *httpserver.HTTPServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

// Start runs the application until ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
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
		Str("store_backend", cfg.StoreBackend).
		Str("llm_provider", cfg.LLMProvider).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}

	log.Info().Msg("application exited cleanly")
}

// buildApplication wires the providers by hand in the order wire.go declares them.
func buildApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*Application, func(), error) {
		cleanup()
		return nil, nil, err
	}

	authValidator, closeAuth, err := infrastructure.ProvideAuthValidator(ctx, cfg, log)
	if err != nil {
		return fail(fmt.Errorf("auth validator: %w", err))
	}
	cleanups = append(cleanups, closeAuth)

	stores, closeStores, err := infrastructure.ProvideStores(ctx, cfg, log)
	if err != nil {
		return fail(fmt.Errorf("session store: %w", err))
	}
	cleanups = append(cleanups, closeStores)

	txStore, closeTx, err := infrastructure.ProvideTransactionStore(ctx, cfg, log)
	if err != nil {
		return fail(fmt.Errorf("transaction store: %w", err))
	}
	cleanups = append(cleanups, closeTx)

	runner, err := infrastructure.ProvideRunner(ctx, cfg, log)
	if err != nil {
		return fail(fmt.Errorf("llm runner: %w", err))
	}
	classifier, err := infrastructure.ProvideClassifier(cfg, log)
	if err != nil {
		return fail(fmt.Errorf("vision client: %w", err))
	}

	sessions := domain.ProvideChatService(stores.Chat, cfg, log)
	profiles := domain.ProvideProfileService(stores.Profiles, log)
	cat, err := domain.ProvideCatalog(cfg)
	if err != nil {
		return fail(fmt.Errorf("catalog: %w", err))
	}
	transactions := domain.ProvideTransactionService(txStore, cat, cfg, log)
	orch := domain.ProvideOrchestrator(sessions, runner, classifier, cfg, log)
	r, err := domain.ProvideRouter(cfg, sessions, cat, transactions, orch, log)
	if err != nil {
		return fail(fmt.Errorf("router: %w", err))
	}

	handlerProvider := handlers.NewProvider(
		handlers.NewAgentHandler(cfg, r, orch, profiles, log),
		handlers.NewChatHandler(sessions),
		handlers.NewProfileHandler(profiles),
		handlers.NewTransactionHandler(transactions),
	)
	wsHandler := interfaces.NewWSHandler(cfg, orch, profiles, authValidator, log)
	routeProvider := routes.NewProvider(cfg, handlerProvider, wsHandler, authValidator)
	httpServer := httpserver.New(cfg, log, routeProvider, authValidator)

	return NewApplication(httpServer, log), cleanup, nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
