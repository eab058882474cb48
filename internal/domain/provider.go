package domain

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/config"
	"github.com/janhq/health-agent/internal/domain/capability"
	"github.com/janhq/health-agent/internal/domain/catalog"
	"github.com/janhq/health-agent/internal/domain/chat"
	"github.com/janhq/health-agent/internal/domain/orchestrator"
	"github.com/janhq/health-agent/internal/domain/profile"
	"github.com/janhq/health-agent/internal/domain/router"
	"github.com/janhq/health-agent/internal/domain/transaction"
)

// ProvideChatService provides the chat session service.
func ProvideChatService(store chat.Store, cfg *config.Config, log zerolog.Logger) chat.Service {
	return chat.NewService(store, chat.Options{
		HistoryLimit:    cfg.SessionHistoryLimit,
		ListLimit:       cfg.SessionListLimit,
		DeletedReadable: cfg.DeletedSessionsReadable,
	}, log)
}

// ProvideProfileService provides the user profile service.
func ProvideProfileService(store profile.Store, log zerolog.Logger) profile.Service {
	return profile.NewService(store, log)
}

// ProvideCatalog loads the product catalog.
func ProvideCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	return catalog.Load(cfg.CatalogFile)
}

// ProvideTransactionService provides the pending transaction service.
func ProvideTransactionService(store transaction.Store, cat *catalog.Catalog, cfg *config.Config, log zerolog.Logger) transaction.Service {
	return transaction.NewService(store, cat, cfg.PendingTxTTL, log)
}

// ProvideOrchestrator provides the task orchestrator.
func ProvideOrchestrator(
	sessions chat.Service,
	runner capability.Runner,
	classifier capability.ImageClassifier,
	cfg *config.Config,
	log zerolog.Logger,
) orchestrator.Service {
	return orchestrator.NewService(sessions, runner, classifier, orchestrator.Options{
		DefaultUserID: cfg.DefaultUserID,
		ContextTurns:  cfg.LLMContextTurns,
		Timeout:       cfg.CapabilityTimeout,
	}, log)
}

// ProvideRouter builds the keyword router with every handler wired in.
func ProvideRouter(
	cfg *config.Config,
	sessions chat.Service,
	cat *catalog.Catalog,
	transactions transaction.Service,
	orch orchestrator.Service,
	log zerolog.Logger,
) (*router.Router, error) {
	keywords, err := router.LoadKeywords(cfg.RouterKeywordsFile)
	if err != nil {
		return nil, err
	}

	general := router.NewAgentHandler(router.HandlerGeneral, chat.MessageTypeChat, "", orch)
	health, fitness, nutrition := router.NewSpecialistHandlers(orch)

	routes := router.DefaultRoutes(keywords, router.Handlers{
		General:          general,
		Report:           router.NewReportHandler(sessions),
		Inventory:        router.NewInventoryHandler(cat),
		Transaction:      router.NewTransactionHandler(transactions),
		HealthAssessment: health,
		FitnessPlan:      fitness,
		NutritionAdvice:  nutrition,
		Image:            router.NewAgentHandler(router.HandlerImage, chat.MessageTypeImage, "", orch),
	})
	return router.New(routes, general, log), nil
}

// ServiceProvider provides all domain services.
var ServiceProvider = wire.NewSet(
	ProvideChatService,
	ProvideProfileService,
	ProvideCatalog,
	ProvideTransactionService,
	ProvideOrchestrator,
	ProvideRouter,
)
