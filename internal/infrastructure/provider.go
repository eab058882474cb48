// Package infrastructure selects the concrete adapters named by configuration.
package infrastructure

import (
	"context"
	"fmt"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/config"
	"github.com/janhq/health-agent/internal/domain/capability"
	"github.com/janhq/health-agent/internal/domain/chat"
	"github.com/janhq/health-agent/internal/domain/profile"
	"github.com/janhq/health-agent/internal/domain/transaction"
	"github.com/janhq/health-agent/internal/infrastructure/auth"
	"github.com/janhq/health-agent/internal/infrastructure/llm"
	"github.com/janhq/health-agent/internal/infrastructure/store"
	"github.com/janhq/health-agent/internal/infrastructure/txstore"
	"github.com/janhq/health-agent/internal/infrastructure/vision"
)

// Stores groups the session and profile stores, which share a backend.
type Stores struct {
	Chat     chat.Store
	Profiles profile.Store
}

// ProvideStores opens the configured session store backend.
func ProvideStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Stores, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMongo:
		mongoStore, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := mongoStore.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close mongo store")
			}
		}
		log.Info().Str("database", cfg.MongoDatabase).Msg("using mongo session store")
		return &Stores{Chat: mongoStore, Profiles: mongoStore}, cleanup, nil
	default:
		log.Info().Msg("using in-memory session store")
		return &Stores{Chat: store.NewMemoryStore(log), Profiles: store.NewMemoryProfileStore()}, func() {}, nil
	}
}

// ProvideTransactionStore opens the configured pending transaction store.
func ProvideTransactionStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (transaction.Store, func(), error) {
	if cfg.PendingTxBackend != config.StoreBackendRedis {
		return txstore.NewMemoryStore(), func() {}, nil
	}

	redisStore, err := txstore.NewRedisStore(ctx, cfg.RedisURL, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := redisStore.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis transaction store")
		}
	}
	return redisStore, cleanup, nil
}

// ProvideRunner creates the LLM capability for the configured provider.
func ProvideRunner(ctx context.Context, cfg *config.Config, log zerolog.Logger) (capability.Runner, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderGemini:
		return llm.NewGeminiRunner(ctx, cfg.GeminiAPIKey, cfg.LLMModel, cfg.LLMSystemPrompt, log)
	case config.LLMProviderOpenAI:
		return llm.NewOpenAIRunner(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLMModel, cfg.LLMSystemPrompt, log), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}

// ProvideClassifier creates the image classification capability.
func ProvideClassifier(cfg *config.Config, log zerolog.Logger) (capability.ImageClassifier, error) {
	return vision.NewClient(cfg.VisionAPIURL, cfg.VisionAPIKey, cfg.VisionCacheSize, cfg.CapabilityTimeout, log)
}

// ProvideAuthValidator provides an auth validator.
func ProvideAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, func(), error) {
	v, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return v, v.Close, nil
}

// InfrastructureProvider provides all infrastructure adapters.
var InfrastructureProvider = wire.NewSet(
	ProvideStores,
	wire.FieldsOf(new(*Stores), "Chat", "Profiles"),
	ProvideTransactionStore,
	ProvideRunner,
	ProvideClassifier,
	ProvideAuthValidator,
)
