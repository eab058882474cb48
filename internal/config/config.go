package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store backends.
const (
	StoreBackendMemory = "memory"
	StoreBackendMongo  = "mongo"
	StoreBackendRedis  = "redis"
)

// LLM providers.
const (
	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"
)

// Config holds all configuration for the health agent service.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"health-agent"`
	AgentName       string        `env:"AGENT_NAME" envDefault:"Men's Health Chat Assistant"`
	AgentVersion    string        `env:"AGENT_VERSION" envDefault:"1.0.0"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8004"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	// TracePIILevel is none, hashed or full.
	TracePIILevel string `env:"TRACE_PII_LEVEL" envDefault:"hashed"`

	// Auth
	AuthEnabled   bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthJWTSecret string `env:"AUTH_JWT_SECRET"`
	AuthJWKSURL   string `env:"AUTH_JWKS_URL"`
	AuthIssuer    string `env:"AUTH_ISSUER"`

	// Session store
	StoreBackend            string `env:"STORE_BACKEND" envDefault:"memory"`
	MongoURI                string `env:"MONGO_URI"`
	MongoDatabase           string `env:"MONGO_DATABASE" envDefault:"mens_health"`
	DeletedSessionsReadable bool   `env:"DELETED_SESSIONS_READABLE" envDefault:"true"`
	SessionHistoryLimit     int    `env:"SESSION_HISTORY_LIMIT" envDefault:"100"`
	SessionListLimit        int    `env:"SESSION_LIST_LIMIT" envDefault:"20"`
	DefaultUserID           string `env:"DEFAULT_USER_ID" envDefault:"default_health_user"`

	// LLM capability
	LLMProvider     string `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMModel        string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMSystemPrompt string `env:"LLM_SYSTEM_PROMPT" envDefault:"You are a helpful men's health, fitness and wellness assistant. Give practical, safe guidance and recommend a professional for medical concerns."`
	LLMContextTurns int    `env:"LLM_CONTEXT_TURNS" envDefault:"20"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`

	// Vision capability
	VisionAPIURL    string `env:"VISION_API_URL" envDefault:"http://localhost:8010"`
	VisionAPIKey    string `env:"VISION_API_KEY"`
	VisionCacheSize int    `env:"VISION_CACHE_SIZE" envDefault:"256"`

	CapabilityTimeout time.Duration `env:"CAPABILITY_TIMEOUT" envDefault:"60s"`

	// Router and deterministic handlers
	RouterKeywordsFile string `env:"ROUTER_KEYWORDS_FILE"`
	CatalogFile        string `env:"CATALOG_FILE"`

	// Pending transactions
	PendingTxBackend string        `env:"PENDING_TX_BACKEND" envDefault:"memory"`
	RedisURL         string        `env:"REDIS_URL"`
	PendingTxTTL     time.Duration `env:"PENDING_TX_TTL" envDefault:"15m"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.AuthEnabled && strings.TrimSpace(c.AuthJWTSecret) == "" && strings.TrimSpace(c.AuthJWKSURL) == "" {
		return fmt.Errorf("AUTH_JWT_SECRET or AUTH_JWKS_URL is required when AUTH_ENABLED is true")
	}

	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_BACKEND is mongo")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.PendingTxBackend {
	case StoreBackendMemory:
	case StoreBackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is required when PENDING_TX_BACKEND is redis")
		}
	default:
		return fmt.Errorf("unsupported PENDING_TX_BACKEND %q", c.PendingTxBackend)
	}

	switch c.LLMProvider {
	case LLMProviderOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is openai")
		}
	case LLMProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER is gemini")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.SessionHistoryLimit <= 0 {
		return fmt.Errorf("SESSION_HISTORY_LIMIT must be positive")
	}
	if c.CapabilityTimeout <= 0 {
		return fmt.Errorf("CAPABILITY_TIMEOUT must be positive")
	}
	return nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
