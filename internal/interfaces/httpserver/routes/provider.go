package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"github.com/janhq/health-agent/internal/config"
	"github.com/janhq/health-agent/internal/infrastructure/auth"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/handlers"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/ws"
)

// Provider registers every API route.
type Provider struct {
	cfg           *config.Config
	handlers      *handlers.Provider
	ws            *ws.Handler
	authValidator *auth.Validator
}

// NewProvider creates a new route provider.
func NewProvider(cfg *config.Config, handlerProvider *handlers.Provider, wsHandler *ws.Handler, authValidator *auth.Validator) *Provider {
	return &Provider{
		cfg:           cfg,
		handlers:      handlerProvider,
		ws:            wsHandler,
		authValidator: authValidator,
	}
}

// Register registers all routes on the engine.
func (p *Provider) Register(engine *gin.Engine) {
	users := userResolver{defaultUserID: p.cfg.DefaultUserID}

	RegisterAgentRoutes(engine, p.handlers.Agent, p.authValidator)

	protected := engine.Group("/")
	protected.Use(p.authValidator.Middleware())
	RegisterDomainRoutes(protected, p.handlers.Agent, users)
	RegisterChatRoutes(protected, p.handlers.Chat, users)
	RegisterProfileRoutes(protected, p.handlers.Profile, users)
	RegisterTransactionRoutes(protected, p.handlers.Transaction, users)

	// The socket authenticates from its token query parameter.
	engine.GET("/chat/ws", p.ws.ServeWS)
}

// RouteProvider provides the route set for wire.
var RouteProvider = wire.NewSet(NewProvider)

// userResolver picks the caller identity set by the auth middleware.
type userResolver struct {
	defaultUserID string
}

func (u userResolver) userID(c *gin.Context) string {
	if id := c.GetString(auth.ContextUserID); id != "" {
		return id
	}
	return u.defaultUserID
}
