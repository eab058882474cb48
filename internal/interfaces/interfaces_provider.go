package interfaces

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/config"
	"github.com/janhq/health-agent/internal/domain/orchestrator"
	"github.com/janhq/health-agent/internal/domain/profile"
	"github.com/janhq/health-agent/internal/domain/router"
	"github.com/janhq/health-agent/internal/infrastructure/auth"
	"github.com/janhq/health-agent/internal/interfaces/httpserver"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/handlers"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/routes"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/ws"
)

// InterfacesProvider provides all interface dependencies.
var InterfacesProvider = wire.NewSet(
	handlers.HandlerProvider,
	routes.RouteProvider,
	NewWSHandler,
	wire.Bind(new(handlers.Dispatcher), new(*router.Router)),
	httpserver.New,
)

// NewWSHandler builds the chat socket handler.
func NewWSHandler(cfg *config.Config, orch orchestrator.Service, profiles profile.Service, validator *auth.Validator, log zerolog.Logger) *ws.Handler {
	return ws.NewHandler(orch, profiles, validator, cfg.DefaultUserID, log)
}
