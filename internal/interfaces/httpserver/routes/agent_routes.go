package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/health-agent/internal/infrastructure/auth"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/handlers"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/requests"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/responses"
)

// RegisterAgentRoutes registers /run and the public agent metadata routes.
func RegisterAgentRoutes(router gin.IRouter, handler *handlers.AgentHandler, authValidator *auth.Validator) {
	router.GET("/health", health(handler))
	router.GET("/.well-known/agent.json", agentCard(handler))
	router.POST("/run", authValidator.OptionalMiddleware(), run(handler))
}

// RegisterDomainRoutes registers the dedicated men's health endpoints.
func RegisterDomainRoutes(router gin.IRouter, handler *handlers.AgentHandler, users userResolver) {
	router.POST("/health_assessment", runDomain(handler, users, handlers.KindHealthAssessment))
	router.POST("/fitness_plan", runDomain(handler, users, handlers.KindFitnessPlan))
	router.POST("/nutrition_advice", runDomain(handler, users, handlers.KindNutritionAdvice))
}

// health godoc
// @Summary      Agent health
// @Tags         Agent
// @Produce      json
// @Success      200 {object} responses.HealthResponse
// @Router       /health [get]
func health(handler *handlers.AgentHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, handler.Health())
	}
}

// agentCard godoc
// @Summary      Agent metadata
// @Description  Name, version, endpoints and the JSON schema of the run request and response.
// @Tags         Agent
// @Produce      json
// @Success      200 {object} responses.AgentCard
// @Router       /.well-known/agent.json [get]
func agentCard(handler *handlers.AgentHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, handler.Card())
	}
}

// run godoc
// @Summary      Process a message
// @Description  Classifies the message and dispatches it to the matching handler. Handler failures are reported with status "error"; a session_id owned by another user is a 404.
// @Tags         Agent
// @Accept       json
// @Produce      json
// @Param        request body requests.RunRequest true "Message"
// @Success      200 {object} responses.RunResponse
// @Failure      400 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Router       /run [post]
func run(handler *handlers.AgentHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req requests.RunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleBindError(c, err)
			return
		}

		res, err := handler.Run(c.Request.Context(), c.GetString(auth.ContextUserID), req)
		if err != nil {
			responses.HandleError(c, err, "failed to process message")
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// runDomain godoc
// @Summary      Dedicated men's health request
// @Description  Runs the message through the agent with the caller's profile. Served at /health_assessment, /fitness_plan and /nutrition_advice.
// @Tags         Agent
// @Accept       json
// @Produce      json
// @Param        request body requests.RunRequest true "Message"
// @Success      200 {object} responses.RunResponse
// @Failure      400 {object} responses.ErrorResponse
// @Failure      401 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /fitness_plan [post]
func runDomain(handler *handlers.AgentHandler, users userResolver, kind handlers.DomainKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req requests.RunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleBindError(c, err)
			return
		}

		res, err := handler.RunDomain(c.Request.Context(), users.userID(c), kind, req)
		if err != nil {
			responses.HandleError(c, err, "failed to process "+kind.Name)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
