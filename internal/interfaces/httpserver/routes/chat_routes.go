package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/janhq/health-agent/internal/interfaces/httpserver/handlers"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/responses"
	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

// RegisterChatRoutes registers the conversation history routes.
func RegisterChatRoutes(router gin.IRouter, handler *handlers.ChatHandler, users userResolver) {
	router.GET("/chat/sessions", listSessions(handler, users))
	router.GET("/chat/sessions/:id", getSession(handler, users))
	router.DELETE("/chat/sessions/:id", deleteSession(handler, users))
}

// listSessions godoc
// @Summary      List chat sessions
// @Description  Active sessions of the caller, most recently updated first.
// @Tags         Chat
// @Produce      json
// @Param        limit query int false "Maximum sessions to return"
// @Success      200 {object} responses.ListSessionsResponse
// @Failure      401 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /chat/sessions [get]
func listSessions(handler *handlers.ChatHandler, users userResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				platformerrors.WriteValidationError(c, "limit must be a positive integer")
				return
			}
			limit = n
		}

		sessions, err := handler.ListSessions(c.Request.Context(), users.userID(c), limit)
		if err != nil {
			responses.HandleError(c, err, "failed to list sessions")
			return
		}
		c.JSON(http.StatusOK, responses.NewListSessionsResponse(sessions))
	}
}

// getSession godoc
// @Summary      Get a chat session
// @Description  Session header with its most recent messages in chronological order. Sessions of other users are reported as not found.
// @Tags         Chat
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} responses.SessionDetailResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /chat/sessions/{id} [get]
func getSession(handler *handlers.ChatHandler, users userResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := handler.GetSession(c.Request.Context(), c.Param("id"), users.userID(c))
		if err != nil {
			responses.HandleError(c, err, "get session")
			return
		}
		c.JSON(http.StatusOK, responses.NewSessionDetailResponse(sess))
	}
}

// deleteSession godoc
// @Summary      Delete a chat session
// @Description  Soft-deletes the session. It disappears from the list but its messages are kept.
// @Tags         Chat
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} responses.DeleteSessionResponse
// @Failure      404 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /chat/sessions/{id} [delete]
func deleteSession(handler *handlers.ChatHandler, users userResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := handler.DeleteSession(c.Request.Context(), id, users.userID(c)); err != nil {
			responses.HandleError(c, err, "delete session")
			return
		}
		c.JSON(http.StatusOK, responses.DeleteSessionResponse{
			SessionID: id,
			Deleted:   true,
			Message:   "Session deleted successfully",
		})
	}
}
