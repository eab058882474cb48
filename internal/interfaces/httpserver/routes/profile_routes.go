package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/health-agent/internal/interfaces/httpserver/handlers"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/requests"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/responses"
)

// RegisterProfileRoutes registers the user profile routes.
func RegisterProfileRoutes(router gin.IRouter, handler *handlers.ProfileHandler, users userResolver) {
	router.GET("/profile", getProfile(handler, users))
	router.PUT("/profile", updateProfile(handler, users))
}

// getProfile godoc
// @Summary      Get the caller's health profile
// @Tags         Profile
// @Produce      json
// @Success      200 {object} profile.Profile
// @Failure      401 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /profile [get]
func getProfile(handler *handlers.ProfileHandler, users userResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := handler.GetProfile(c.Request.Context(), users.userID(c))
		if err != nil {
			responses.HandleError(c, err, "failed to load profile")
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// updateProfile godoc
// @Summary      Update the caller's health profile
// @Description  Partial update. Age must be 13-120 and fitness_level one of beginner, intermediate, advanced.
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Param        request body requests.UpdateProfileRequest true "Profile fields"
// @Success      200 {object} profile.Profile
// @Failure      400 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /profile [put]
func updateProfile(handler *handlers.ProfileHandler, users userResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req requests.UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleBindError(c, err)
			return
		}

		p, err := handler.UpdateProfile(c.Request.Context(), users.userID(c), req)
		if err != nil {
			responses.HandleError(c, err, "failed to update profile")
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
