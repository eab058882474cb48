package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/health-agent/internal/domain/transaction"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/handlers"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/responses"
)

// RegisterTransactionRoutes registers the pending receipt routes.
func RegisterTransactionRoutes(router gin.IRouter, handler *handlers.TransactionHandler, users userResolver) {
	router.GET("/transactions/:id", transactionAction(handler.Get, users))
	router.POST("/transactions/:id/confirm", transactionAction(handler.Confirm, users))
	router.POST("/transactions/:id/cancel", transactionAction(handler.Cancel, users))
}

type transactionFunc func(ctx context.Context, id, userID string) (*transaction.Transaction, error)

// transactionAction godoc
// @Summary      Read, confirm or cancel a pending receipt
// @Description  GET /transactions/{id}, POST /transactions/{id}/confirm and POST /transactions/{id}/cancel. Only pending receipts can change state.
// @Tags         Transactions
// @Produce      json
// @Param        id path string true "Transaction ID"
// @Success      200 {object} transaction.Transaction
// @Failure      404 {object} responses.ErrorResponse
// @Failure      409 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /transactions/{id} [get]
func transactionAction(fn transactionFunc, users userResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx, err := fn(c.Request.Context(), c.Param("id"), users.userID(c))
		if err != nil {
			responses.HandleError(c, err, "transaction action")
			return
		}
		c.JSON(http.StatusOK, tx)
	}
}
