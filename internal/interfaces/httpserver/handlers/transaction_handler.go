package handlers

import (
	"context"

	"github.com/janhq/health-agent/internal/domain/transaction"
)

// TransactionHandler exposes pending receipts over HTTP.
type TransactionHandler struct {
	transactions transaction.Service
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(transactions transaction.Service) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

func (h *TransactionHandler) Get(ctx context.Context, id, userID string) (*transaction.Transaction, error) {
	return h.transactions.Get(ctx, id, userID)
}

func (h *TransactionHandler) Confirm(ctx context.Context, id, userID string) (*transaction.Transaction, error) {
	return h.transactions.Confirm(ctx, id, userID)
}

func (h *TransactionHandler) Cancel(ctx context.Context, id, userID string) (*transaction.Transaction, error) {
	return h.transactions.Cancel(ctx, id, userID)
}
