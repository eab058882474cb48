package handlers

import (
	"github.com/google/wire"
)

// Provider holds all HTTP handlers.
type Provider struct {
	Agent       *AgentHandler
	Chat        *ChatHandler
	Profile     *ProfileHandler
	Transaction *TransactionHandler
}

// NewProvider creates a new handler provider.
func NewProvider(agent *AgentHandler, chat *ChatHandler, profile *ProfileHandler, transaction *TransactionHandler) *Provider {
	return &Provider{
		Agent:       agent,
		Chat:        chat,
		Profile:     profile,
		Transaction: transaction,
	}
}

// HandlerProvider provides all handlers for wire.
var HandlerProvider = wire.NewSet(
	NewAgentHandler,
	NewChatHandler,
	NewProfileHandler,
	NewTransactionHandler,
	NewProvider,
)
