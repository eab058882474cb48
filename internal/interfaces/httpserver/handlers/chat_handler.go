package handlers

import (
	"context"

	"github.com/janhq/health-agent/internal/domain/chat"
)

// ChatHandler exposes the caller's conversation history.
type ChatHandler struct {
	sessions chat.Service
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(sessions chat.Service) *ChatHandler {
	return &ChatHandler{sessions: sessions}
}

// ListSessions returns the caller's active sessions, most recent first.
func (h *ChatHandler) ListSessions(ctx context.Context, userID string, limit int) ([]*chat.Session, error) {
	return h.sessions.ListSessions(ctx, userID, limit)
}

// GetSession returns an owned session with its capped history.
func (h *ChatHandler) GetSession(ctx context.Context, sessionID, userID string) (*chat.SessionWithMessages, error) {
	return h.sessions.GetSessionWithMessages(ctx, sessionID, userID)
}

// DeleteSession soft-deletes an owned session.
func (h *ChatHandler) DeleteSession(ctx context.Context, sessionID, userID string) error {
	return h.sessions.SoftDelete(ctx, sessionID, userID)
}
