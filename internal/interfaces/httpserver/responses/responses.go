// Package responses contains HTTP response DTOs for the health agent.
package responses

import (
	"time"

	"github.com/janhq/health-agent/internal/domain/chat"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// RunResponse is the envelope returned by /run and the domain endpoints.
type RunResponse struct {
	Message   string         `json:"message"`
	Status    string         `json:"status" enums:"success,error,info"`
	Data      map[string]any `json:"data"`
	SessionID string         `json:"session_id,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status" example:"healthy"`
	Agent   string `json:"agent"`
	Version string `json:"version"`
}

// AgentCard describes the agent at /.well-known/agent.json.
type AgentCard struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Endpoints    []string `json:"endpoints"`
	Version      string   `json:"version"`
	InputSchema  any      `json:"input_schema"`
	OutputSchema any      `json:"output_schema"`
}

// SessionResponse is a session header.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsActive  bool      `json:"is_active"`
}

// ListSessionsResponse is returned by GET /chat/sessions.
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int               `json:"total"`
}

// MessageResponse is one stored turn.
type MessageResponse struct {
	Message        string    `json:"message"`
	Response       string    `json:"response"`
	MessageType    string    `json:"message_type"`
	CreatedAt      time.Time `json:"created_at"`
	ResponseTimeMS int64     `json:"response_time_ms"`
}

// SessionDetailResponse is a session header plus its messages.
type SessionDetailResponse struct {
	SessionResponse
	Messages []MessageResponse `json:"messages"`
}

// DeleteSessionResponse confirms a soft delete.
type DeleteSessionResponse struct {
	SessionID string `json:"session_id"`
	Deleted   bool   `json:"deleted"`
	Message   string `json:"message"`
}

// NewSessionResponse converts a domain session.
func NewSessionResponse(s *chat.Session) SessionResponse {
	return SessionResponse{
		SessionID: s.SessionID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		IsActive:  s.IsActive,
	}
}

// NewListSessionsResponse converts a page of sessions.
func NewListSessionsResponse(sessions []*chat.Session) ListSessionsResponse {
	out := ListSessionsResponse{Sessions: make([]SessionResponse, 0, len(sessions)), Total: len(sessions)}
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, NewSessionResponse(s))
	}
	return out
}

// NewSessionDetailResponse converts a session with its history.
func NewSessionDetailResponse(s *chat.SessionWithMessages) SessionDetailResponse {
	out := SessionDetailResponse{
		SessionResponse: NewSessionResponse(s.Session),
		Messages:        make([]MessageResponse, 0, len(s.Messages)),
	}
	for _, m := range s.Messages {
		out.Messages = append(out.Messages, MessageResponse{
			Message:        m.Message,
			Response:       m.Response,
			MessageType:    m.MessageType,
			CreatedAt:      m.CreatedAt,
			ResponseTimeMS: m.ResponseTimeMS,
		})
	}
	return out
}
