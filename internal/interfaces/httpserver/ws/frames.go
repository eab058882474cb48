package ws

import "time"

// Server frame types.
const (
	FrameConnected = "connected"
	FrameTyping    = "typing"
	FrameResponse  = "response"
	FrameError     = "error"
)

// ClientFrame is a message sent by the client.
type ClientFrame struct {
	Message     string         `json:"message"`
	SessionID   string         `json:"session_id,omitempty"`
	MessageType string         `json:"message_type,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

// ServerFrame is any frame the server pushes to the client.
type ServerFrame struct {
	Type      string         `json:"type"`
	Message   string         `json:"message,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp *time.Time     `json:"timestamp,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

func errorFrame(message string) ServerFrame {
	return ServerFrame{Type: FrameError, Message: message}
}
