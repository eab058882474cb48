package chat

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultTitle is the title of a session that has not received a message yet.
const DefaultTitle = "New Conversation"

// TitleMaxLength is the number of characters kept when deriving a title.
const TitleMaxLength = 50

// Message types persisted with a turn.
const (
	MessageTypeChat             = "chat"
	MessageTypeImage            = "image_identification"
	MessageTypeHealthAssessment = "health_assessment"
	MessageTypeFitnessPlan      = "fitness_plan"
	MessageTypeNutritionAdvice  = "nutrition_advice"
)

// Session is one user's conversation thread.
type Session struct {
	SessionID string    `json:"session_id" bson:"session_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Title     string    `json:"title" bson:"title"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
	IsActive  bool      `json:"is_active" bson:"is_active"`
}

// Message is one persisted turn: the inbound text paired with the reply.
type Message struct {
	ID             string         `json:"id" bson:"message_id"`
	SessionID      string         `json:"session_id" bson:"session_id"`
	UserID         string         `json:"user_id" bson:"user_id"`
	Message        string         `json:"message" bson:"message"`
	Response       string         `json:"response" bson:"response"`
	MessageType    string         `json:"message_type" bson:"message_type"`
	Context        map[string]any `json:"context,omitempty" bson:"context,omitempty"`
	CreatedAt      time.Time      `json:"created_at" bson:"created_at"`
	ResponseTimeMS int64          `json:"response_time_ms" bson:"response_time_ms"`
}

// NewMessage describes a turn to append to a session.
type NewMessage struct {
	SessionID      string
	UserID         string
	Message        string
	Response       string
	MessageType    string
	Context        map[string]any
	ResponseTimeMS int64
}

// SessionWithMessages is a session header plus its chronological history.
type SessionWithMessages struct {
	Session  *Session
	Messages []*Message
}

// GenerateTitle derives a session title from the first message.
func GenerateTitle(firstMessage string) string {
	title := strings.TrimSpace(firstMessage)
	if title == "" {
		return DefaultTitle
	}
	if utf8.RuneCountInString(title) > TitleMaxLength {
		runes := []rune(title)
		title = string(runes[:TitleMaxLength]) + "..."
	}
	return title
}

// NewSession builds an active session with the default title.
func NewSession(userID, sessionID string, now time.Time) *Session {
	return &Session{
		SessionID: sessionID,
		UserID:    userID,
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
}
