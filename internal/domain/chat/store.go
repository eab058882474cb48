package chat

import (
	"context"
	"errors"
)

var (
	// ErrSessionNotFound is returned when a session is absent or owned by another user.
	ErrSessionNotFound = errors.New("session not found")
)

// Store persists sessions and messages.
// Every operation is keyed by (sessionID, userID); a session owned by another
// user is reported as ErrSessionNotFound.
type Store interface {
	// GetOrCreate returns the session for the key, inserting it atomically
	// when it does not exist. created reports whether this call inserted it.
	GetOrCreate(ctx context.Context, userID, sessionID string) (sess *Session, created bool, err error)

	// FindSession returns the session regardless of its active flag.
	FindSession(ctx context.Context, sessionID, userID string) (*Session, error)

	// SessionOwner returns the user owning a session, or ErrSessionNotFound.
	SessionOwner(ctx context.Context, sessionID string) (string, error)

	// DeleteEmptySession removes an owned session that holds no messages.
	// deleted is false when the session has messages or does not exist.
	DeleteEmptySession(ctx context.Context, sessionID, userID string) (deleted bool, err error)

	// AppendMessage stores a turn, bumps the session's updated_at and derives
	// the title on the first message.
	AppendMessage(ctx context.Context, msg *Message) (*Message, error)

	// ListSessions returns active sessions, most recently updated first.
	ListSessions(ctx context.Context, userID string, limit int) ([]*Session, error)

	// ListMessages returns the most recent messages of a session in chronological order.
	ListMessages(ctx context.Context, sessionID, userID string, limit int) ([]*Message, error)

	// SoftDelete clears the active flag.
	SoftDelete(ctx context.Context, sessionID, userID string) error
}
