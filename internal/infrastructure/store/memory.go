package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/domain/chat"
)

// MemoryStore is a mutex-based in-memory chat store.
// Records are copied on the way in and out so callers never share state.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*chat.Session
	messages map[string][]*chat.Message // session ID -> messages in insertion order
	now      func() time.Time
	log      zerolog.Logger
}

// NewMemoryStore creates a new in-memory chat store.
func NewMemoryStore(log zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*chat.Session),
		messages: make(map[string][]*chat.Message),
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.With().Str("component", "chat-store").Str("backend", "memory").Logger(),
	}
}

// GetOrCreate returns the session for the key, inserting it when missing.
func (s *MemoryStore) GetOrCreate(ctx context.Context, userID, sessionID string) (*chat.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		if sess.UserID != userID {
			return nil, false, chat.ErrSessionNotFound
		}
		return copySession(sess), false, nil
	}

	sess := chat.NewSession(userID, sessionID, s.now())
	s.sessions[sessionID] = sess
	return copySession(sess), true, nil
}

// FindSession retrieves an owned session by ID.
func (s *MemoryStore) FindSession(ctx context.Context, sessionID, userID string) (*chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.owned(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return copySession(sess), nil
}

// SessionOwner returns the owner of a session.
func (s *MemoryStore) SessionOwner(ctx context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", chat.ErrSessionNotFound
	}
	return sess.UserID, nil
}

// DeleteEmptySession removes an owned session without messages.
func (s *MemoryStore) DeleteEmptySession(ctx context.Context, sessionID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(sessionID, userID); err != nil {
		return false, nil
	}
	if len(s.messages[sessionID]) > 0 {
		return false, nil
	}
	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	return true, nil
}

// AppendMessage stores a message and refreshes the owning session.
func (s *MemoryStore) AppendMessage(ctx context.Context, msg *chat.Message) (*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.owned(msg.SessionID, msg.UserID)
	if err != nil {
		return nil, err
	}

	stored := copyMessage(msg)
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], stored)

	sess.UpdatedAt = s.now()
	if sess.Title == chat.DefaultTitle {
		sess.Title = chat.GenerateTitle(msg.Message)
	}
	return copyMessage(stored), nil
}

// ListSessions returns active sessions for a user, most recently updated first.
func (s *MemoryStore) ListSessions(ctx context.Context, userID string, limit int) ([]*chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*chat.Session, 0)
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.IsActive {
			result = append(result, copySession(sess))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListMessages returns the most recent messages of an owned session in chronological order.
func (s *MemoryStore) ListMessages(ctx context.Context, sessionID, userID string, limit int) ([]*chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.owned(sessionID, userID); err != nil {
		return nil, err
	}

	all := s.messages[sessionID]
	start := 0
	if limit > 0 && len(all) > limit {
		start = len(all) - limit
	}

	result := make([]*chat.Message, 0, len(all)-start)
	for _, msg := range all[start:] {
		result = append(result, copyMessage(msg))
	}
	return result, nil
}

// SoftDelete marks an owned session inactive.
func (s *MemoryStore) SoftDelete(ctx context.Context, sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.owned(sessionID, userID)
	if err != nil {
		return err
	}
	sess.IsActive = false
	return nil
}

func (s *MemoryStore) owned(sessionID, userID string) (*chat.Session, error) {
	sess, ok := s.sessions[sessionID]
	if !ok || sess.UserID != userID {
		return nil, chat.ErrSessionNotFound
	}
	return sess, nil
}

func copySession(sess *chat.Session) *chat.Session {
	clone := *sess
	return &clone
}

func copyMessage(msg *chat.Message) *chat.Message {
	clone := *msg
	if msg.Context != nil {
		clone.Context = make(map[string]any, len(msg.Context))
		for k, v := range msg.Context {
			clone.Context[k] = v
		}
	}
	return &clone
}

var _ chat.Store = (*MemoryStore)(nil)
