package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/infrastructure/metrics"
	"github.com/janhq/health-agent/internal/utils/idgen"
	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

const maxListLimit = 100

// Options tune listing and lookup behaviour.
type Options struct {
	// HistoryLimit caps the messages returned with a session.
	HistoryLimit int
	// ListLimit is the default page size for ListSessions.
	ListLimit int
	// DeletedReadable keeps soft-deleted sessions readable by direct lookup.
	DeletedReadable bool
}

// Service defines the session store operations used by the orchestrator and transports.
type Service interface {
	GetOrCreate(ctx context.Context, userID, sessionID string) (*Session, error)
	AppendMessage(ctx context.Context, msg NewMessage) (*Message, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]*Session, error)
	GetSessionWithMessages(ctx context.Context, sessionID, userID string) (*SessionWithMessages, error)
	SoftDelete(ctx context.Context, sessionID, userID string) error
	// Authorize fails with a not found error when sessionID belongs to another
	// user. Unknown session IDs are allowed; the session is created later.
	Authorize(ctx context.Context, sessionID, userID string) error
	// Discard removes a session that holds no messages. Sessions with history
	// are left untouched.
	Discard(ctx context.Context, sessionID, userID string) error
	// History returns up to limit recent messages of an existing session, or
	// nothing when the session does not exist yet.
	History(ctx context.Context, sessionID, userID string, limit int) ([]*Message, error)
}

type service struct {
	store Store
	opts  Options
	log   zerolog.Logger
}

// NewService creates a new chat session service.
func NewService(store Store, opts Options, log zerolog.Logger) Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = 20
	}
	return &service{
		store: store,
		opts:  opts,
		log:   log.With().Str("component", "chat-service").Logger(),
	}
}

func (s *service) GetOrCreate(ctx context.Context, userID, sessionID string) (*Session, error) {
	if err := requireKey(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	sess, created, err := s.store.GetOrCreate(ctx, userID, sessionID)
	if err != nil {
		return nil, s.wrap(ctx, err, "get or create session")
	}
	if created {
		metrics.RecordSessionCreated()
		s.log.Info().Str("session_id", sessionID).Str("user_id", userID).Msg("session created")
	}
	return sess, nil
}

func (s *service) AppendMessage(ctx context.Context, in NewMessage) (*Message, error) {
	if err := requireKey(ctx, in.UserID, in.SessionID); err != nil {
		return nil, err
	}

	msgType := in.MessageType
	if msgType == "" {
		msgType = MessageTypeChat
	}

	msg := &Message{
		ID:             idgen.NewMessageID(),
		SessionID:      in.SessionID,
		UserID:         in.UserID,
		Message:        in.Message,
		Response:       in.Response,
		MessageType:    msgType,
		Context:        in.Context,
		CreatedAt:      time.Now().UTC(),
		ResponseTimeMS: in.ResponseTimeMS,
	}

	stored, err := s.store.AppendMessage(ctx, msg)
	if err != nil {
		return nil, s.wrap(ctx, err, "append message")
	}

	s.log.Debug().
		Str("session_id", in.SessionID).
		Str("message_id", stored.ID).
		Str("message_type", msgType).
		Msg("message saved")
	return stored, nil
}

func (s *service) ListSessions(ctx context.Context, userID string, limit int) ([]*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "user id is required", nil)
	}
	if limit <= 0 {
		limit = s.opts.ListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	sessions, err := s.store.ListSessions(ctx, userID, limit)
	if err != nil {
		return nil, s.wrap(ctx, err, "list sessions")
	}
	return sessions, nil
}

func (s *service) GetSessionWithMessages(ctx context.Context, sessionID, userID string) (*SessionWithMessages, error) {
	if err := requireKey(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	sess, err := s.store.FindSession(ctx, sessionID, userID)
	if err != nil {
		return nil, s.wrap(ctx, err, "get session")
	}
	if !sess.IsActive && !s.opts.DeletedReadable {
		return nil, s.wrap(ctx, ErrSessionNotFound, "get session")
	}

	messages, err := s.store.ListMessages(ctx, sessionID, userID, s.opts.HistoryLimit)
	if err != nil {
		return nil, s.wrap(ctx, err, "list messages")
	}

	return &SessionWithMessages{Session: sess, Messages: messages}, nil
}

func (s *service) SoftDelete(ctx context.Context, sessionID, userID string) error {
	if err := requireKey(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, sessionID, userID); err != nil {
		return s.wrap(ctx, err, "delete session")
	}
	metrics.RecordSessionDeleted()
	s.log.Info().Str("session_id", sessionID).Str("user_id", userID).Msg("session deleted")
	return nil
}

func (s *service) Authorize(ctx context.Context, sessionID, userID string) error {
	if err := requireKey(ctx, userID, sessionID); err != nil {
		return err
	}

	owner, err := s.store.SessionOwner(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return s.wrap(ctx, err, "check session owner")
	}
	if owner != userID {
		s.log.Warn().Str("session_id", sessionID).Str("user_id", userID).Msg("session owned by another user")
		return s.wrap(ctx, ErrSessionNotFound, "check session owner")
	}
	return nil
}

func (s *service) Discard(ctx context.Context, sessionID, userID string) error {
	if err := requireKey(ctx, userID, sessionID); err != nil {
		return err
	}

	deleted, err := s.store.DeleteEmptySession(ctx, sessionID, userID)
	if err != nil {
		return s.wrap(ctx, err, "discard session")
	}
	if deleted {
		s.log.Info().Str("session_id", sessionID).Str("user_id", userID).Msg("empty session discarded")
	}
	return nil
}

func (s *service) History(ctx context.Context, sessionID, userID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	messages, err := s.store.ListMessages(ctx, sessionID, userID, limit)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrap(ctx, err, "load history")
	}
	return messages, nil
}

func (s *service) wrap(ctx context.Context, err error, message string) error {
	if errors.Is(err, ErrSessionNotFound) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "session not found", err)
	}
	if platformerrors.GetPlatformError(err) != nil {
		return err
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabaseError, message, err)
}

func requireKey(ctx context.Context, userID, sessionID string) error {
	if strings.TrimSpace(userID) == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "user id is required", nil)
	}
	if strings.TrimSpace(sessionID) == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "session id is required", nil)
	}
	return nil
}
