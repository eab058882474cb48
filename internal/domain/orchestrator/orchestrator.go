// Package orchestrator resolves the session of a turn, picks the vision fast
// path or the delegated LLM path, and persists exactly one message per
// successful turn.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/domain/capability"
	"github.com/janhq/health-agent/internal/domain/chat"
	"github.com/janhq/health-agent/internal/infrastructure/metrics"
	"github.com/janhq/health-agent/internal/infrastructure/observability"
	"github.com/janhq/health-agent/internal/utils/idgen"
	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

// Status tags a normalized result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusInfo    Status = "info"
)

// Processing methods reported in result data.
const (
	MethodDirectVision = "direct_vision"
	MethodAgentLLM     = "agent_llm"
)

// Context keys read from the turn context.
const (
	ContextImageData   = "image_data"
	ContextIsURL       = "is_url"
	ContextUserID      = "user_id"
	ContextRawEvents   = "raw_events"
	ContextUserProfile = "user_profile"
)

// Turn is one inbound message.
type Turn struct {
	Message     string
	Context     map[string]any
	SessionID   string
	UserID      string
	MessageType string
}

// Result is the normalized outcome of a turn.
type Result struct {
	Message   string         `json:"message"`
	Status    Status         `json:"status"`
	SessionID string         `json:"session_id,omitempty"`
	Data      map[string]any `json:"data"`
}

// Options configure the orchestrator.
type Options struct {
	DefaultUserID string
	// ContextTurns is the number of prior messages handed to the LLM.
	ContextTurns int
	// Timeout bounds every capability invocation.
	Timeout time.Duration
}

// Service processes turns.
type Service interface {
	// Process returns an error for invalid input and for a session ID owned by
	// another user. Capability and store failures come back as a status-error
	// result.
	Process(ctx context.Context, turn Turn) (*Result, error)
}

type service struct {
	sessions   chat.Service
	runner     capability.Runner
	classifier capability.ImageClassifier
	opts       Options
	log        zerolog.Logger
}

// NewService creates the task orchestrator.
func NewService(sessions chat.Service, runner capability.Runner, classifier capability.ImageClassifier, opts Options, log zerolog.Logger) Service {
	if opts.DefaultUserID == "" {
		opts.DefaultUserID = "default_health_user"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &service{
		sessions:   sessions,
		runner:     runner,
		classifier: classifier,
		opts:       opts,
		log:        log.With().Str("component", "orchestrator").Logger(),
	}
}

type outcome struct {
	reply     string
	method    string
	rawEvents map[string]any
	extra     map[string]any
	msgType   string
}

func (s *service) Process(ctx context.Context, turn Turn) (*Result, error) {
	message := strings.TrimSpace(turn.Message)
	if message == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "message is required", nil)
	}

	userID := s.resolveUserID(turn)
	sessionID := strings.TrimSpace(turn.SessionID)
	if sessionID == "" {
		sessionID = idgen.NewSessionID()
		s.log.Info().Str("session_id", sessionID).Msg("generated new session id")
	}

	ctx, span := observability.StartTurnSpan(ctx, sessionID, userID, turn.MessageType, message)
	defer span.End()

	start := time.Now()
	log := s.log.With().Str("session_id", sessionID).Str("user_id", userID).Logger()

	if strings.TrimSpace(turn.SessionID) != "" {
		err := s.sessions.Authorize(ctx, sessionID, userID)
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			log.Warn().Msg("session owned by another user")
			return nil, err
		}
		if err != nil {
			observability.RecordError(span, err)
			log.Error().Err(err).Msg("check session owner")
			return errorResult(sessionID, err), nil
		}
	}

	var (
		out *outcome
		err error
	)
	if image := imagePayload(turn.Context); image != "" {
		out, err = s.identify(ctx, image, isURL(turn.Context))
	} else {
		out, err = s.delegate(ctx, userID, sessionID, message)
	}
	if err != nil {
		observability.RecordError(span, err)
		log.Error().Err(err).Msg("capability failed")
		return errorResult(sessionID, err), nil
	}

	msgType := turn.MessageType
	if msgType == "" {
		msgType = out.msgType
	}
	latency := time.Since(start).Milliseconds()

	if _, err := s.sessions.GetOrCreate(ctx, userID, sessionID); err != nil {
		observability.RecordError(span, err)
		log.Error().Err(err).Msg("resolve session")
		return errorResult(sessionID, err), nil
	}
	if _, err := s.sessions.AppendMessage(ctx, chat.NewMessage{
		SessionID:      sessionID,
		UserID:         userID,
		Message:        message,
		Response:       out.reply,
		MessageType:    msgType,
		Context:        storedContext(turn.Context, out.rawEvents),
		ResponseTimeMS: latency,
	}); err != nil {
		observability.RecordError(span, err)
		log.Error().Err(err).Msg("persist message")
		if discardErr := s.sessions.Discard(ctx, sessionID, userID); discardErr != nil {
			log.Error().Err(discardErr).Msg("discard session after failed append")
		}
		return errorResult(sessionID, err), nil
	}

	data := map[string]any{
		"processing_method": out.method,
		"raw_events":        out.rawEvents,
		"response_time_ms":  latency,
		"session_id":        sessionID,
	}
	for k, v := range out.extra {
		data[k] = v
	}

	log.Info().Str("processing_method", out.method).Int64("response_time_ms", latency).Msg("turn processed")
	return &Result{
		Message:   out.reply,
		Status:    StatusSuccess,
		SessionID: sessionID,
		Data:      data,
	}, nil
}

// identify is the deterministic image fast path. The LLM is never consulted.
func (s *service) identify(ctx context.Context, image string, url bool) (*outcome, error) {
	if s.classifier == nil {
		return nil, errors.New("image identification is not configured")
	}

	ctx, span := observability.StartCapabilitySpan(ctx, "vision")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	res, err := s.classifier.Classify(callCtx, capability.ImageInput{Data: image, IsURL: url})
	err = timeoutAware(callCtx, err)
	metrics.RecordCapability("vision", time.Since(start).Seconds(), failureReason(err, res))
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if !res.Success {
		reason := res.Reason
		if reason == "" {
			reason = "image could not be identified"
		}
		return nil, errors.New(reason)
	}

	identification := map[string]any{
		"label":      res.Label,
		"title":      res.DisplayName(),
		"confidence": res.Confidence,
	}
	raw := map[string]any{
		"label":      res.Label,
		"title":      res.Title,
		"confidence": res.Confidence,
	}
	for k, v := range res.Extra {
		raw[k] = v
	}

	return &outcome{
		reply:     fmt.Sprintf("I identified this as %s (%.0f%% confidence).", res.DisplayName(), res.Confidence*100),
		method:    MethodDirectVision,
		rawEvents: raw,
		extra:     map[string]any{"identification": identification},
		msgType:   chat.MessageTypeImage,
	}, nil
}

// delegate runs the LLM within the session's conversation scope.
func (s *service) delegate(ctx context.Context, userID, sessionID, message string) (*outcome, error) {
	history, err := s.sessions.History(ctx, sessionID, userID, s.opts.ContextTurns)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartCapabilitySpan(ctx, "llm")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	events, err := s.run(callCtx, capability.RunRequest{
		UserID:    userID,
		SessionID: sessionID,
		Prompt:    fmt.Sprintf("User ID: %s\n\n%s", userID, message),
		History:   toHistory(history),
	})
	err = timeoutAware(callCtx, err)
	metrics.RecordCapability("llm", time.Since(start).Seconds(), failureReason(err, nil))
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	return &outcome{
		reply:     capability.FinalReply(events),
		method:    MethodAgentLLM,
		rawEvents: capability.LastRaw(events),
		msgType:   chat.MessageTypeChat,
	}, nil
}

func (s *service) run(ctx context.Context, req capability.RunRequest) ([]*capability.TurnEvent, error) {
	stream, err := s.runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	type collected struct {
		events []*capability.TurnEvent
		err    error
	}
	done := make(chan collected, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("session_id", req.SessionID).Msg("capability stream panicked")
				done <- collected{err: fmt.Errorf("capability panic: %v", rec)}
			}
		}()
		events, err := capability.Collect(stream)
		done <- collected{events: events, err: err}
	}()

	// a stream that ignores its context must not hold the turn past the deadline
	select {
	case c := <-done:
		return c.events, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *service) resolveUserID(turn Turn) string {
	if id := strings.TrimSpace(turn.UserID); id != "" {
		return id
	}
	if id, ok := turn.Context[ContextUserID].(string); ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	return s.opts.DefaultUserID
}

func imagePayload(ctx map[string]any) string {
	image, _ := ctx[ContextImageData].(string)
	return strings.TrimSpace(image)
}

func isURL(ctx map[string]any) bool {
	switch v := ctx[ContextIsURL].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

func toHistory(messages []*chat.Message) []capability.HistoryMessage {
	history := make([]capability.HistoryMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, capability.HistoryMessage{Message: m.Message, Response: m.Response})
	}
	return history
}

// storedContext copies the turn context without the raw image payload and
// attaches the capability metadata.
func storedContext(in map[string]any, rawEvents map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		if k == ContextImageData {
			continue
		}
		out[k] = v
	}
	if rawEvents != nil {
		out[ContextRawEvents] = rawEvents
	}
	return out
}

func timeoutAware(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("capability timed out: %w", context.DeadlineExceeded)
	}
	return err
}

func failureReason(err error, res *capability.Classification) string {
	switch {
	case err == nil && (res == nil || res.Success):
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case err != nil:
		return "error"
	default:
		return "rejected"
	}
}

func errorResult(sessionID string, err error) *Result {
	msg := err.Error()
	if pe := platformerrors.GetPlatformError(err); pe != nil {
		msg = pe.Message
	}
	return &Result{
		Message:   "Error: " + msg,
		Status:    StatusError,
		SessionID: sessionID,
		Data:      map[string]any{"session_id": sessionID},
	}
}
