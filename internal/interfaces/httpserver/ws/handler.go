// Package ws serves the chat turn protocol over WebSocket. Each connection
// processes one turn at a time; frames arriving mid-turn are rejected.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/domain/chat"
	"github.com/janhq/health-agent/internal/domain/orchestrator"
	"github.com/janhq/health-agent/internal/domain/profile"
	"github.com/janhq/health-agent/internal/infrastructure/metrics"
	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

const (
	maxFrameBytes = 16 << 20
	writeTimeout  = 10 * time.Second

	msgEmpty   = "Empty message"
	msgBusy    = "busy: a message is already being processed"
	msgInvalid = "Invalid message format"
	msgAuth    = "Authentication failed"
)

// TurnProcessor runs one chat turn.
type TurnProcessor interface {
	Process(ctx context.Context, turn orchestrator.Turn) (*orchestrator.Result, error)
}

// Authenticator validates the token supplied on connect.
type Authenticator interface {
	Enabled() bool
	ValidateToken(ctx context.Context, token string) (string, jwt.MapClaims, error)
}

// Handler upgrades /chat/ws requests and runs the turn loop.
type Handler struct {
	processor     TurnProcessor
	profiles      profile.Service
	auth          Authenticator
	defaultUserID string
	upgrader      websocket.Upgrader
	log           zerolog.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(processor TurnProcessor, profiles profile.Service, auth Authenticator, defaultUserID string, log zerolog.Logger) *Handler {
	return &Handler{
		processor:     processor,
		profiles:      profiles,
		auth:          auth,
		defaultUserID: defaultUserID,
		upgrader:      websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:           log.With().Str("component", "ws").Logger(),
	}
}

// ServeWS handles GET /chat/ws.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	cc := &connection{conn: conn, log: h.log}
	defer conn.Close()

	userID, err := h.authenticate(ctx, c.Request)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket authentication failed")
		_ = cc.write(errorFrame(msgAuth))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, msgAuth),
			time.Now().Add(writeTimeout))
		return
	}

	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	log := h.log.With().Str("user_id", userID).Logger()
	cc.log = log
	log.Info().Msg("websocket connected")

	if err := cc.write(ServerFrame{Type: FrameConnected, UserID: userID}); err != nil {
		return
	}

	conn.SetReadLimit(maxFrameBytes)

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("websocket closed unexpectedly")
			} else {
				log.Info().Msg("websocket disconnected")
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			_ = cc.write(errorFrame(msgInvalid))
			continue
		}
		if strings.TrimSpace(frame.Message) == "" {
			_ = cc.write(errorFrame(msgEmpty))
			continue
		}
		if !cc.busy.CompareAndSwap(false, true) {
			_ = cc.write(errorFrame(msgBusy))
			continue
		}

		if err := cc.write(ServerFrame{Type: FrameTyping, SessionID: frame.SessionID}); err != nil {
			cc.busy.Store(false)
			return
		}

		wg.Add(1)
		go func(frame ClientFrame) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					cc.busy.Store(false)
					log.Error().Interface("panic", rec).Msg("turn panicked")
					_ = cc.write(errorFrame("internal error"))
				}
			}()
			h.processTurn(ctx, cc, userID, frame)
		}(frame)
	}
}

func (h *Handler) authenticate(ctx context.Context, r *http.Request) (string, error) {
	if h.auth != nil && h.auth.Enabled() {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		}
		userID, _, err := h.auth.ValidateToken(ctx, token)
		return userID, err
	}

	if userID := strings.TrimSpace(r.URL.Query().Get("user_id")); userID != "" {
		return userID, nil
	}
	if userID := strings.TrimSpace(r.Header.Get("X-User-ID")); userID != "" {
		return userID, nil
	}
	return h.defaultUserID, nil
}

// processTurn runs the orchestrator and always releases the busy flag before
// the reply is written, so a client reacting to the reply is never rejected.
func (h *Handler) processTurn(ctx context.Context, cc *connection, userID string, frame ClientFrame) {
	turnCtx := make(map[string]any, len(frame.Context)+2)
	for k, v := range frame.Context {
		turnCtx[k] = v
	}
	turnCtx[orchestrator.ContextUserID] = userID
	if h.profiles != nil {
		if p, err := h.profiles.Get(ctx, userID); err != nil {
			cc.log.Warn().Err(err).Msg("load profile for turn")
		} else {
			turnCtx[orchestrator.ContextUserProfile] = p.Snapshot()
		}
	}

	messageType := frame.MessageType
	if messageType == "" {
		messageType = chat.MessageTypeChat
	}

	res, err := h.processor.Process(ctx, orchestrator.Turn{
		Message:     frame.Message,
		Context:     turnCtx,
		SessionID:   frame.SessionID,
		UserID:      userID,
		MessageType: messageType,
	})
	cc.busy.Store(false)

	if ctx.Err() != nil {
		return
	}

	switch {
	case err != nil:
		msg := err.Error()
		if pe := platformerrors.GetPlatformError(err); pe != nil {
			msg = pe.Message
		}
		_ = cc.write(errorFrame(msg))
	case res.Status == orchestrator.StatusError:
		_ = cc.write(ServerFrame{Type: FrameError, Message: res.Message, SessionID: res.SessionID})
	default:
		now := time.Now().UTC()
		_ = cc.write(ServerFrame{
			Type:      FrameResponse,
			Message:   res.Message,
			SessionID: res.SessionID,
			UserID:    userID,
			Timestamp: &now,
			Data:      res.Data,
		})
	}
}

type connection struct {
	conn *websocket.Conn
	mu   sync.Mutex
	busy atomic.Bool
	log  zerolog.Logger
}

func (c *connection) write(frame ServerFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(frame); err != nil {
		c.log.Warn().Err(err).Str("frame", frame.Type).Msg("websocket write failed")
		return err
	}
	return nil
}
