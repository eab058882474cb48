package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/config"
	"github.com/janhq/health-agent/internal/domain/chat"
	"github.com/janhq/health-agent/internal/domain/orchestrator"
	"github.com/janhq/health-agent/internal/domain/profile"
	"github.com/janhq/health-agent/internal/domain/router"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/requests"
	"github.com/janhq/health-agent/internal/interfaces/httpserver/responses"
)

// Dispatcher routes a message to its handler.
type Dispatcher interface {
	Route(ctx context.Context, req router.Request) (*router.Result, error)
}

// DomainKind is one of the dedicated men's health endpoints.
type DomainKind struct {
	Name        string
	Label       string
	MessageType string
}

// Dedicated endpoint kinds.
var (
	KindHealthAssessment = DomainKind{Name: router.HandlerHealthAssessment, Label: "Health Assessment", MessageType: chat.MessageTypeHealthAssessment}
	KindFitnessPlan      = DomainKind{Name: router.HandlerFitnessPlan, Label: "Fitness Plan", MessageType: chat.MessageTypeFitnessPlan}
	KindNutritionAdvice  = DomainKind{Name: router.HandlerNutritionAdvice, Label: "Nutrition Advice", MessageType: chat.MessageTypeNutritionAdvice}
)

const agentDomain = "mens_health"

// AgentHandler serves the agent surface: /run, the domain endpoints and metadata.
type AgentHandler struct {
	cfg      *config.Config
	router   Dispatcher
	orch     orchestrator.Service
	profiles profile.Service
	log      zerolog.Logger
	card     responses.AgentCard
}

// NewAgentHandler creates the agent handler.
func NewAgentHandler(cfg *config.Config, dispatcher Dispatcher, orch orchestrator.Service, profiles profile.Service, log zerolog.Logger) *AgentHandler {
	return &AgentHandler{
		cfg:      cfg,
		router:   dispatcher,
		orch:     orch,
		profiles: profiles,
		log:      log.With().Str("component", "agent-handler").Logger(),
		card:     buildAgentCard(cfg),
	}
}

// Run classifies and processes a free-form message.
func (h *AgentHandler) Run(ctx context.Context, userID string, req requests.RunRequest) (*responses.RunResponse, error) {
	res, err := h.router.Route(ctx, router.Request{
		Message:   req.Message,
		UserID:    userID,
		SessionID: req.SessionID,
		Context:   req.Context,
	})
	if err != nil {
		return nil, err
	}
	return &responses.RunResponse{
		Message:   res.Message,
		Status:    string(res.Status),
		Data:      res.Data,
		SessionID: res.SessionID,
	}, nil
}

// RunDomain enriches the turn with the caller's profile and sends it straight
// to the orchestrator tagged with the endpoint's message type.
func (h *AgentHandler) RunDomain(ctx context.Context, userID string, kind DomainKind, req requests.RunRequest) (*responses.RunResponse, error) {
	p, err := h.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	turnCtx := make(map[string]any, len(req.Context)+4)
	for k, v := range req.Context {
		turnCtx[k] = v
	}
	turnCtx["request_type"] = kind.Name
	turnCtx["domain"] = agentDomain
	turnCtx[orchestrator.ContextUserID] = userID
	turnCtx[orchestrator.ContextUserProfile] = p.Snapshot()

	message := fmt.Sprintf("%s Request for %s: %s", kind.Label, p.DisplayName(), strings.TrimSpace(req.Message))

	res, err := h.orch.Process(ctx, orchestrator.Turn{
		Message:     message,
		Context:     turnCtx,
		SessionID:   req.SessionID,
		UserID:      userID,
		MessageType: kind.MessageType,
	})
	if err != nil {
		return nil, err
	}
	return &responses.RunResponse{
		Message:   res.Message,
		Status:    string(res.Status),
		Data:      res.Data,
		SessionID: res.SessionID,
	}, nil
}

// Health reports liveness with the agent identity.
func (h *AgentHandler) Health() responses.HealthResponse {
	return responses.HealthResponse{Status: "healthy", Agent: h.cfg.AgentName, Version: h.cfg.AgentVersion}
}

// Card returns the agent metadata document.
func (h *AgentHandler) Card() responses.AgentCard {
	return h.card
}

func buildAgentCard(cfg *config.Config) responses.AgentCard {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	return responses.AgentCard{
		Name:         cfg.AgentName,
		Description:  "Men's health assistant for health assessments, fitness plans, nutrition advice and supplement orders",
		Endpoints:    []string{"run", KindHealthAssessment.Name, KindFitnessPlan.Name, KindNutritionAdvice.Name},
		Version:      cfg.AgentVersion,
		InputSchema:  reflector.Reflect(&requests.RunRequest{}),
		OutputSchema: reflector.Reflect(&responses.RunResponse{}),
	}
}
