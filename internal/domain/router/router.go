// Package router classifies inbound messages with ordered keyword rules and
// dispatches them to the matching handler.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/domain/orchestrator"
	"github.com/janhq/health-agent/internal/infrastructure/metrics"
	"github.com/janhq/health-agent/internal/infrastructure/observability"
	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

// Handler names.
const (
	HandlerGeneral          = "general_help"
	HandlerReport           = "reporting"
	HandlerInventory        = "inventory"
	HandlerTransaction      = "transaction"
	HandlerHealthAssessment = "health_assessment"
	HandlerFitnessPlan      = "fitness_plan"
	HandlerNutritionAdvice  = "nutrition_advice"
	HandlerImage            = "image_identification"
)

// Request is an inbound message to classify.
type Request struct {
	Message   string
	UserID    string
	SessionID string
	Context   map[string]any
}

// HasImage reports whether the request carries an image payload.
func (r Request) HasImage() bool {
	image, _ := r.Context[orchestrator.ContextImageData].(string)
	return strings.TrimSpace(image) != ""
}

// Result is the normalized envelope every handler returns.
type Result struct {
	Message   string              `json:"message"`
	Handler   string              `json:"handler"`
	Status    orchestrator.Status `json:"status"`
	Data      map[string]any      `json:"data"`
	SessionID string              `json:"session_id,omitempty"`
}

// Handler processes one routed request.
type Handler interface {
	Name() string
	Handle(ctx context.Context, req Request) (*Result, error)
}

// Route pairs a predicate with the handler it selects.
type Route struct {
	Name    string
	Match   func(req Request, m Matcher) bool
	Handler Handler
}

// Router evaluates routes top to bottom; the first match wins.
type Router struct {
	routes   []Route
	fallback Handler
	log      zerolog.Logger
}

// New creates a router with explicit routes and a fallback handler.
func New(routes []Route, fallback Handler, log zerolog.Logger) *Router {
	return &Router{
		routes:   routes,
		fallback: fallback,
		log:      log.With().Str("component", "router").Logger(),
	}
}

// Handlers are the handlers wired into the default route table.
type Handlers struct {
	General          Handler
	Report           Handler
	Inventory        Handler
	Transaction      Handler
	HealthAssessment Handler
	FitnessPlan      Handler
	NutritionAdvice  Handler
	Image            Handler
}

// DefaultRoutes builds the priority-ordered route table.
func DefaultRoutes(kw Keywords, h Handlers) []Route {
	keywordRoute := func(name string, words []string, handler Handler) Route {
		return Route{
			Name:    name,
			Match:   func(_ Request, m Matcher) bool { return m.Any(words) },
			Handler: handler,
		}
	}

	return []Route{
		keywordRoute("greeting", kw.Greetings, h.General),
		keywordRoute("report", kw.Report, h.Report),
		keywordRoute("inventory", kw.Inventory, h.Inventory),
		keywordRoute("financial", kw.Financial, h.Transaction),
		keywordRoute("health_assessment", kw.HealthAssessment, h.HealthAssessment),
		keywordRoute("fitness_plan", kw.FitnessPlan, h.FitnessPlan),
		keywordRoute("nutrition_advice", kw.NutritionAdvice, h.NutritionAdvice),
		{
			Name:    "image",
			Match:   func(req Request, _ Matcher) bool { return req.HasImage() },
			Handler: h.Image,
		},
	}
}

// Classify returns the name of the route that would handle req, or "fallback".
func (r *Router) Classify(req Request) string {
	route, ok := r.match(req)
	if !ok {
		return "fallback"
	}
	return route.Name
}

// Route classifies and dispatches a request. It returns a validation error for
// an empty message and passes through not found errors from handlers; other
// handler failures come back as status error.
func (r *Router) Route(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "message is required", nil)
	}

	handler := r.fallback
	routeName := "fallback"
	if route, ok := r.match(req); ok {
		handler = route.Handler
		routeName = route.Name
	}

	result, err := r.dispatch(ctx, handler, req)
	if err != nil {
		metrics.RecordTurn(handler.Name(), string(orchestrator.StatusError))
		return nil, err
	}
	if result.SessionID == "" {
		result.SessionID = req.SessionID
	}
	metrics.RecordTurn(result.Handler, string(result.Status))
	r.log.Info().
		Str("route", routeName).
		Str("handler", result.Handler).
		Str("status", string(result.Status)).
		Str("user_id", req.UserID).
		Msg("message routed")
	return result, nil
}

func (r *Router) match(req Request) (Route, bool) {
	m := NewMatcher(req.Message)
	for _, route := range r.routes {
		if route.Handler == nil {
			continue
		}
		if route.Match(req, m) {
			return route, true
		}
	}
	return Route{}, false
}

func (r *Router) dispatch(ctx context.Context, handler Handler, req Request) (result *Result, err error) {
	name := handler.Name()

	ctx, span := observability.StartRouteSpan(ctx, name)
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			panicErr := fmt.Errorf("handler panic: %v", rec)
			observability.RecordError(span, panicErr)
			r.log.Error().Str("handler", name).Interface("panic", rec).Msg("handler panicked")
			result, err = errorResult(name, req.SessionID, panicErr), nil
		}
	}()

	res, err := handler.Handle(ctx, req)
	if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		r.log.Warn().Err(err).Str("handler", name).Msg("handler reported not found")
		return nil, err
	}
	if err != nil {
		observability.RecordError(span, err)
		r.log.Error().Err(err).Str("handler", name).Msg("handler failed")
		return errorResult(name, req.SessionID, err), nil
	}
	if res == nil {
		return errorResult(name, req.SessionID, fmt.Errorf("handler %s returned no result", name)), nil
	}
	if res.Handler == "" {
		res.Handler = name
	}
	if res.Data == nil {
		res.Data = map[string]any{}
	}
	return res, nil
}

func errorResult(handler, sessionID string, err error) *Result {
	msg := err.Error()
	if pe := platformerrors.GetPlatformError(err); pe != nil {
		msg = pe.Message
	}
	return &Result{
		Message:   "Error: " + msg,
		Handler:   handler,
		Status:    orchestrator.StatusError,
		Data:      map[string]any{},
		SessionID: sessionID,
	}
}
