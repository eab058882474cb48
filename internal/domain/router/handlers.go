package router

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/janhq/health-agent/internal/domain/catalog"
	"github.com/janhq/health-agent/internal/domain/chat"
	"github.com/janhq/health-agent/internal/domain/orchestrator"
	"github.com/janhq/health-agent/internal/domain/transaction"
	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

// AgentHandler delegates to the orchestrator, optionally tagging the message
// type and prefixing the request kind.
type AgentHandler struct {
	name        string
	messageType string
	prefix      string
	orch        orchestrator.Service
}

// NewAgentHandler creates an orchestrator-backed handler.
func NewAgentHandler(name, messageType, prefix string, orch orchestrator.Service) *AgentHandler {
	return &AgentHandler{name: name, messageType: messageType, prefix: prefix, orch: orch}
}

// NewSpecialistHandlers returns the health, fitness and nutrition handlers.
func NewSpecialistHandlers(orch orchestrator.Service) (health, fitness, nutrition *AgentHandler) {
	return NewAgentHandler(HandlerHealthAssessment, chat.MessageTypeHealthAssessment, "Health Assessment Request: ", orch),
		NewAgentHandler(HandlerFitnessPlan, chat.MessageTypeFitnessPlan, "Fitness Plan Request: ", orch),
		NewAgentHandler(HandlerNutritionAdvice, chat.MessageTypeNutritionAdvice, "Nutrition Advice Request: ", orch)
}

func (h *AgentHandler) Name() string { return h.name }

func (h *AgentHandler) Handle(ctx context.Context, req Request) (*Result, error) {
	message := strings.TrimSpace(req.Message)
	if h.prefix != "" {
		message = h.prefix + message
	}

	res, err := h.orch.Process(ctx, orchestrator.Turn{
		Message:     message,
		Context:     req.Context,
		SessionID:   req.SessionID,
		UserID:      req.UserID,
		MessageType: h.messageType,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Message:   res.Message,
		Handler:   h.name,
		Status:    res.Status,
		Data:      res.Data,
		SessionID: res.SessionID,
	}, nil
}

// ReportHandler answers activity report requests from the session store.
type ReportHandler struct {
	sessions chat.Service
	limit    int
}

// NewReportHandler creates the reporting handler.
func NewReportHandler(sessions chat.Service) *ReportHandler {
	return &ReportHandler{sessions: sessions, limit: 100}
}

func (h *ReportHandler) Name() string { return HandlerReport }

// ActivityReport summarizes a user's conversations.
type ActivityReport struct {
	Sessions          int            `json:"sessions"`
	Messages          int            `json:"messages"`
	ByType            map[string]int `json:"by_type"`
	AvgResponseTimeMS int64          `json:"avg_response_time_ms"`
	LastActivity      *time.Time     `json:"last_activity,omitempty"`
}

func (h *ReportHandler) Handle(ctx context.Context, req Request) (*Result, error) {
	sessions, err := h.sessions.ListSessions(ctx, req.UserID, h.limit)
	if err != nil {
		return nil, err
	}

	report := ActivityReport{Sessions: len(sessions), ByType: map[string]int{}}
	var totalLatency int64
	for _, sess := range sessions {
		full, err := h.sessions.GetSessionWithMessages(ctx, sess.SessionID, req.UserID)
		if err != nil {
			return nil, err
		}
		for _, msg := range full.Messages {
			report.Messages++
			report.ByType[msg.MessageType]++
			totalLatency += msg.ResponseTimeMS
		}
		if report.LastActivity == nil || sess.UpdatedAt.After(*report.LastActivity) {
			updated := sess.UpdatedAt
			report.LastActivity = &updated
		}
	}
	if report.Messages > 0 {
		report.AvgResponseTimeMS = totalLatency / int64(report.Messages)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Activity report: %d conversations, %d messages.", report.Sessions, report.Messages)
	types := lo.Keys(report.ByType)
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(&b, "\n- %s: %d", t, report.ByType[t])
	}
	if report.LastActivity != nil {
		fmt.Fprintf(&b, "\nLast activity: %s", report.LastActivity.Format(time.RFC3339))
	}

	return &Result{
		Message: b.String(),
		Handler: HandlerReport,
		Status:  orchestrator.StatusInfo,
		Data:    map[string]any{"report": report},
	}, nil
}

// InventoryHandler answers stock questions from the catalog.
type InventoryHandler struct {
	catalog *catalog.Catalog
}

// NewInventoryHandler creates the inventory handler.
func NewInventoryHandler(cat *catalog.Catalog) *InventoryHandler {
	return &InventoryHandler{catalog: cat}
}

func (h *InventoryHandler) Name() string { return HandlerInventory }

func (h *InventoryHandler) Handle(ctx context.Context, req Request) (*Result, error) {
	items := lo.Map(h.catalog.Find(req.Message), func(m catalog.Match, _ int) catalog.Item { return m.Item })
	if len(items) == 0 {
		items = h.catalog.List()
	}

	lines := lo.Map(items, func(item catalog.Item, _ int) string {
		stock := fmt.Sprintf("%d in stock", item.Stock)
		if item.Stock == 0 {
			stock = "out of stock"
		}
		return fmt.Sprintf("- %s (%s): %s at $%s", item.Name, item.SKU, stock, item.Price.StringFixed(2))
	})

	return &Result{
		Message: "Current inventory:\n" + strings.Join(lines, "\n"),
		Handler: HandlerInventory,
		Status:  orchestrator.StatusInfo,
		Data:    map[string]any{"items": items},
	}, nil
}

// TransactionHandler quotes, confirms and cancels pending receipts.
type TransactionHandler struct {
	transactions transaction.Service
}

// NewTransactionHandler creates the financial transaction handler.
func NewTransactionHandler(transactions transaction.Service) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

func (h *TransactionHandler) Name() string { return HandlerTransaction }

func (h *TransactionHandler) Handle(ctx context.Context, req Request) (*Result, error) {
	m := NewMatcher(req.Message)
	switch {
	case m.Any([]string{"confirm"}):
		return h.transition(ctx, req, "confirm")
	case m.Any([]string{"cancel"}):
		return h.transition(ctx, req, "cancel")
	}

	tx, err := h.transactions.Quote(ctx, transaction.QuoteRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	if platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		return &Result{
			Message: "I couldn't find any products from our catalog in your request. Ask about our inventory to see what's available.",
			Handler: HandlerTransaction,
			Status:  orchestrator.StatusInfo,
			Data:    map[string]any{},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Message: transaction.Receipt(tx) + fmt.Sprintf("\nReply \"confirm %s\" to place the order or \"cancel\" to discard it.", tx.ID),
		Handler: HandlerTransaction,
		Status:  orchestrator.StatusInfo,
		Data:    map[string]any{"transaction": tx},
	}, nil
}

func (h *TransactionHandler) transition(ctx context.Context, req Request, action string) (*Result, error) {
	id := transactionID(req.Message)
	if id == "" {
		pending, err := h.transactions.LatestPending(ctx, req.UserID)
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return &Result{
				Message: fmt.Sprintf("You have no pending order to %s.", action),
				Handler: HandlerTransaction,
				Status:  orchestrator.StatusInfo,
				Data:    map[string]any{},
			}, nil
		}
		if err != nil {
			return nil, err
		}
		id = pending.ID
	}

	var (
		tx  *transaction.Transaction
		err error
	)
	if action == "confirm" {
		tx, err = h.transactions.Confirm(ctx, id, req.UserID)
	} else {
		tx, err = h.transactions.Cancel(ctx, id, req.UserID)
	}
	if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		return &Result{
			Message: fmt.Sprintf("I couldn't find order %s. It may have expired.", id),
			Handler: HandlerTransaction,
			Status:  orchestrator.StatusInfo,
			Data:    map[string]any{},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Message: transaction.Receipt(tx),
		Handler: HandlerTransaction,
		Status:  orchestrator.StatusSuccess,
		Data:    map[string]any{"transaction": tx},
	}, nil
}

// transactionID extracts an explicit tx_ identifier from the message.
func transactionID(message string) string {
	for _, field := range strings.Fields(message) {
		field = strings.Trim(field, ".,!?\"'()")
		if strings.HasPrefix(strings.ToLower(field), "tx_") {
			return strings.ToLower(field)
		}
	}
	return ""
}

var (
	_ Handler = (*AgentHandler)(nil)
	_ Handler = (*ReportHandler)(nil)
	_ Handler = (*InventoryHandler)(nil)
	_ Handler = (*TransactionHandler)(nil)
)
