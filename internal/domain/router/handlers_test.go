package router

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/health-agent/internal/domain/catalog"
	"github.com/janhq/health-agent/internal/domain/chat"
	"github.com/janhq/health-agent/internal/domain/orchestrator"
	"github.com/janhq/health-agent/internal/domain/transaction"
	"github.com/janhq/health-agent/internal/infrastructure/store"
	"github.com/janhq/health-agent/internal/infrastructure/txstore"
)

type mockOrchestrator struct {
	processFn func(ctx context.Context, turn orchestrator.Turn) (*orchestrator.Result, error)
}

func (m *mockOrchestrator) Process(ctx context.Context, turn orchestrator.Turn) (*orchestrator.Result, error) {
	return m.processFn(ctx, turn)
}

func TestAgentHandler_PrefixesAndTags(t *testing.T) {
	var got orchestrator.Turn
	orch := &mockOrchestrator{processFn: func(ctx context.Context, turn orchestrator.Turn) (*orchestrator.Result, error) {
		got = turn
		return &orchestrator.Result{Message: "ok", Status: orchestrator.StatusSuccess, SessionID: "s9", Data: map[string]any{}}, nil
	}}

	_, fitness, _ := NewSpecialistHandlers(orch)
	res, err := fitness.Handle(context.Background(), Request{Message: " 3 day split ", UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, "Fitness Plan Request: 3 day split", got.Message)
	assert.Equal(t, chat.MessageTypeFitnessPlan, got.MessageType)
	assert.Equal(t, HandlerFitnessPlan, res.Handler)
	assert.Equal(t, "s9", res.SessionID)
}

func TestInventoryHandler(t *testing.T) {
	h := NewInventoryHandler(catalog.New(catalog.DefaultItems()))

	res, err := h.Handle(context.Background(), Request{Message: "do you have dumbbells in stock"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusInfo, res.Status)
	assert.Contains(t, res.Message, "Adjustable Dumbbells (EQ-DUMB): 8 in stock at $199.00")
	assert.Len(t, res.Data["items"], 1)

	res, err = h.Handle(context.Background(), Request{Message: "show inventory"})
	require.NoError(t, err)
	assert.Len(t, res.Data["items"], len(catalog.DefaultItems()))
}

func TestTransactionHandler_QuoteConfirmCancel(t *testing.T) {
	cat := catalog.New(catalog.DefaultItems())
	svc := transaction.NewService(txstore.NewMemoryStore(), cat, time.Minute, zerolog.Nop())
	h := NewTransactionHandler(svc)
	ctx := context.Background()

	res, err := h.Handle(ctx, Request{Message: "confirm", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "You have no pending order to confirm.", res.Message)

	res, err = h.Handle(ctx, Request{Message: "buy 2 creatine", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusInfo, res.Status)
	tx := res.Data["transaction"].(*transaction.Transaction)
	assert.Equal(t, transaction.StatePending, tx.State)
	assert.Contains(t, res.Message, "Total: 49.00 USD")

	res, err = h.Handle(ctx, Request{Message: "yes, confirm " + tx.ID + ".", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusSuccess, res.Status)
	assert.Equal(t, transaction.StateConfirmed, res.Data["transaction"].(*transaction.Transaction).State)

	item, err := cat.Get("SUP-CREA")
	require.NoError(t, err)
	assert.Equal(t, 58, item.Stock)

	_, err = h.Handle(ctx, Request{Message: "buy a yoga mat", UserID: "u1"})
	require.NoError(t, err)
	res, err = h.Handle(ctx, Request{Message: "cancel that", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, transaction.StateCancelled, res.Data["transaction"].(*transaction.Transaction).State)
}

func TestTransactionHandler_UnknownProduct(t *testing.T) {
	svc := transaction.NewService(txstore.NewMemoryStore(), catalog.New(catalog.DefaultItems()), time.Minute, zerolog.Nop())
	h := NewTransactionHandler(svc)

	res, err := h.Handle(context.Background(), Request{Message: "buy a boat", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusInfo, res.Status)
	assert.Contains(t, res.Message, "couldn't find any products")
}

func TestReportHandler(t *testing.T) {
	sessions := chat.NewService(store.NewMemoryStore(zerolog.Nop()), chat.Options{}, zerolog.Nop())
	ctx := context.Background()

	for _, sid := range []string{"s1", "s2"} {
		_, err := sessions.GetOrCreate(ctx, "u1", sid)
		require.NoError(t, err)
	}
	_, err := sessions.AppendMessage(ctx, chat.NewMessage{SessionID: "s1", UserID: "u1", Message: "a", Response: "b", ResponseTimeMS: 100})
	require.NoError(t, err)
	_, err = sessions.AppendMessage(ctx, chat.NewMessage{SessionID: "s2", UserID: "u1", Message: "c", Response: "d", MessageType: chat.MessageTypeFitnessPlan, ResponseTimeMS: 300})
	require.NoError(t, err)

	res, err := NewReportHandler(sessions).Handle(ctx, Request{Message: "report", UserID: "u1"})
	require.NoError(t, err)

	report := res.Data["report"].(ActivityReport)
	assert.Equal(t, 2, report.Sessions)
	assert.Equal(t, 2, report.Messages)
	assert.Equal(t, 1, report.ByType[chat.MessageTypeFitnessPlan])
	assert.Equal(t, int64(200), report.AvgResponseTimeMS)
	assert.Contains(t, res.Message, "2 conversations, 2 messages")
}
