package transaction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/health-agent/internal/domain/catalog"
	"github.com/janhq/health-agent/internal/domain/transaction"
	"github.com/janhq/health-agent/internal/infrastructure/txstore"
	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

func setup(ttl time.Duration) (transaction.Service, *catalog.Catalog) {
	cat := catalog.New(catalog.DefaultItems())
	return transaction.NewService(txstore.NewMemoryStore(), cat, ttl, zerolog.Nop()), cat
}

func TestQuote_PricesItems(t *testing.T) {
	svc, _ := setup(time.Minute)
	ctx := context.Background()

	tx, err := svc.Quote(ctx, transaction.QuoteRequest{UserID: "u1", Message: "buy 2 protein powder and 1 creatine"})
	require.NoError(t, err)

	assert.Equal(t, transaction.StatePending, tx.State)
	assert.Len(t, tx.Items, 2)
	assert.Equal(t, "104.48", tx.Total.StringFixed(2))
	assert.Contains(t, transaction.Receipt(tx), "Total: 104.48 USD")

	latest, err := svc.LatestPending(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, tx.ID, latest.ID)
}

func TestQuote_NoItems(t *testing.T) {
	svc, _ := setup(time.Minute)

	_, err := svc.Quote(context.Background(), transaction.QuoteRequest{UserID: "u1", Message: "buy something nice"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestConfirm_DecrementsStock(t *testing.T) {
	svc, cat := setup(time.Minute)
	ctx := context.Background()

	before, err := cat.Get("EQ-DUMB")
	require.NoError(t, err)

	tx, err := svc.Quote(ctx, transaction.QuoteRequest{UserID: "u1", Message: "purchase 2 dumbbells"})
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, tx.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, transaction.StateConfirmed, confirmed.State)

	after, err := cat.Get("EQ-DUMB")
	require.NoError(t, err)
	assert.Equal(t, before.Stock-2, after.Stock)

	_, err = svc.LatestPending(ctx, "u1")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestTransitions_Conflicts(t *testing.T) {
	svc, _ := setup(time.Minute)
	ctx := context.Background()

	tx, err := svc.Quote(ctx, transaction.QuoteRequest{UserID: "u1", Message: "order a yoga mat"})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, tx.ID, "u1")
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, tx.ID, "u1")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))

	_, err = svc.Cancel(ctx, tx.ID, "u1")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))
}

func TestConfirm_InsufficientStock(t *testing.T) {
	svc, _ := setup(time.Minute)
	ctx := context.Background()

	tx, err := svc.Quote(ctx, transaction.QuoteRequest{UserID: "u1", Message: "buy 500 dumbbells"})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, tx.ID, "u1")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))

	still, err := svc.Get(ctx, tx.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, transaction.StatePending, still.State)
}

func TestGet_OwnershipAndExpiry(t *testing.T) {
	svc, _ := setup(time.Millisecond)
	ctx := context.Background()

	tx, err := svc.Quote(ctx, transaction.QuoteRequest{UserID: "u1", Message: "buy creatine"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, tx.ID, "u2")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	time.Sleep(5 * time.Millisecond)
	_, err = svc.Get(ctx, tx.ID, "u1")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

// flakyStore fails to save anything that is no longer pending.
type flakyStore struct {
	*txstore.MemoryStore
}

func (s *flakyStore) Save(ctx context.Context, tx *transaction.Transaction) error {
	if tx.State != transaction.StatePending {
		return errors.New("write conflict")
	}
	return s.MemoryStore.Save(ctx, tx)
}

func TestConfirm_SaveFailureReleasesStock(t *testing.T) {
	cat := catalog.New(catalog.DefaultItems())
	svc := transaction.NewService(&flakyStore{MemoryStore: txstore.NewMemoryStore()}, cat, time.Minute, zerolog.Nop())
	ctx := context.Background()

	before, err := cat.Get("EQ-DUMB")
	require.NoError(t, err)

	tx, err := svc.Quote(ctx, transaction.QuoteRequest{UserID: "u1", Message: "purchase 2 dumbbells"})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, tx.ID, "u1")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeDatabaseError))

	after, err := cat.Get("EQ-DUMB")
	require.NoError(t, err)
	assert.Equal(t, before.Stock, after.Stock)

	stored, err := svc.Get(ctx, tx.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, transaction.StatePending, stored.State)
}
