package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/janhq/health-agent/internal/domain/catalog"
	"github.com/janhq/health-agent/internal/infrastructure/metrics"
	"github.com/janhq/health-agent/internal/utils/idgen"
	"github.com/janhq/health-agent/internal/utils/platformerrors"
)

// QuoteRequest asks for a receipt of the catalog items named in a message.
type QuoteRequest struct {
	UserID    string
	SessionID string
	Message   string
}

// Service manages the pending → confirmed | cancelled lifecycle.
type Service interface {
	Quote(ctx context.Context, req QuoteRequest) (*Transaction, error)
	Confirm(ctx context.Context, id, userID string) (*Transaction, error)
	Cancel(ctx context.Context, id, userID string) (*Transaction, error)
	Get(ctx context.Context, id, userID string) (*Transaction, error)
	LatestPending(ctx context.Context, userID string) (*Transaction, error)
}

type service struct {
	store   Store
	catalog *catalog.Catalog
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates the pending transaction service.
func NewService(store Store, cat *catalog.Catalog, ttl time.Duration, log zerolog.Logger) Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &service{
		store:   store,
		catalog: cat,
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
		log:     log.With().Str("component", "transaction-service").Logger(),
	}
}

func (s *service) Quote(ctx context.Context, req QuoteRequest) (*Transaction, error) {
	matches := s.catalog.Find(req.Message)
	if len(matches) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"no catalog items found in the request", nil)
	}

	items := lo.Map(matches, func(m catalog.Match, _ int) LineItem {
		return LineItem{
			SKU:       m.Item.SKU,
			Name:      m.Item.Name,
			Quantity:  m.Quantity,
			UnitPrice: m.Item.Price,
			Total:     m.Item.Price.Mul(decimal.NewFromInt(int64(m.Quantity))),
		}
	})
	total := lo.Reduce(items, func(acc decimal.Decimal, item LineItem, _ int) decimal.Decimal {
		return acc.Add(item.Total)
	}, decimal.Zero)

	id, err := idgen.GenerateSecureID("tx", 16)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "generate transaction id", err)
	}

	now := s.now()
	tx := &Transaction{
		ID:        id,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Items:     items,
		Total:     total,
		Currency:  Currency,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, tx); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabaseError, "save transaction", err)
	}

	metrics.RecordTransition(string(StatePending))
	s.log.Info().Str("transaction_id", id).Str("user_id", req.UserID).Str("total", total.StringFixed(2)).Msg("pending transaction created")
	return tx, nil
}

func (s *service) Confirm(ctx context.Context, id, userID string) (*Transaction, error) {
	return s.transition(ctx, id, userID, StateConfirmed, func(tx *Transaction) (func(), error) {
		wanted := make(map[string]int, len(tx.Items))
		for _, item := range tx.Items {
			wanted[item.SKU] += item.Quantity
		}
		if err := s.catalog.Reserve(wanted); err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, err.Error(), err)
		}
		return func() { s.catalog.Release(wanted) }, nil
	})
}

func (s *service) Cancel(ctx context.Context, id, userID string) (*Transaction, error) {
	return s.transition(ctx, id, userID, StateCancelled, nil)
}

func (s *service) Get(ctx context.Context, id, userID string) (*Transaction, error) {
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.wrap(ctx, err, "get transaction")
	}
	if tx.UserID != userID {
		return nil, s.wrap(ctx, ErrTransactionNotFound, "get transaction")
	}
	return tx, nil
}

func (s *service) LatestPending(ctx context.Context, userID string) (*Transaction, error) {
	tx, err := s.store.LatestPending(ctx, userID)
	if err != nil {
		return nil, s.wrap(ctx, err, "find pending transaction")
	}
	return tx, nil
}

// transition applies a state change under the transaction lock. apply may
// return an undo func, run when the new state cannot be saved.
func (s *service) transition(ctx context.Context, id, userID string, to State, apply func(*Transaction) (func(), error)) (*Transaction, error) {
	var result *Transaction
	err := s.store.WithLock(ctx, id, func() error {
		tx, err := s.Get(ctx, id, userID)
		if err != nil {
			return err
		}
		if tx.State != StatePending {
			return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
				fmt.Sprintf("transaction is already %s", tx.State), nil)
		}
		var undo func()
		if apply != nil {
			if undo, err = apply(tx); err != nil {
				return err
			}
		}

		tx.State = to
		tx.UpdatedAt = s.now()
		if err := s.store.Save(ctx, tx); err != nil {
			if undo != nil {
				undo()
			}
			return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabaseError, "save transaction", err)
		}
		result = tx
		return nil
	})
	if err != nil {
		if platformerrors.GetPlatformError(err) != nil {
			return nil, err
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "lock transaction", err)
	}

	metrics.RecordTransition(string(to))
	s.log.Info().Str("transaction_id", id).Str("state", string(to)).Msg("transaction transitioned")
	return result, nil
}

func (s *service) wrap(ctx context.Context, err error, message string) error {
	if errors.Is(err, ErrTransactionNotFound) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "transaction not found", err)
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabaseError, message, err)
}

// Receipt renders a transaction as a plain-text receipt.
func Receipt(tx *Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Receipt %s (%s)\n", tx.ID, tx.State)
	for _, item := range tx.Items {
		fmt.Fprintf(&b, "- %d x %s @ %s = %s\n", item.Quantity, item.Name, item.UnitPrice.StringFixed(2), item.Total.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s %s", tx.Total.StringFixed(2), tx.Currency)
	return b.String()
}
