// Package transaction implements pending receipts that wait for explicit
// confirmation before stock is committed.
package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// State is the lifecycle state of a pending transaction.
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateCancelled State = "cancelled"
)

// Currency used for all receipts.
const Currency = "USD"

// ErrTransactionNotFound is returned for unknown or expired transactions.
var ErrTransactionNotFound = errors.New("transaction not found")

// LineItem is one priced catalog item on a receipt.
type LineItem struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// Transaction is a receipt awaiting confirmation.
type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id,omitempty"`
	Items     []LineItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	State     State           `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether a pending transaction outlived its TTL.
func (t *Transaction) Expired(now time.Time) bool {
	return t.State == StatePending && !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Store persists transactions.
type Store interface {
	Save(ctx context.Context, tx *Transaction) error
	// Get returns ErrTransactionNotFound for unknown or expired records.
	Get(ctx context.Context, id string) (*Transaction, error)
	// LatestPending returns the newest pending transaction of a user.
	LatestPending(ctx context.Context, userID string) (*Transaction, error)
	// WithLock runs fn while holding the lock for one transaction ID.
	WithLock(ctx context.Context, id string, fn func() error) error
}
