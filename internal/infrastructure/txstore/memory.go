// Package txstore persists pending transactions.
package txstore

import (
	"context"
	"sync"
	"time"

	"github.com/janhq/health-agent/internal/domain/transaction"
)

// MemoryStore keeps transactions in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]transaction.Transaction
	pending map[string]string // user ID -> latest pending transaction ID
	now     func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewMemoryStore creates an empty in-memory transaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]transaction.Transaction),
		pending: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
		locks:   make(map[string]*sync.Mutex),
	}
}

// Save stores a copy of the transaction.
func (s *MemoryStore) Save(ctx context.Context, tx *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[tx.ID] = clone(tx)
	if tx.State == transaction.StatePending {
		s.pending[tx.UserID] = tx.ID
	} else if s.pending[tx.UserID] == tx.ID {
		delete(s.pending, tx.UserID)
	}
	return nil
}

// Get returns a copy of a live transaction.
func (s *MemoryStore) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.records[id]
	if !ok || tx.Expired(s.now()) {
		return nil, transaction.ErrTransactionNotFound
	}
	out := clone(&tx)
	return &out, nil
}

// LatestPending returns the user's newest pending transaction.
func (s *MemoryStore) LatestPending(ctx context.Context, userID string) (*transaction.Transaction, error) {
	s.mu.RLock()
	id, ok := s.pending[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, transaction.ErrTransactionNotFound
	}
	return s.Get(ctx, id)
}

// WithLock serialises work on one transaction ID.
func (s *MemoryStore) WithLock(ctx context.Context, id string, fn func() error) error {
	s.locksMu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.locksMu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn()
}

func clone(tx *transaction.Transaction) transaction.Transaction {
	out := *tx
	out.Items = append([]transaction.LineItem(nil), tx.Items...)
	return out
}

var _ transaction.Store = (*MemoryStore)(nil)
