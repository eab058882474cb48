package txstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/janhq/health-agent/internal/domain/transaction"
)

const (
	keyPrefix = "health-agent:tx:"
	lockTTL   = 10 * time.Second
	// terminal transactions stay readable for a day after their last change
	terminalTTL = 24 * time.Hour
)

// RedisStore keeps transactions in Redis with the pending TTL applied to the key.
type RedisStore struct {
	client *redis.Client
	rs     *redsync.Redsync
	log    zerolog.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, log zerolog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return newRedisStore(client, log), nil
}

func newRedisStore(client *redis.Client, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		log:    log.With().Str("component", "tx-store").Str("backend", "redis").Logger(),
	}
}

// Save writes the transaction as JSON. Pending records expire with their TTL.
func (s *RedisStore) Save(ctx context.Context, tx *transaction.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	ttl := terminalTTL
	if tx.State == transaction.StatePending {
		ttl = time.Until(tx.ExpiresAt)
		if ttl <= 0 {
			return fmt.Errorf("transaction %s already expired", tx.ID)
		}
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKey(tx.ID), data, ttl)
	if tx.State == transaction.StatePending {
		pipe.Set(ctx, pendingKey(tx.UserID), tx.ID, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}

	if tx.State != transaction.StatePending {
		// only clear the index when it still points at this transaction
		current, err := s.client.Get(ctx, pendingKey(tx.UserID)).Result()
		if err == nil && current == tx.ID {
			s.client.Del(ctx, pendingKey(tx.UserID))
		}
	}
	return nil
}

// Get loads a transaction. Expired keys surface as not found.
func (s *RedisStore) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	data, err := s.client.Get(ctx, recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, transaction.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}

	var tx transaction.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if tx.Expired(time.Now().UTC()) {
		return nil, transaction.ErrTransactionNotFound
	}
	return &tx, nil
}

// LatestPending follows the per-user pending index.
func (s *RedisStore) LatestPending(ctx context.Context, userID string) (*transaction.Transaction, error) {
	id, err := s.client.Get(ctx, pendingKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, transaction.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pending index: %w", err)
	}
	return s.Get(ctx, id)
}

// WithLock holds a redsync mutex for the transaction while fn runs.
func (s *RedisStore) WithLock(ctx context.Context, id string, fn func() error) error {
	mutex := s.rs.NewMutex(keyPrefix+"lock:"+id, redsync.WithExpiry(lockTTL))

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("lock transaction %s: %w", id, err)
	}

	defer func() {
		if _, err := mutex.UnlockContext(context.Background()); err != nil {
			s.log.Error().Err(err).Str("transaction_id", id).Msg("failed to unlock transaction")
		}
	}()

	return fn()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func recordKey(id string) string {
	return keyPrefix + id
}

func pendingKey(userID string) string {
	return keyPrefix + "user:" + userID + ":pending"
}

var _ transaction.Store = (*RedisStore)(nil)
