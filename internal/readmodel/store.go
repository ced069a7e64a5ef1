// Package readmodel caches the authoritative Transaction records the backend
// returns. A snapshot is replaced wholesale on every fetch and never patched
// in place, so screens render only what the backend last said.
package readmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ticket-engine/models"
)

const (
	snapshotKeyFmt = "txn:snapshot:%s"
	pendingSetKey  = "txn:pending"
)

// ErrNotFound means no snapshot is cached for the transaction id.
var ErrNotFound = errors.New("readmodel: snapshot not found")

// Snapshot is a timestamped copy of one Transaction.
type Snapshot struct {
	Transaction models.Transaction `json:"transaction"`
	FetchedAt   time.Time          `json:"fetched_at"`
}

type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Store{redis: redisClient, ttl: ttl}
}

// Put replaces the cached snapshot for the transaction. Non-terminal
// transactions are tracked in a pending set so the watcher can re-arm their
// deadlines after a restart.
func (s *Store) Put(ctx context.Context, tx *models.Transaction, fetchedAt time.Time) error {
	snap := Snapshot{Transaction: *tx, FetchedAt: fetchedAt}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := fmt.Sprintf(snapshotKeyFmt, tx.ID)
	if err := s.redis.Set(ctx, key, string(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	if tx.PaymentStatus.IsTerminal() {
		return s.redis.SRem(ctx, pendingSetKey, tx.ID).Err()
	}
	return s.redis.SAdd(ctx, pendingSetKey, tx.ID).Err()
}

func (s *Store) Get(ctx context.Context, id string) (*Snapshot, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf(snapshotKeyFmt, id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// PendingIDs lists transactions last seen in a non-terminal state.
func (s *Store) PendingIDs(ctx context.Context) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, pendingSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load pending set: %w", err)
	}
	return ids, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, fmt.Sprintf(snapshotKeyFmt, id)).Err(); err != nil {
		return err
	}
	return s.redis.SRem(ctx, pendingSetKey, id).Err()
}
