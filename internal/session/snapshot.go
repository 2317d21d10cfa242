package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cuistot-app/backend/internal/types"
)

// SnapshotStore is the always-on persistence layer for kitchen snapshots,
// written synchronously on every mutation regardless of authentication.
// The Postgres profile row is the separate, authenticated, best-effort
// remote layer.
type SnapshotStore interface {
	Save(ctx context.Context, key string, snap types.KitchenSnapshot) error
	Load(ctx context.Context, key string) (*types.KitchenSnapshot, error)
}

const snapshotTTL = 30 * 24 * time.Hour

// RedisSnapshotStore keeps one snapshot per session key in Redis.
type RedisSnapshotStore struct {
	redis *redis.Client
}

// NewRedisSnapshotStore creates a new RedisSnapshotStore instance
func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{redis: client}
}

func snapshotKey(key string) string {
	return fmt.Sprintf("kitchen:state:%s", key)
}

// Save overwrites the stored snapshot for the session key.
func (s *RedisSnapshotStore) Save(ctx context.Context, key string, snap types.KitchenSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return s.redis.Set(ctx, snapshotKey(key), data, snapshotTTL).Err()
}

// Load restores the stored snapshot. A missing key or a blob that no longer
// parses yields nil without error; malformed data is discarded silently.
func (s *RedisSnapshotStore) Load(ctx context.Context, key string) (*types.KitchenSnapshot, error) {
	data, err := s.redis.Get(ctx, snapshotKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap types.KitchenSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("[SnapshotStore] discarding unparseable snapshot for %s: %v", key, err)
		return nil, nil
	}
	return &snap, nil
}
