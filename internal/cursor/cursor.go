package cursor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hakanakfirat27/zeugma-realtime/internal/utils"
)

// Snapshot is the last-seen position persisted per room so a restarted agent
// resumes with sane unread counts before the first authoritative fetch.
type Snapshot struct {
	LastSeenMessageID string    `json:"last_seen_message_id"`
	UnreadCount       int       `json:"unread_count"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Store persists read cursors. Purely an implementation choice, not part of
// the backend contract; the in-memory variant is always a valid stand-in.
type Store interface {
	Get(ctx context.Context, userID, roomID string) (*Snapshot, error)
	Set(ctx context.Context, userID, roomID string, snap Snapshot) error
	Delete(ctx context.Context, userID, roomID string) error
}

// MemoryStore keeps cursors for the process lifetime only.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

func (m *MemoryStore) Get(_ context.Context, userID, roomID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if snap, ok := m.snaps[cursorKey(userID, roomID)]; ok {
		out := snap
		return &out, nil
	}
	return nil, nil
}

func (m *MemoryStore) Set(_ context.Context, userID, roomID string, snap Snapshot) error {
	m.mu.Lock()
	m.snaps[cursorKey(userID, roomID)] = snap
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID, roomID string) error {
	m.mu.Lock()
	delete(m.snaps, cursorKey(userID, roomID))
	m.mu.Unlock()
	return nil
}

// RedisStore persists cursors across agent restarts.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: 30 * 24 * time.Hour}
}

func (r *RedisStore) Get(ctx context.Context, userID, roomID string) (*Snapshot, error) {
	snap, err := utils.GetCacheData[Snapshot](ctx, r.rdb, cursorKey(userID, roomID))
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *RedisStore) Set(ctx context.Context, userID, roomID string, snap Snapshot) error {
	return utils.SetCacheData(ctx, r.rdb, cursorKey(userID, roomID), &snap, r.ttl)
}

func (r *RedisStore) Delete(ctx context.Context, userID, roomID string) error {
	return utils.DeleteCacheData(ctx, r.rdb, cursorKey(userID, roomID))
}

func cursorKey(userID, roomID string) string {
	return fmt.Sprintf("cursor:%s:%s", userID, roomID)
}
