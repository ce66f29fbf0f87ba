package route

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"backend-waytrack/internal/traccar"

	"github.com/redis/go-redis/v9"
)

// Snapshot is an immutable captured copy of a trip's route. It is replaced
// wholesale on refresh, never mutated in place.
type Snapshot struct {
	Positions []traccar.Position `json:"positions"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// SnapshotStore is the per-trip record store for cached routes. Get returns
// (nil, nil) when no snapshot exists.
type SnapshotStore interface {
	Get(ctx context.Context, tripID string) (*Snapshot, error)
	Put(ctx context.Context, tripID string, snap Snapshot) error
	Delete(ctx context.Context, tripID string) error
}

// RedisStore keeps route snapshots in Redis keyed by trip identifier.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func routeKey(tripID string) string {
	return "route:" + tripID
}

func (s *RedisStore) Get(ctx context.Context, tripID string) (*Snapshot, error) {
	raw, err := s.rdb.Get(ctx, routeKey(tripID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *RedisStore) Put(ctx context.Context, tripID string, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, routeKey(tripID), raw, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, tripID string) error {
	return s.rdb.Del(ctx, routeKey(tripID)).Err()
}

// MemoryStore is a single-process fallback used when Redis is not configured.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: map[string]Snapshot{}}
}

func (s *MemoryStore) Get(_ context.Context, tripID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[tripID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *MemoryStore) Put(_ context.Context, tripID string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[tripID] = snap
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, tripID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, tripID)
	return nil
}
