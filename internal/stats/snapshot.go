package stats

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Snapshot is a computed set of trip statistics. Completed trips keep a
// stored snapshot that is only replaced by an explicit recompute.
type Snapshot struct {
	DistanceKm      float64 `json:"distance_km"`
	Distance        string  `json:"distance"`
	DurationSeconds int64   `json:"duration_seconds"`
	Duration        string  `json:"duration"`
	Points          int     `json:"points"`
	MaxSpeed        float64 `json:"max_speed"`
	AvgSpeed        float64 `json:"avg_speed"`
	Places          int     `json:"places"`
}

// SnapshotStore is the per-trip record store for cached statistics. Get
// returns (nil, nil) when no snapshot exists.
type SnapshotStore interface {
	Get(ctx context.Context, tripID string) (*Snapshot, error)
	Put(ctx context.Context, tripID string, snap Snapshot) error
	Delete(ctx context.Context, tripID string) error
}

// RedisStore keeps statistics snapshots in Redis keyed by trip identifier.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func statsKey(tripID string) string {
	return "stats:" + tripID
}

func (s *RedisStore) Get(ctx context.Context, tripID string) (*Snapshot, error) {
	raw, err := s.rdb.Get(ctx, statsKey(tripID)).Bytes()
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
	return s.rdb.Set(ctx, statsKey(tripID), raw, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, tripID string) error {
	return s.rdb.Del(ctx, statsKey(tripID)).Err()
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
