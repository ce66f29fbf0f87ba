package route

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-waytrack/internal/traccar"
	"backend-waytrack/internal/trip"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type memStore struct {
	snaps map[string]*Snapshot
}

func newMemStore() *memStore {
	return &memStore{snaps: map[string]*Snapshot{}}
}

func (m *memStore) Get(_ context.Context, tripID string) (*Snapshot, error) {
	return m.snaps[tripID], nil
}

func (m *memStore) Put(_ context.Context, tripID string, snap Snapshot) error {
	m.snaps[tripID] = &snap
	return nil
}

func (m *memStore) Delete(_ context.Context, tripID string) error {
	delete(m.snaps, tripID)
	return nil
}

type spySource struct {
	calls     int
	positions []traccar.Position
	err       error
	lastFrom  time.Time
	lastTo    time.Time
}

func (s *spySource) PositionsBetween(_ context.Context, from, to time.Time) ([]traccar.Position, error) {
	s.calls++
	s.lastFrom = from
	s.lastTo = to
	return s.positions, s.err
}

func ascendingPositions(start time.Time, n int) []traccar.Position {
	positions := make([]traccar.Position, n)
	for i := range positions {
		positions[i] = traccar.Position{
			Latitude:  float64(i),
			Longitude: float64(i),
			Timestamp: start.Add(time.Duration(i) * time.Minute),
		}
	}
	return positions
}

func liveTrip(start time.Time) trip.Trip {
	return trip.Trip{ID: "trip-1", Status: trip.StatusLive, StartTime: &start}
}

func TestRouteEmptyCacheFetchesAndStores(t *testing.T) {
	start := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	now := start.Add(6 * time.Hour)

	store := newMemStore()
	source := &spySource{positions: ascendingPositions(start, 5)}
	cache := NewCache(store, source, 0)
	cache.now = func() time.Time { return now }

	positions := cache.Route(context.Background(), liveTrip(start))
	if len(positions) != 5 {
		t.Fatalf("expected 5 positions, got %d", len(positions))
	}
	if !source.lastFrom.Equal(start) || !source.lastTo.Equal(now) {
		t.Fatalf("expected window [start, now], got [%v, %v]", source.lastFrom, source.lastTo)
	}

	snap := store.snaps["trip-1"]
	if snap == nil || len(snap.Positions) != 5 || !snap.FetchedAt.Equal(now) {
		t.Fatalf("snapshot not stored correctly: %+v", snap)
	}
}

func TestRouteFreshSnapshotSkipsFetch(t *testing.T) {
	start := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	now := start.Add(time.Hour)

	store := newMemStore()
	source := &spySource{positions: ascendingPositions(start, 3)}
	cache := NewCache(store, source, 0)
	cache.now = func() time.Time { return now }

	cache.Route(context.Background(), liveTrip(start))
	cache.Route(context.Background(), liveTrip(start))
	if source.calls != 1 {
		t.Fatalf("expected one provider call within max age, got %d", source.calls)
	}

	// past max age a live trip refetches
	cache.now = func() time.Time { return now.Add(31 * time.Second) }
	cache.Route(context.Background(), liveTrip(start))
	if source.calls != 2 {
		t.Fatalf("expected refetch after max age, got %d calls", source.calls)
	}
}

func TestRouteCompletedTripNeverRefetches(t *testing.T) {
	start := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	store := newMemStore()
	store.snaps["trip-1"] = &Snapshot{
		Positions: ascendingPositions(start, 2),
		FetchedAt: start.Add(time.Hour), // long past any max age
	}
	source := &spySource{}
	cache := NewCache(store, source, 0)
	cache.now = func() time.Time { return end.Add(365 * 24 * time.Hour) }

	completed := trip.Trip{ID: "trip-1", Status: trip.StatusCompleted, StartTime: &start, EndTime: &end}
	positions := cache.Route(context.Background(), completed)
	if len(positions) != 2 {
		t.Fatalf("expected cached positions, got %d", len(positions))
	}
	if source.calls != 0 {
		t.Fatalf("completed trip must not refetch, got %d calls", source.calls)
	}
}

func TestRouteCompletedTripUsesEndBound(t *testing.T) {
	start := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	store := newMemStore()
	source := &spySource{}
	cache := NewCache(store, source, 0)
	cache.now = func() time.Time { return end.Add(time.Hour) }

	completed := trip.Trip{ID: "trip-1", Status: trip.StatusCompleted, StartTime: &start, EndTime: &end}
	cache.Route(context.Background(), completed)
	if !source.lastTo.Equal(end) {
		t.Fatalf("expected end bound %v, got %v", end, source.lastTo)
	}
}

func TestRouteNoStartTime(t *testing.T) {
	source := &spySource{}
	cache := NewCache(newMemStore(), source, 0)

	positions := cache.Route(context.Background(), trip.Trip{ID: "trip-1", Status: trip.StatusDraft})
	if positions != nil || source.calls != 0 {
		t.Fatalf("expected no fetch without start time")
	}
}

func TestRouteFetchFailureDegradesToEmpty(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	store := newMemStore()
	source := &spySource{err: errors.New("boom")}
	cache := NewCache(store, source, 0)

	positions := cache.Route(context.Background(), liveTrip(start))
	if positions != nil {
		t.Fatalf("expected empty route on fetch failure")
	}
	if store.snaps["trip-1"] != nil {
		t.Fatalf("no snapshot must be written on failure")
	}
}

func TestClearForcesRefetch(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	store := newMemStore()
	source := &spySource{positions: ascendingPositions(start, 1)}
	cache := NewCache(store, source, 0)

	cache.Route(context.Background(), liveTrip(start))
	if err := cache.Clear(context.Background(), "trip-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cache.Route(context.Background(), liveTrip(start))
	if source.calls != 2 {
		t.Fatalf("expected refetch after clear, got %d calls", source.calls)
	}
}

func TestRefreshPropagatesError(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	source := &spySource{err: errors.New("boom")}
	cache := NewCache(newMemStore(), source, 0)

	if _, err := cache.Refresh(context.Background(), liveTrip(start)); err == nil {
		t.Fatalf("expected refresh error")
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb)
	ctx := context.Background()

	snap, err := store.Get(ctx, "trip-1")
	if err != nil || snap != nil {
		t.Fatalf("expected absent snapshot, got %+v %v", snap, err)
	}

	fetched := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	want := Snapshot{
		Positions: []traccar.Position{{Latitude: 1, Longitude: 2, Timestamp: fetched}},
		FetchedAt: fetched,
	}
	if err := store.Put(ctx, "trip-1", want); err != nil {
		t.Fatalf("put: %v", err)
	}

	snap, err = store.Get(ctx, "trip-1")
	if err != nil || snap == nil {
		t.Fatalf("get: %v", err)
	}
	if len(snap.Positions) != 1 || !snap.FetchedAt.Equal(fetched) {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if err := store.Delete(ctx, "trip-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap, err = store.Get(ctx, "trip-1")
	if err != nil || snap != nil {
		t.Fatalf("expected deleted snapshot, got %+v", snap)
	}
}
