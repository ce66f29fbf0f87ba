package route

import (
	"context"
	"log"
	"time"

	"backend-waytrack/internal/traccar"
	"backend-waytrack/internal/trip"
)

// DefaultMaxAge bounds provider call frequency while a trip is live.
const DefaultMaxAge = 30 * time.Second

// PositionSource queries historical fixes. Satisfied by *traccar.Client.
type PositionSource interface {
	PositionsBetween(ctx context.Context, from, to time.Time) ([]traccar.Position, error)
}

// Cache owns the per-trip cached route and decides when to serve cached data
// versus refetching from the provider.
type Cache struct {
	store  SnapshotStore
	source PositionSource
	maxAge time.Duration
	now    func() time.Time
}

func NewCache(store SnapshotStore, source PositionSource, maxAge time.Duration) *Cache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Cache{store: store, source: source, maxAge: maxAge, now: time.Now}
}

// Route returns the trip's route, from cache when allowed. Completed trips
// with a snapshot never refetch. Fetch failures degrade to an empty route so
// callers treat "no route yet" and "fetch failed" identically.
func (c *Cache) Route(ctx context.Context, t trip.Trip) []traccar.Position {
	if t.StartTime == nil {
		return nil
	}

	snap, err := c.store.Get(ctx, t.ID)
	if err != nil {
		log.Printf("route snapshot read failed for trip %s: %v", t.ID, err)
		snap = nil
	}

	if t.Status == trip.StatusCompleted && snap != nil {
		return snap.Positions
	}

	now := c.now()
	if snap != nil && now.Sub(snap.FetchedAt) < c.maxAge {
		return snap.Positions
	}

	positions, err := c.fetch(ctx, t, now)
	if err != nil {
		log.Printf("route fetch failed for trip %s: %v", t.ID, err)
		return nil
	}
	return positions
}

// Refresh discards the snapshot and refetches. Unlike Route it propagates
// fetch errors, for admin and diagnostic paths.
func (c *Cache) Refresh(ctx context.Context, t trip.Trip) ([]traccar.Position, error) {
	if err := c.Clear(ctx, t.ID); err != nil {
		return nil, err
	}
	if t.StartTime == nil {
		return nil, nil
	}
	return c.fetch(ctx, t, c.now())
}

// Clear discards the stored snapshot unconditionally.
func (c *Cache) Clear(ctx context.Context, tripID string) error {
	return c.store.Delete(ctx, tripID)
}

func (c *Cache) fetch(ctx context.Context, t trip.Trip, now time.Time) ([]traccar.Position, error) {
	end := now
	if !t.Active() && t.EndTime != nil {
		end = *t.EndTime
	}

	positions, err := c.source.PositionsBetween(ctx, *t.StartTime, end)
	if err != nil {
		return nil, err
	}

	if err := c.store.Put(ctx, t.ID, Snapshot{Positions: positions, FetchedAt: now}); err != nil {
		log.Printf("route snapshot write failed for trip %s: %v", t.ID, err)
	}
	return positions, nil
}
