package stats

import (
	"context"
	"log"
	"math"
	"time"

	"backend-waytrack/internal/shared/geo"
	"backend-waytrack/internal/traccar"
	"backend-waytrack/internal/trip"
)

// DefaultPlaceThresholdKm is how far along the route a trip has to travel
// before the next point counts as a new place.
const DefaultPlaceThresholdKm = 50

// RouteSource provides a trip's route positions. Satisfied by *route.Cache.
type RouteSource interface {
	Route(ctx context.Context, t trip.Trip) []traccar.Position
}

// Engine computes trip statistics from route positions. Completed trips are
// served from the snapshot store; every other status is computed fresh.
type Engine struct {
	routes           RouteSource
	store            SnapshotStore
	placeThresholdKm float64
	now              func() time.Time
}

func NewEngine(routes RouteSource, store SnapshotStore, placeThresholdKm float64) *Engine {
	if placeThresholdKm <= 0 {
		placeThresholdKm = DefaultPlaceThresholdKm
	}
	return &Engine{
		routes:           routes,
		store:            store,
		placeThresholdKm: placeThresholdKm,
		now:              time.Now,
	}
}

// Stats returns the trip's statistics, preferring the stored snapshot for
// completed trips.
func (e *Engine) Stats(ctx context.Context, t trip.Trip) Snapshot {
	if t.Status == trip.StatusCompleted {
		snap, err := e.store.Get(ctx, t.ID)
		if err != nil {
			log.Printf("stats snapshot read failed for trip %s: %v", t.ID, err)
		}
		if snap != nil {
			return *snap
		}
	}
	return e.Recompute(ctx, t)
}

// Recompute calculates statistics from the current route, bypassing any
// stored snapshot. Completed trips get the stored snapshot overwritten so a
// later Stats call serves the fresh numbers.
func (e *Engine) Recompute(ctx context.Context, t trip.Trip) Snapshot {
	snap := e.compute(t, e.routes.Route(ctx, t))

	if t.Status == trip.StatusCompleted {
		if err := e.store.Put(ctx, t.ID, snap); err != nil {
			log.Printf("stats snapshot write failed for trip %s: %v", t.ID, err)
		}
	}
	return snap
}

// TotalsSnapshot aggregates statistics across every non-draft trip.
type TotalsSnapshot struct {
	TotalTrips           int     `json:"total_trips"`
	TotalDistanceKm      float64 `json:"total_distance_km"`
	TotalDistance        string  `json:"total_distance"`
	TotalDurationSeconds int64   `json:"total_duration_seconds"`
	TotalDuration        string  `json:"total_duration"`
}

func (e *Engine) Totals(ctx context.Context, trips []trip.Trip) TotalsSnapshot {
	var totals TotalsSnapshot
	for _, t := range trips {
		if t.Status == trip.StatusDraft {
			continue
		}
		snap := e.Stats(ctx, t)
		totals.TotalTrips++
		totals.TotalDistanceKm += snap.DistanceKm
		totals.TotalDurationSeconds += snap.DurationSeconds
	}
	totals.TotalDistanceKm = round2(totals.TotalDistanceKm)
	totals.TotalDistance = geo.FormatDistance(totals.TotalDistanceKm)
	totals.TotalDuration = FormatDuration(totals.TotalDurationSeconds)
	return totals
}

func (e *Engine) compute(t trip.Trip, positions []traccar.Position) Snapshot {
	snap := Snapshot{
		Distance: geo.FormatDistance(0),
		Duration: "—",
		Points:   len(positions),
	}

	var totalKm, speedSum float64
	speedCount := 0
	if len(positions) > 0 && positions[0].Speed > 0 {
		speedSum = positions[0].Speed
		speedCount = 1
		snap.MaxSpeed = positions[0].Speed
	}
	for i := 1; i < len(positions); i++ {
		prev, cur := positions[i-1], positions[i]
		totalKm += geo.HaversineKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)

		if cur.Speed > 0 {
			speedSum += cur.Speed
			speedCount++
			if cur.Speed > snap.MaxSpeed {
				snap.MaxSpeed = cur.Speed
			}
		}
	}

	snap.DistanceKm = round2(totalKm)
	snap.Distance = geo.FormatDistance(totalKm)
	if speedCount > 0 {
		snap.AvgSpeed = round1(speedSum / float64(speedCount))
	}

	if t.StartTime != nil {
		end := e.now()
		if t.EndTime != nil && !t.Active() {
			end = *t.EndTime
		}
		seconds := int64(end.Sub(*t.StartTime).Seconds())
		snap.DurationSeconds = seconds
		snap.Duration = FormatDuration(seconds)
	}

	snap.Places = e.countPlaces(positions)
	return snap
}

// countPlaces counts significant location changes: every time the distance
// travelled along the route since the last counted place exceeds the
// threshold, the current point starts a new one.
func (e *Engine) countPlaces(positions []traccar.Position) int {
	if len(positions) == 0 {
		return 0
	}

	places := 1
	var sinceLast float64
	for i := 1; i < len(positions); i++ {
		prev, cur := positions[i-1], positions[i]
		sinceLast += geo.HaversineKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
		if sinceLast > e.placeThresholdKm {
			places++
			sinceLast = 0
		}
	}
	return places
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
