package trip

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"backend-waytrack/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RouteCacheClearer discards a trip's cached route so the next read refetches.
// Satisfied by route.Cache.
type RouteCacheClearer interface {
	Clear(ctx context.Context, tripID string) error
}

// DefaultRouteColor is used for trips created without an explicit color.
const DefaultRouteColor = "#3388ff"

type Service struct {
	db     db.Querier
	routes RouteCacheClearer
	now    func() time.Time

	// DefaultColor overrides DefaultRouteColor when set.
	DefaultColor string
}

func NewService(db db.Querier, routes RouteCacheClearer) *Service {
	return &Service{db: db, routes: routes, now: time.Now}
}

func (s *Service) CreateTrip(ctx context.Context, input Trip) (Trip, error) {
	input.ID = uuid.NewString()
	if input.Status == "" {
		input.Status = StatusDraft
	}
	if !ValidStatus(input.Status) {
		return Trip{}, fmt.Errorf("invalid status %q", input.Status)
	}
	if input.RouteColor == "" {
		input.RouteColor = s.DefaultColor
	}
	if input.RouteColor == "" {
		input.RouteColor = DefaultRouteColor
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO trips (id, title, status, start_time, end_time, route_color)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, input.ID, input.Title, input.Status, input.StartTime, input.EndTime, input.RouteColor)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Trip{}, err
	}
	return input, nil
}

func (s *Service) GetTrip(ctx context.Context, id string) (Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, title, status, start_time, end_time, route_color, created_at
		FROM trips WHERE id=$1
	`, id)
	var t Trip
	if err := row.Scan(&t.ID, &t.Title, &t.Status, &t.StartTime, &t.EndTime, &t.RouteColor, &t.CreatedAt); err != nil {
		return Trip{}, err
	}
	return t, nil
}

// UpdateTrip applies non-empty patch fields. Changing either trip bound
// invalidates the cached route so the next read covers the new window.
func (s *Service) UpdateTrip(ctx context.Context, id string, patch Trip) (Trip, error) {
	t, err := s.GetTrip(ctx, id)
	if err != nil {
		return Trip{}, err
	}

	boundsChanged := false
	if patch.Title != "" {
		t.Title = patch.Title
	}
	if patch.RouteColor != "" {
		t.RouteColor = patch.RouteColor
	}
	if patch.StartTime != nil && !timesEqual(patch.StartTime, t.StartTime) {
		t.StartTime = patch.StartTime
		boundsChanged = true
	}
	if patch.EndTime != nil && !timesEqual(patch.EndTime, t.EndTime) {
		t.EndTime = patch.EndTime
		boundsChanged = true
	}

	_, err = s.db.Exec(ctx, `
		UPDATE trips
		SET title=$2, start_time=$3, end_time=$4, route_color=$5
		WHERE id=$1
	`, t.ID, t.Title, t.StartTime, t.EndTime, t.RouteColor)
	if err != nil {
		return Trip{}, err
	}

	if boundsChanged {
		s.clearRouteCache(ctx, t.ID)
	}
	return t, nil
}

// SetStatus transitions a trip's lifecycle status. Promoting to live demotes
// every other live trip to paused and backfills the start time in a single
// statement so the single-live-trip invariant holds under concurrent saves.
// Completing a trip backfills the end time.
func (s *Service) SetStatus(ctx context.Context, id, status string) (Trip, error) {
	if !ValidStatus(status) {
		return Trip{}, fmt.Errorf("invalid status %q", status)
	}

	var err error
	switch status {
	case StatusLive:
		_, err = s.db.Exec(ctx, `
			WITH demoted AS (
				UPDATE trips SET status='paused' WHERE status='live' AND id <> $1
			)
			UPDATE trips SET status='live', start_time=COALESCE(start_time, $2)
			WHERE id=$1
		`, id, s.now())
	case StatusCompleted:
		_, err = s.db.Exec(ctx, `
			UPDATE trips SET status='completed', end_time=COALESCE(end_time, $2)
			WHERE id=$1
		`, id, s.now())
	default:
		_, err = s.db.Exec(ctx, `UPDATE trips SET status=$2 WHERE id=$1`, id, status)
	}
	if err != nil {
		return Trip{}, err
	}

	return s.GetTrip(ctx, id)
}

func (s *Service) DeleteTrip(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id=$1`, id); err != nil {
		return err
	}
	s.clearRouteCache(ctx, id)
	return nil
}

func (s *Service) ListTrips(ctx context.Context) ([]Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, status, start_time, end_time, route_color, created_at
		FROM trips
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.Title, &t.Status, &t.StartTime, &t.EndTime, &t.RouteColor, &t.CreatedAt); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, nil
}

// ActiveTrip returns the currently live trip, if any.
func (s *Service) ActiveTrip(ctx context.Context) (Trip, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, title, status, start_time, end_time, route_color, created_at
		FROM trips WHERE status='live'
		LIMIT 1
	`)
	var t Trip
	err := row.Scan(&t.ID, &t.Title, &t.Status, &t.StartTime, &t.EndTime, &t.RouteColor, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Trip{}, false, nil
	}
	if err != nil {
		return Trip{}, false, err
	}
	return t, true, nil
}

func (s *Service) clearRouteCache(ctx context.Context, tripID string) {
	if s.routes == nil {
		return
	}
	if err := s.routes.Clear(ctx, tripID); err != nil {
		log.Printf("route cache clear failed for trip %s: %v", tripID, err)
	}
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
