package photo

import (
	"context"
	"encoding/json"

	"backend-waytrack/internal/db"

	"github.com/google/uuid"
)

// Store keeps photo records and the per-trip placed-location set.
type Store struct {
	db db.Querier
}

func NewStore(db db.Querier) *Store {
	return &Store{db: db}
}

func (s *Store) AddPhoto(ctx context.Context, input Photo) (Photo, error) {
	input.ID = uuid.NewString()

	var sidecar []byte
	if input.Sidecar != nil {
		var err error
		sidecar, err = json.Marshal(input.Sidecar)
		if err != nil {
			return Photo{}, err
		}
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO photos (id, trip_id, caption, thumbnail_url, medium_url, full_url, exif_raw, exif_meta)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, input.ID, input.TripID, input.Caption, input.ThumbnailURL, input.MediumURL, input.FullURL, input.EXIF, sidecar)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Photo{}, err
	}
	return input, nil
}

func (s *Store) Photos(ctx context.Context, tripID string) ([]Photo, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, trip_id, caption, thumbnail_url, medium_url, full_url, exif_raw, exif_meta, created_at
		FROM photos WHERE trip_id=$1
		ORDER BY created_at
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []Photo
	for rows.Next() {
		var p Photo
		var sidecar []byte
		if err := rows.Scan(&p.ID, &p.TripID, &p.Caption, &p.ThumbnailURL, &p.MediumURL, &p.FullURL, &p.EXIF, &sidecar, &p.CreatedAt); err != nil {
			return nil, err
		}
		if len(sidecar) > 0 {
			var sc Sidecar
			if err := json.Unmarshal(sidecar, &sc); err == nil {
				p.Sidecar = &sc
			}
		}
		photos = append(photos, p)
	}
	return photos, nil
}

// DeletePhoto removes a photo, scoped to its trip so a stale photo id
// cannot delete across trips. Reports whether a row was removed.
func (s *Store) DeletePhoto(ctx context.Context, tripID, photoID string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM photos WHERE id=$1 AND trip_id=$2`, photoID, tripID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SaveLocations replaces the trip's stored location set.
func (s *Store) SaveLocations(ctx context.Context, tripID string, locations []Location) error {
	raw, err := json.Marshal(locations)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `UPDATE trips SET photo_locations=$2 WHERE id=$1`, tripID, raw)
	return err
}

func (s *Store) Locations(ctx context.Context, tripID string) ([]Location, error) {
	var raw []byte
	row := s.db.QueryRow(ctx, `SELECT COALESCE(photo_locations, '[]') FROM trips WHERE id=$1`, tripID)
	if err := row.Scan(&raw); err != nil {
		return nil, err
	}

	var locations []Location
	if err := json.Unmarshal(raw, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}
