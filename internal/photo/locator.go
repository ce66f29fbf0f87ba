package photo

import (
	"context"
	"time"

	"backend-waytrack/internal/traccar"
	"backend-waytrack/internal/trip"
)

// DefaultMatchTolerance is generous to absorb camera-clock timezone drift.
const DefaultMatchTolerance = 24 * time.Hour

// RouteSource provides the trip's route for timestamp matching. Satisfied by
// *route.Cache.
type RouteSource interface {
	Route(ctx context.Context, t trip.Trip) []traccar.Position
}

// Locator derives a display location for each photo from its EXIF data and
// the trip's route.
type Locator struct {
	routes    RouteSource
	tolerance time.Duration
	extract   func([]byte) Metadata
}

func NewLocator(routes RouteSource, tolerance time.Duration) *Locator {
	if tolerance <= 0 {
		tolerance = DefaultMatchTolerance
	}
	return &Locator{routes: routes, tolerance: tolerance, extract: ExtractMetadata}
}

// Locate places each photo: embedded EXIF coordinates win, then the nearest
// route point by capture time within the tolerance window. Photos with no
// derivable location are omitted. The result replaces the trip's stored set.
func (l *Locator) Locate(ctx context.Context, t trip.Trip, photos []Photo) []Location {
	positions := l.routes.Route(ctx, t)

	locations := make([]Location, 0, len(photos))
	for _, p := range photos {
		if loc, ok := l.locate(p, positions); ok {
			locations = append(locations, loc)
		}
	}
	return locations
}

func (l *Locator) locate(p Photo, positions []traccar.Position) (Location, bool) {
	meta := l.metadata(p)

	loc := Location{
		PhotoID:      p.ID,
		URL:          p.MediumURL,
		FullURL:      p.FullURL,
		ThumbnailURL: p.ThumbnailURL,
		Caption:      p.Caption,
	}
	if !meta.CaptureTime.IsZero() {
		captured := meta.CaptureTime
		loc.Timestamp = &captured
	}

	if meta.HasGPS {
		loc.Latitude = meta.Latitude
		loc.Longitude = meta.Longitude
		loc.Source = SourceEXIFGPS
		return loc, true
	}

	if meta.CaptureTime.IsZero() || len(positions) == 0 {
		return Location{}, false
	}

	matched, diff := nearestByTime(positions, meta.CaptureTime)
	if diff > l.tolerance {
		return Location{}, false
	}

	loc.Latitude = matched.Latitude
	loc.Longitude = matched.Longitude
	loc.Source = SourceTimestampMatch
	matchedAt := matched.Timestamp
	loc.MatchedTimestamp = &matchedAt
	return loc, true
}

func (l *Locator) metadata(p Photo) Metadata {
	if len(p.EXIF) > 0 {
		return l.extract(p.EXIF)
	}
	if p.Sidecar != nil {
		return MetadataFromSidecar(*p.Sidecar)
	}
	return Metadata{}
}

// nearestByTime scans the route in order; ties keep the first-encountered
// point.
func nearestByTime(positions []traccar.Position, at time.Time) (traccar.Position, time.Duration) {
	best := positions[0]
	bestDiff := absDuration(positions[0].Timestamp.Sub(at))
	for _, p := range positions[1:] {
		if diff := absDuration(p.Timestamp.Sub(at)); diff < bestDiff {
			best = p
			bestDiff = diff
		}
	}
	return best, bestDiff
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
