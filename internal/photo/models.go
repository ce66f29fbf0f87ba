package photo

import "time"

// Location sources.
const (
	SourceEXIFGPS        = "exif_gps"
	SourceTimestampMatch = "timestamp_match"
)

// Photo is a registered trip photo. The image itself lives in external
// storage; we keep its attachment URLs plus whatever EXIF material the
// uploader supplied, either the raw payload or a pre-extracted sidecar.
type Photo struct {
	ID           string    `json:"id"`
	TripID       string    `json:"trip_id"`
	Caption      string    `json:"caption"`
	ThumbnailURL string    `json:"thumbnail_url"`
	MediumURL    string    `json:"medium_url"`
	FullURL      string    `json:"full_url"`
	EXIF         []byte    `json:"exif_raw,omitempty"`
	Sidecar      *Sidecar  `json:"exif,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sidecar carries EXIF fields already extracted by the uploader. GPS
// components are degree/minute/second rationals, possibly in "num/den" form.
type Sidecar struct {
	Timestamp       string   `json:"timestamp"`
	GPSLatitude     []string `json:"gps_latitude"`
	GPSLatitudeRef  string   `json:"gps_latitude_ref"`
	GPSLongitude    []string `json:"gps_longitude"`
	GPSLongitudeRef string   `json:"gps_longitude_ref"`
}

// Location is a photo placed on the map. The set stored for a trip is
// replaced wholesale on each processing run.
type Location struct {
	PhotoID          string     `json:"id"`
	URL              string     `json:"url"`
	FullURL          string     `json:"full_url"`
	ThumbnailURL     string     `json:"thumbnail"`
	Caption          string     `json:"caption"`
	Latitude         float64    `json:"latitude"`
	Longitude        float64    `json:"longitude"`
	Source           string     `json:"source"`
	Timestamp        *time.Time `json:"timestamp,omitempty"`
	MatchedTimestamp *time.Time `json:"matched_timestamp,omitempty"`
}
