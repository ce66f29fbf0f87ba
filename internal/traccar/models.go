package traccar

import "time"

// Position is a single device fix reported by the provider. Speed is km/h,
// course is a bearing in degrees with 0 pointing north.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	Altitude  float64   `json:"altitude"`
	Course    float64   `json:"course"`
	Timestamp time.Time `json:"timestamp"`
}

// Device is an entry from the provider's device registry.
type Device struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	UniqueID string `json:"uniqueId"`
	Status   string `json:"status"`
}

// wirePosition mirrors the provider's position payload.
type wirePosition struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	Altitude  float64   `json:"altitude"`
	Course    float64   `json:"course"`
	FixTime   time.Time `json:"fixTime"`
}

func (w wirePosition) position() Position {
	return Position{
		Latitude:  w.Latitude,
		Longitude: w.Longitude,
		Speed:     w.Speed,
		Altitude:  w.Altitude,
		Course:    w.Course,
		Timestamp: w.FixTime,
	}
}
