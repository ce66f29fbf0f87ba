package geo

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371

// HaversineKm returns the great-circle distance between two points in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// FormatDistance renders a distance for display: whole kilometers from 1000 km up,
// one decimal from 1 km up, whole meters below that.
func FormatDistance(km float64) string {
	switch {
	case km >= 1000:
		return fmt.Sprintf("%.0f km", km)
	case km >= 1:
		return fmt.Sprintf("%.1f km", km)
	default:
		return fmt.Sprintf("%.0f m", km*1000)
	}
}
