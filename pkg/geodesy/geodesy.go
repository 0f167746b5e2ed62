// Package geodesy provides the great-circle math shared by the pipeline.
package geodesy

import (
	"math"

	"github.com/kass/go-skytrack/pkg/models"
)

// Mean Earth radius in meters, matching the upstream feed's convention.
const earthRadiusMeters = 6371000.0

// MetersPerMile converts great-circle meters into statute miles.
const MetersPerMile = 1609.34

// Distance returns the haversine distance between a and b in meters.
// ok is false when either coordinate is invalid or the result is not
// finite; callers must treat that as "no candidate", never as zero.
func Distance(a, b models.Coordinate) (float64, bool) {
	if !a.Valid() || !b.Valid() {
		return 0, false
	}

	lat1 := a.Lat * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180.0
	dLon := (b.Lon - a.Lon) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	d := 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0, false
	}
	return d, true
}
