// Package geomlen computes polyline length for the tile builder's edge
// shape (§4.6: "Length: polyline length of the shape, rounded half-up to an
// integer"), using the same s2 angular-distance pattern the navigation
// engine uses for snap-to-line projection.
package geomlen

import (
	"math"

	"github.com/golang/geo/s2"
)

// earthRadiusMeters matches WGS84's mean radius; s2's Distance is an angle,
// so the polyline length in meters is angle.Radians() * earthRadiusMeters
// summed over consecutive shape points.
const earthRadiusMeters = 6371000.0

// LatLng is a single shape point in degrees.
type LatLng struct {
	Lat, Lng float64
}

// Length sums the great-circle distance between consecutive points and
// rounds the total half-up to an integer, matching the tile builder's
// length field (a whole number of meters).
func Length(shape []LatLng) uint32 {
	if len(shape) < 2 {
		return 0
	}
	var total float64
	for i := 0; i+1 < len(shape); i++ {
		a := s2.LatLngFromDegrees(shape[i].Lat, shape[i].Lng)
		b := s2.LatLngFromDegrees(shape[i+1].Lat, shape[i+1].Lng)
		total += a.Distance(b).Radians() * earthRadiusMeters
	}
	return uint32(math.Floor(total + 0.5))
}
