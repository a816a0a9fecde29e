// Package geo provides the planar distance helpers the Regional Shard
// Manager uses to test containment and pick nearest centers. The
// specification treats coordinates as planar within a small region
// (§3), so distance is plain Euclidean, not great-circle.
package geo

import (
	"math"

	"tribft/types"
)

// Distance returns the Euclidean distance between two points.
func Distance(a, b types.GeoPoint) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// Within reports whether p lies within radius of center (inclusive).
func Within(p, center types.GeoPoint, radius float64) bool {
	return Distance(p, center) <= radius
}

// Centroid returns the arithmetic mean of a non-empty set of points.
func Centroid(points []types.GeoPoint) types.GeoPoint {
	if len(points) == 0 {
		return types.GeoPoint{}
	}
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return types.GeoPoint{Lat: lat / n, Lon: lon / n}
}
