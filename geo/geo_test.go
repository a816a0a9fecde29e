package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tribft/types"
)

func TestDistanceAndWithin(t *testing.T) {
	center := types.GeoPoint{Lat: 0, Lon: 0}
	near := types.GeoPoint{Lat: 1, Lon: 0}
	far := types.GeoPoint{Lat: 10, Lon: 10}

	assert.InDelta(t, 1.0, Distance(center, near), 1e-9)
	assert.True(t, Within(near, center, 3))
	assert.False(t, Within(far, center, 3))
}

func TestCentroid(t *testing.T) {
	pts := []types.GeoPoint{{Lat: 0, Lon: 0}, {Lat: 2, Lon: 0}, {Lat: 0, Lon: 2}, {Lat: 2, Lon: 2}}
	c := Centroid(pts)
	assert.InDelta(t, 1.0, c.Lat, 1e-9)
	assert.InDelta(t, 1.0, c.Lon, 1e-9)
}

func TestCentroidEmpty(t *testing.T) {
	c := Centroid(nil)
	assert.Equal(t, types.GeoPoint{}, c)
}
