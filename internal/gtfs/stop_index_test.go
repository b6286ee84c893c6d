package gtfs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"departures.opentransit.org/gtfsdb"
	"departures.opentransit.org/internal/utils"
)

const (
	centerLat = 51.1
	centerLon = 17.03
)

func TestStopsWithinRadius(t *testing.T) {
	stops := []gtfsdb.Stop{
		{ID: "A", Name: "556 m north", Lat: centerLat + 0.005, Lon: centerLon},
		{ID: "B", Name: "222 m north", Lat: centerLat + 0.002, Lon: centerLon},
		{ID: "C", Name: "2.2 km north", Lat: centerLat + 0.02, Lon: centerLon},
		{ID: "D", Name: "same place as B", Lat: centerLat + 0.002, Lon: centerLon},
		{ID: "E", Name: "990 m south", Lat: centerLat - 0.0089, Lon: centerLon},
	}
	idx := NewStopIndex(stops)

	results := idx.StopsWithinRadius(centerLat, centerLon, 1000)

	var ids []string
	for _, r := range results {
		ids = append(ids, r.ID)
		assert.LessOrEqual(t, r.DistanceMeters, 1000.0)
	}
	assert.Equal(t, []string{"B", "D", "A", "E"}, ids, "nearest first, ties in index order")

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].DistanceMeters, results[i].DistanceMeters)
	}
	assert.InDelta(t, 222.4, results[0].DistanceMeters, 0.1)
}

func TestStopsWithinRadiusEdgeCases(t *testing.T) {
	t.Run("empty index", func(t *testing.T) {
		idx := NewStopIndex(nil)
		assert.Empty(t, idx.StopsWithinRadius(centerLat, centerLon, 1000))
	})

	t.Run("nothing in range", func(t *testing.T) {
		idx := NewStopIndex([]gtfsdb.Stop{{ID: "far", Lat: 52.23, Lon: 21.01}})
		assert.Empty(t, idx.StopsWithinRadius(centerLat, centerLon, 1000))
	})

	t.Run("zero radius keeps a stop at the query point", func(t *testing.T) {
		idx := NewStopIndex([]gtfsdb.Stop{
			{ID: "here", Lat: centerLat, Lon: centerLon},
			{ID: "near", Lat: centerLat + 0.0001, Lon: centerLon},
		})
		results := idx.StopsWithinRadius(centerLat, centerLon, 0)
		require.Len(t, results, 1)
		assert.Equal(t, "here", results[0].ID)
		assert.Zero(t, results[0].DistanceMeters)
	})

	t.Run("across the antimeridian", func(t *testing.T) {
		idx := NewStopIndex([]gtfsdb.Stop{
			{ID: "east", Lat: 0, Lon: -179.9999},
			{ID: "elsewhere", Lat: 0, Lon: 0},
		})
		results := idx.StopsWithinRadius(0, 179.9999, 1000)
		require.Len(t, results, 1)
		assert.Equal(t, "east", results[0].ID)
		assert.InDelta(t, 22.2, results[0].DistanceMeters, 0.1)
	})
}

func TestStopsWithinRadiusAtHighLatitude(t *testing.T) {
	// a stop near the easternmost point of a 500 km circle at 80 degrees north
	const lat, lon, radius = 80.0, 10.0, 500000.0
	angular := radius / utils.RadiusOfEarthInMeters
	latRadians := lat * math.Pi / 180
	widest := math.Asin(math.Sin(angular)/math.Cos(latRadians)) * 180 / math.Pi
	tangentLat := math.Asin(math.Sin(latRadians)/math.Cos(angular)) * 180 / math.Pi

	edge := gtfsdb.Stop{ID: "edge", Lat: tangentLat, Lon: lon + 0.98*widest}
	require.Less(t, utils.Distance(lat, lon, edge.Lat, edge.Lon), radius)

	results := NewStopIndex([]gtfsdb.Stop{edge}).StopsWithinRadius(lat, lon, radius)
	require.Len(t, results, 1)
	assert.Equal(t, "edge", results[0].ID)
}
