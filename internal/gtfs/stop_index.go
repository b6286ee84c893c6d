package gtfs

import (
	"sort"

	"github.com/tidwall/rtree"

	"departures.opentransit.org/gtfsdb"
	"departures.opentransit.org/internal/utils"
)

// StopWithDistance is a stop paired with its distance in meters from a query point.
type StopWithDistance struct {
	gtfsdb.Stop
	DistanceMeters float64
}

// StopIndex is an R-tree over a fixed set of stops. It is built for a single
// resolution and never updated.
type StopIndex struct {
	stops []gtfsdb.Stop
	tree  rtree.RTreeG[int]
}

// NewStopIndex indexes stops. The slice order is kept as the tie-break order
// for stops at equal distance.
func NewStopIndex(stops []gtfsdb.Stop) *StopIndex {
	idx := &StopIndex{stops: stops}

	// For points, min and max are the same [lat, lon]
	for i, stop := range stops {
		point := [2]float64{stop.Lat, stop.Lon}
		idx.tree.Insert(point, point, i)
	}

	return idx
}

// StopsWithinRadius returns the stops at most radiusMeters from (lat, lon),
// nearest first. Stops at the same distance keep their index order.
func (idx *StopIndex) StopsWithinRadius(lat, lon, radiusMeters float64) []StopWithDistance {
	if len(idx.stops) == 0 || radiusMeters < 0 {
		return nil
	}

	candidates := idx.candidatesInBounds(utils.CalculateBounds(lat, lon, radiusMeters))

	var results []StopWithDistance
	for _, i := range candidates {
		stop := idx.stops[i]
		d := utils.Distance(lat, lon, stop.Lat, stop.Lon)
		if d <= radiusMeters {
			results = append(results, StopWithDistance{Stop: stop, DistanceMeters: d})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceMeters < results[j].DistanceMeters
	})

	return results
}

// candidatesInBounds returns, in index order, the positions of the stops
// inside bounds. A box that wraps the antimeridian or a pole cannot be
// expressed as one rectangle, so every stop becomes a candidate.
func (idx *StopIndex) candidatesInBounds(bounds utils.CoordinateBounds) []int {
	if bounds.MinLat < -90 || bounds.MaxLat > 90 || bounds.MinLon < -180 || bounds.MaxLon > 180 {
		all := make([]int, len(idx.stops))
		for i := range all {
			all[i] = i
		}
		return all
	}

	// degree/radian round trips in CalculateBounds can shave an ulp off the edges
	const pad = 1e-9

	var candidates []int
	idx.tree.Search(
		[2]float64{bounds.MinLat - pad, bounds.MinLon - pad},
		[2]float64{bounds.MaxLat + pad, bounds.MaxLon + pad},
		func(min, max [2]float64, i int) bool {
			candidates = append(candidates, i)
			return true
		},
	)
	sort.Ints(candidates)
	return candidates
}
