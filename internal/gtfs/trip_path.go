package gtfs

import (
	"departures.opentransit.org/gtfsdb"
	"departures.opentransit.org/internal/utils"
)

// TripPath is the ordered list of stops a trip visits.
type TripPath []gtfsdb.TripPathStop

// IndexOfStop returns the position of the first visit to stopID, or -1.
func (p TripPath) IndexOfStop(stopID string) int {
	for i, s := range p {
		if s.StopID == stopID {
			return i
		}
	}
	return -1
}

// NearestIndex returns the position of the path stop closest to (lat, lon)
// and its distance in meters. Ties go to the earliest position. An empty path
// yields -1.
func (p TripPath) NearestIndex(lat, lon float64) (int, float64) {
	best := -1
	bestDistance := 0.0
	for i, s := range p {
		d := utils.Distance(lat, lon, s.Lat, s.Lon)
		if best == -1 || d < bestDistance {
			best = i
			bestDistance = d
		}
	}
	return best, bestDistance
}

// MovesToward reports whether a rider boarding at boardingStopID travels
// toward (lat, lon): the boarding stop must come strictly before the path
// stop nearest the destination. maxDestinationMeters > 0 also requires that
// nearest stop to lie within that distance of the destination.
func (p TripPath) MovesToward(boardingStopID string, lat, lon, maxDestinationMeters float64) bool {
	depIdx := p.IndexOfStop(boardingStopID)
	destIdx, destDistance := p.NearestIndex(lat, lon)
	if depIdx < 0 || destIdx < 0 || depIdx >= destIdx {
		return false
	}
	if maxDestinationMeters > 0 && destDistance > maxDestinationMeters {
		return false
	}
	return true
}
