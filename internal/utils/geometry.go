package utils

import "math"

const (
	// RadiusOfEarthInMeters is the mean Earth radius used by every distance in the service.
	RadiusOfEarthInMeters = 6371000.0
)

// CoordinateBounds represents a bounding box with min/max latitude and longitude
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Distance returns the great-circle distance in meters between two points
// using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinDPhi := math.Sin(dPhi / 2)
	sinDLambda := math.Sin(dLambda / 2)
	a := sinDPhi*sinDPhi + math.Cos(phi1)*math.Cos(phi2)*sinDLambda*sinDLambda
	// rounding can push antipodal points just past 1
	a = math.Min(a, 1)

	return RadiusOfEarthInMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// CalculateBounds returns a box that contains every point within distance
// meters of (lat, lon). The box is a prefilter; callers still check Distance.
// When the circle reaches a pole the box spans every longitude.
func CalculateBounds(lat, lon, distance float64) CoordinateBounds {
	latRadians := lat * math.Pi / 180
	lonRadians := lon * math.Pi / 180
	angular := distance / RadiusOfEarthInMeters

	// the widest point of the circle is not on the center's parallel, so the
	// half-width is asin(sin(d/R) / cos(lat)) rather than d / (R cos(lat))
	lonOffset := math.Pi
	if s := math.Sin(angular) / math.Cos(latRadians); angular < math.Pi/2 && s < 1 {
		lonOffset = math.Asin(s)
	}

	return CoordinateBounds{
		MinLat: (latRadians - angular) * 180 / math.Pi,
		MaxLat: (latRadians + angular) * 180 / math.Pi,
		MinLon: (lonRadians - lonOffset) * 180 / math.Pi,
		MaxLon: (lonRadians + lonOffset) * 180 / math.Pi,
	}
}
