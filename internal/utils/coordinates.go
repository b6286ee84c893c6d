package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidCoordinates is wrapped by every ParseCoordinates failure.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// ParseCoordinates parses a "lat,lon" pair such as "51.1000,17.0300".
func ParseCoordinates(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: expected \"lat,lon\", got %q", ErrInvalidCoordinates, s)
	}

	lat, err = ParseLatitude(parts[0])
	if err != nil {
		return 0, 0, err
	}
	lon, err = ParseLongitude(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

// ParseLatitude parses a latitude in [-90, 90].
func ParseLatitude(s string) (float64, error) {
	return parseDegrees(s, 90, "latitude")
}

// ParseLongitude parses a longitude in [-180, 180].
func ParseLongitude(s string) (float64, error) {
	return parseDegrees(s, 180, "longitude")
}

func parseDegrees(s string, limit float64, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidCoordinates, name, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < -limit || v > limit {
		return 0, fmt.Errorf("%w: %s %v out of range", ErrInvalidCoordinates, name, v)
	}
	return v, nil
}
