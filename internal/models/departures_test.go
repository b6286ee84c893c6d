package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankedDepartureJSONTags(t *testing.T) {
	dep := RankedDeparture{
		TripID:       "TripA",
		RouteID:      "R1",
		TripHeadsign: "Dworzec",
		Stop: DepartureStop{
			ID:            "S1",
			Name:          "Rynek",
			Coordinates:   Coordinates{Latitude: 51.11, Longitude: 17.03},
			ArrivalTime:   "2024-05-01T10:05:00Z",
			DepartureTime: "2024-05-01T10:05:00Z",
		},
	}

	data, err := json.Marshal(dep)
	require.NoError(t, err)
	jsonString := string(data)

	assert.Contains(t, jsonString, `"trip_id":"TripA"`)
	assert.Contains(t, jsonString, `"trip_headsign":"Dworzec"`)
	assert.Contains(t, jsonString, `"coordinates":{"latitude":51.11,"longitude":17.03}`)
	assert.Contains(t, jsonString, `"arrival_time":"2024-05-01T10:05:00Z"`)

	assert.NotContains(t, jsonString, "TripID")
}

func TestClosestDeparturesResponseEncodesEmptyArray(t *testing.T) {
	resp := NewClosestDeparturesResponse(ResponseMetadata{City: "wroclaw"}, nil)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"departures":[]`)
}

func TestNewTripDetailsEncodesEmptyStops(t *testing.T) {
	data, err := json.Marshal(NewTripDetails("T", "R", "S", "", nil, ""))
	require.NoError(t, err)

	assert.Contains(t, string(data), `"stops":[]`)
}
