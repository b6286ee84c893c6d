package models

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DepartureStop is the stop a ranked departure leaves from.
type DepartureStop struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Coordinates   Coordinates `json:"coordinates"`
	ArrivalTime   string      `json:"arrival_time"`
	DepartureTime string      `json:"departure_time"`
}

// RankedDeparture is one result of a closest departures query.
type RankedDeparture struct {
	TripID       string        `json:"trip_id"`
	RouteID      string        `json:"route_id"`
	TripHeadsign string        `json:"trip_headsign"`
	Stop         DepartureStop `json:"stop"`
}

type QueryParameters struct {
	StartCoordinates string `json:"start_coordinates"`
	EndCoordinates   string `json:"end_coordinates"`
	StartTime        string `json:"start_time"`
	Limit            int    `json:"limit"`
}

type ResponseMetadata struct {
	Self            string          `json:"self"`
	City            string          `json:"city"`
	QueryParameters QueryParameters `json:"query_parameters"`
}

type ClosestDeparturesResponse struct {
	Metadata   ResponseMetadata  `json:"metadata"`
	Departures []RankedDeparture `json:"departures"`
}

// NewClosestDeparturesResponse never leaves Departures nil, so the field
// always encodes as an array.
func NewClosestDeparturesResponse(metadata ResponseMetadata, departures []RankedDeparture) ClosestDeparturesResponse {
	if departures == nil {
		departures = []RankedDeparture{}
	}
	return ClosestDeparturesResponse{
		Metadata:   metadata,
		Departures: departures,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}
