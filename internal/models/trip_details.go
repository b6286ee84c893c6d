package models

type TripStop struct {
	StopID    string  `json:"stop_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TripDetails describes a trip and the path it follows. Polyline is the
// path in Google encoded polyline format.
type TripDetails struct {
	TripID       string     `json:"trip_id"`
	RouteID      string     `json:"route_id"`
	ServiceID    string     `json:"service_id"`
	TripHeadsign string     `json:"trip_headsign"`
	Stops        []TripStop `json:"stops"`
	Polyline     string     `json:"polyline"`
}

func NewTripDetails(tripID, routeID, serviceID, headsign string, stops []TripStop, polyline string) *TripDetails {
	if stops == nil {
		stops = []TripStop{}
	}
	return &TripDetails{
		TripID:       tripID,
		RouteID:      routeID,
		ServiceID:    serviceID,
		TripHeadsign: headsign,
		Stops:        stops,
		Polyline:     polyline,
	}
}
