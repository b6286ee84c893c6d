package gtfsdb

import "database/sql"

// Stop is a row of the stops table with its coordinates parsed.
type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// UpcomingDeparture is one scheduled visit of a trip at a stop.
type UpcomingDeparture struct {
	TripID        string
	DepartureTime string
	RouteID       string
	TripHeadsign  string
}

// TripPathStop is one element of a trip's stop sequence.
type TripPathStop struct {
	StopID string
	Lat    float64
	Lon    float64
}

type Trip struct {
	ID        string
	RouteID   string
	ServiceID string
	Headsign  string
}

type ImportMetadatum struct {
	FileHash   string
	ImportTime int64
	FileSource string
}

type CreateRouteParams struct {
	ID        string
	AgencyID  sql.NullString
	ShortName sql.NullString
	LongName  sql.NullString
	Type      sql.NullInt64
}

type CreateStopParams struct {
	ID   string
	Code sql.NullString
	Name sql.NullString
	Lat  float64
	Lon  float64
}

type CreateTripParams struct {
	ID           string
	RouteID      string
	ServiceID    sql.NullString
	TripHeadsign sql.NullString
}

type CreateStopTimeParams struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int64
}

type UpsertImportMetadataParams struct {
	FileHash   string
	ImportTime int64
	FileSource string
}

type GetUpcomingDeparturesParams struct {
	StopID    string
	TimeFloor string
	Limit     int64
}
