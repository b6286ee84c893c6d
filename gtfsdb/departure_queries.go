package gtfsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// ErrMalformedCoordinate is returned when a stored stop_lat or stop_lon
// cannot be read as a number.
var ErrMalformedCoordinate = errors.New("malformed stop coordinate")

const listStops = `
SELECT stop_id, stop_name, stop_lat, stop_lon
FROM stops
ORDER BY rowid
`

// ListStops returns every stop with usable coordinates. Rows whose
// coordinates do not parse are skipped and logged.
func (q *Queries) ListStops(ctx context.Context) ([]Stop, error) {
	rows, err := q.query(ctx, listStops)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	logger := slog.Default().With(slog.String("component", "gtfsdb"))

	var items []Stop
	for rows.Next() {
		var (
			id       string
			name     sql.NullString
			lat, lon sql.NullString
		)
		if err := rows.Scan(&id, &name, &lat, &lon); err != nil {
			return nil, err
		}
		latitude, longitude, err := parseStoredCoordinates(lat, lon)
		if err != nil {
			logger.Warn("skipping stop with malformed coordinates",
				slog.String("stop_id", id),
				slog.String("error", err.Error()))
			continue
		}
		items = append(items, Stop{
			ID:   id,
			Name: name.String,
			Lat:  latitude,
			Lon:  longitude,
		})
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getUpcomingDepartures = `
SELECT st.trip_id, st.departure_time, t.route_id, t.trip_headsign
FROM stop_times st
JOIN trips t ON st.trip_id = t.trip_id
WHERE st.stop_id = ? AND st.departure_time >= ?
ORDER BY st.departure_time ASC
LIMIT ?
`

// GetUpcomingDepartures lists departures from a stop at or after a time of
// day. TimeFloor is compared lexically against HH:MM:SS values.
func (q *Queries) GetUpcomingDepartures(ctx context.Context, arg GetUpcomingDeparturesParams) ([]UpcomingDeparture, error) {
	rows, err := q.query(ctx, getUpcomingDepartures, arg.StopID, arg.TimeFloor, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var items []UpcomingDeparture
	for rows.Next() {
		var (
			i        UpcomingDeparture
			headsign sql.NullString
		)
		if err := rows.Scan(&i.TripID, &i.DepartureTime, &i.RouteID, &headsign); err != nil {
			return nil, err
		}
		i.TripHeadsign = headsign.String
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTripPath = `
SELECT st.stop_id, s.stop_lat, s.stop_lon
FROM stop_times st
JOIN stops s ON st.stop_id = s.stop_id
WHERE st.trip_id = ?
ORDER BY CAST(st.stop_sequence AS INTEGER) ASC
`

// GetTripPath returns the stops a trip visits in stop_sequence order. A path
// element with malformed coordinates fails the whole path, since dropping it
// would shift every index after it.
func (q *Queries) GetTripPath(ctx context.Context, tripID string) ([]TripPathStop, error) {
	rows, err := q.query(ctx, getTripPath, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck

	var items []TripPathStop
	for rows.Next() {
		var (
			stopID   string
			lat, lon sql.NullString
		)
		if err := rows.Scan(&stopID, &lat, &lon); err != nil {
			return nil, err
		}
		latitude, longitude, err := parseStoredCoordinates(lat, lon)
		if err != nil {
			return nil, fmt.Errorf("trip %s stop %s: %w", tripID, stopID, err)
		}
		items = append(items, TripPathStop{
			StopID: stopID,
			Lat:    latitude,
			Lon:    longitude,
		})
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTrip = `
SELECT trip_id, route_id, service_id, trip_headsign
FROM trips
WHERE trip_id = ?
`

// GetTrip returns sql.ErrNoRows when the trip does not exist.
func (q *Queries) GetTrip(ctx context.Context, tripID string) (Trip, error) {
	row := q.queryRow(ctx, getTrip, tripID)
	var (
		i         Trip
		serviceID sql.NullString
		headsign  sql.NullString
	)
	err := row.Scan(&i.ID, &i.RouteID, &serviceID, &headsign)
	i.ServiceID = serviceID.String
	i.Headsign = headsign.String
	return i, err
}

func parseStoredCoordinates(lat, lon sql.NullString) (float64, float64, error) {
	latitude, err := parseStoredCoordinate(lat)
	if err != nil {
		return 0, 0, fmt.Errorf("stop_lat: %w", err)
	}
	longitude, err := parseStoredCoordinate(lon)
	if err != nil {
		return 0, 0, fmt.Errorf("stop_lon: %w", err)
	}
	return latitude, longitude, nil
}

func parseStoredCoordinate(v sql.NullString) (float64, error) {
	if !v.Valid {
		return 0, fmt.Errorf("%w: missing", ErrMalformedCoordinate)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.String), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedCoordinate, v.String)
	}
	return f, nil
}
