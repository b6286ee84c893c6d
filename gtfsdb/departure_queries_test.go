package gtfsdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"departures.opentransit.org/internal/appconf"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func seed(t *testing.T, client *Client, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		_, err := client.DB.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func seedLine(t *testing.T, client *Client) {
	seed(t, client,
		`INSERT INTO stops (stop_id, stop_name, stop_lat, stop_lon) VALUES
			('S1', 'Rynek', 51.1100, 17.0300),
			('S2', 'Dworzec', 51.1000, 17.0400),
			('S3', 'Most', 51.0980, 17.0450)`,
		`INSERT INTO trips (trip_id, route_id, service_id, trip_headsign) VALUES
			('TripA', 'R1', 'WD', 'Toward S2'),
			('TripB', 'R1', 'WD', NULL)`,
		`INSERT INTO stop_times (trip_id, arrival_time, departure_time, stop_id, stop_sequence) VALUES
			('TripA', '10:05:00', '10:05:00', 'S1', 1),
			('TripA', '10:15:00', '10:15:00', 'S2', 2),
			('TripA', '10:20:00', '10:20:00', 'S3', 10),
			('TripB', '10:00:00', '10:00:00', 'S2', 1),
			('TripB', '10:10:00', '10:10:00', 'S1', 2)`,
	)
}

func TestListStops(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	t.Run("empty table", func(t *testing.T) {
		stops, err := client.Queries.ListStops(ctx)
		require.NoError(t, err)
		assert.Empty(t, stops)
	})

	seedLine(t, client)
	seed(t, client,
		`INSERT INTO stops (stop_id, stop_name, stop_lat, stop_lon) VALUES ('BAD', 'Broken', 'abc', 17.0)`,
		`INSERT INTO stops (stop_id, stop_name, stop_lat, stop_lon) VALUES ('NOLAT', 'No latitude', NULL, 17.0)`,
		`INSERT INTO stops (stop_id, stop_name, stop_lat, stop_lon) VALUES ('TXT', NULL, '51.2', ' 17.1 ')`,
	)

	t.Run("skips malformed rows and keeps insertion order", func(t *testing.T) {
		stops, err := client.Queries.ListStops(ctx)
		require.NoError(t, err)
		require.Len(t, stops, 4)

		assert.Equal(t, Stop{ID: "S1", Name: "Rynek", Lat: 51.11, Lon: 17.03}, stops[0])
		assert.Equal(t, "S2", stops[1].ID)
		assert.Equal(t, "S3", stops[2].ID)
		assert.Equal(t, Stop{ID: "TXT", Name: "", Lat: 51.2, Lon: 17.1}, stops[3])
	})
}

func TestGetUpcomingDepartures(t *testing.T) {
	client := newTestClient(t)
	seedLine(t, client)
	seed(t, client,
		`INSERT INTO trips (trip_id, route_id, service_id, trip_headsign) VALUES
			('TripC', 'R2', 'WD', 'Late'), ('TripD', 'R2', 'WD', 'Later'), ('TripE', 'R2', 'WD', 'Latest')`,
		`INSERT INTO stop_times (trip_id, arrival_time, departure_time, stop_id, stop_sequence) VALUES
			('TripC', '11:00:00', '11:00:00', 'S1', 1),
			('TripD', '12:00:00', '12:00:00', 'S1', 1),
			('TripE', '25:10:00', '25:10:00', 'S1', 1)`,
	)
	ctx := context.Background()

	tests := []struct {
		name    string
		params  GetUpcomingDeparturesParams
		wantIDs []string
	}{
		{"floor includes equal times", GetUpcomingDeparturesParams{StopID: "S1", TimeFloor: "10:05:00", Limit: 3}, []string{"TripA", "TripB", "TripC"}},
		{"floor excludes earlier times", GetUpcomingDeparturesParams{StopID: "S1", TimeFloor: "10:06:00", Limit: 3}, []string{"TripB", "TripC", "TripD"}},
		{"after-midnight times sort last", GetUpcomingDeparturesParams{StopID: "S1", TimeFloor: "23:00:00", Limit: 3}, []string{"TripE"}},
		{"empty floor matches everything", GetUpcomingDeparturesParams{StopID: "S1", TimeFloor: "", Limit: 10}, []string{"TripA", "TripB", "TripC", "TripD", "TripE"}},
		{"limit one", GetUpcomingDeparturesParams{StopID: "S2", TimeFloor: "00:00:00", Limit: 1}, []string{"TripB"}},
		{"unknown stop", GetUpcomingDeparturesParams{StopID: "nope", TimeFloor: "00:00:00", Limit: 3}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, err := client.Queries.GetUpcomingDepartures(ctx, tt.params)
			require.NoError(t, err)

			var ids []string
			for _, d := range deps {
				ids = append(ids, d.TripID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	t.Run("carries route and headsign", func(t *testing.T) {
		deps, err := client.Queries.GetUpcomingDepartures(ctx, GetUpcomingDeparturesParams{StopID: "S1", TimeFloor: "10:00:00", Limit: 2})
		require.NoError(t, err)
		require.Len(t, deps, 2)
		assert.Equal(t, UpcomingDeparture{TripID: "TripA", DepartureTime: "10:05:00", RouteID: "R1", TripHeadsign: "Toward S2"}, deps[0])
		assert.Equal(t, "", deps[1].TripHeadsign)
	})
}

func TestGetTripPath(t *testing.T) {
	client := newTestClient(t)
	seedLine(t, client)
	ctx := context.Background()

	t.Run("ordered by numeric stop sequence", func(t *testing.T) {
		path, err := client.Queries.GetTripPath(ctx, "TripA")
		require.NoError(t, err)
		require.Len(t, path, 3)
		assert.Equal(t, "S1", path[0].StopID)
		assert.Equal(t, "S2", path[1].StopID)
		assert.Equal(t, TripPathStop{StopID: "S3", Lat: 51.098, Lon: 17.045}, path[2])
	})

	t.Run("unknown trip has an empty path", func(t *testing.T) {
		path, err := client.Queries.GetTripPath(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, path)
	})

	t.Run("malformed coordinates fail the path", func(t *testing.T) {
		seed(t, client,
			`INSERT INTO stops (stop_id, stop_name, stop_lat, stop_lon) VALUES ('BAD', 'Broken', 'north', 17.0)`,
			`INSERT INTO stop_times (trip_id, arrival_time, departure_time, stop_id, stop_sequence) VALUES ('TripB', '10:20:00', '10:20:00', 'BAD', 3)`,
		)
		_, err := client.Queries.GetTripPath(ctx, "TripB")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedCoordinate)
	})
}

func TestGetTrip(t *testing.T) {
	client := newTestClient(t)
	seedLine(t, client)
	ctx := context.Background()

	trip, err := client.Queries.GetTrip(ctx, "TripA")
	require.NoError(t, err)
	assert.Equal(t, Trip{ID: "TripA", RouteID: "R1", ServiceID: "WD", Headsign: "Toward S2"}, trip)

	_, err = client.Queries.GetTrip(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSessionReleasesConnection(t *testing.T) {
	client := newTestClient(t)
	seedLine(t, client)
	ctx := context.Background()

	session, err := client.Acquire(ctx)
	require.NoError(t, err)

	stops, err := session.ListStops(ctx)
	require.NoError(t, err)
	assert.Len(t, stops, 3)

	require.NoError(t, session.Close())
	assert.NoError(t, session.Close(), "second close is a no-op")

	// the in-memory pool has a single connection; this only succeeds if the
	// session gave it back
	var n int
	require.NoError(t, client.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM stops").Scan(&n))
	assert.Equal(t, 3, n)

	_, err = session.ListStops(ctx)
	assert.Error(t, err, "a closed session cannot run queries")
}
