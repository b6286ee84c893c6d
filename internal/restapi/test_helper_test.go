package restapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"departures.opentransit.org/gtfsdb"
	"departures.opentransit.org/internal/app"
	"departures.opentransit.org/internal/appconf"
	"departures.opentransit.org/internal/clock"
	"departures.opentransit.org/internal/departures"
	"departures.opentransit.org/internal/logging"
	"departures.opentransit.org/internal/metrics"
)

// testFeed is a two-stop line: TripA runs Stop1 -> Stop2, TripB the reverse.
var testFeed = map[string]string{
	"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
		"R1,MPK,1,Test Line,3\n",
	"stops.txt": "stop_id,stop_code,stop_name,stop_lat,stop_lon\n" +
		"Stop1,S1,Stop One,51.10,17.03\n" +
		"Stop2,S2,Stop Two,51.11,17.04\n",
	"trips.txt": "route_id,service_id,trip_id,trip_headsign\n" +
		"R1,WD,TripA,Stop Two\n" +
		"R1,WD,TripB,Stop One\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"TripA,08:30:00,08:30:00,Stop1,1\n" +
		"TripA,08:40:00,08:40:00,Stop2,2\n" +
		"TripB,08:35:00,08:35:00,Stop2,1\n" +
		"TripB,08:45:00,08:45:00,Stop1,2\n",
}

const slogLevelForTests = slog.LevelWarn

var testNow = time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)

type testOption func(*appconf.Config)

func writeTestFeed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, contents := range testFeed {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
	}
	return dir
}

// createTestApi builds a RestAPI over an in-memory database loaded with
// testFeed. The clock is fixed at testNow.
func createTestApi(t *testing.T, opts ...testOption) *RestAPI {
	t.Helper()

	cfg := appconf.Default()
	cfg.Env = appconf.Test
	cfg.DataPath = ":memory:"
	cfg.RateLimit = 100
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := gtfsdb.NewClient(gtfsdb.NewConfig(cfg.DataPath, cfg.Env, false))
	require.NoError(t, err)
	require.NoError(t, client.ImportFromFile(context.Background(), writeTestFeed(t)))

	clk := clock.NewMockClock(testNow)
	m := metrics.New()
	logger := logging.NewStructuredLogger(os.Stderr, slogLevelForTests)

	application := &app.Application{
		Config:   cfg,
		Logger:   logger,
		GtfsDB:   client,
		Resolver: departures.NewResolver(departures.FromClient(client), app.PolicyFromConfig(cfg), clk, m),
		Clock:    clk,
		Metrics:  m,
	}

	api := NewRestAPI(application)
	t.Cleanup(func() {
		api.Shutdown()
		_ = client.Close()
	})
	return api
}

// serveAPI runs the full middleware chain against one request.
func serveAPI(t *testing.T, api *RestAPI, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	handler := api.SetupAPIRoutes(http.NewServeMux())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
}
