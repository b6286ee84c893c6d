package restapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"departures.opentransit.org/internal/appconf"
	"departures.opentransit.org/internal/models"
)

const closestDeparturesPath = "/public_transport/city/wroclaw/closest_departures"

func TestClosestDeparturesHandler(t *testing.T) {
	api := createTestApi(t)

	url := closestDeparturesPath +
		"?start_coordinates=51.1000,17.0300&end_coordinates=51.1100,17.0400&start_time=2025-04-02T08:30:00Z&limit=2"
	rec := serveAPI(t, api, httptest.NewRequest(http.MethodGet, url, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp models.ClosestDeparturesResponse
	decodeJSON(t, rec, &resp)

	assert.Equal(t, url, resp.Metadata.Self)
	assert.Equal(t, "wroclaw", resp.Metadata.City)
	assert.Equal(t, models.QueryParameters{
		StartCoordinates: "51.1000,17.0300",
		EndCoordinates:   "51.1100,17.0400",
		StartTime:        "2025-04-02T08:30:00Z",
		Limit:            2,
	}, resp.Metadata.QueryParameters)

	require.Len(t, resp.Departures, 1)
	dep := resp.Departures[0]
	assert.Equal(t, "TripA", dep.TripID)
	assert.Equal(t, "R1", dep.RouteID)
	assert.Equal(t, "Stop Two", dep.TripHeadsign)
	assert.Equal(t, "Stop1", dep.Stop.ID)
	assert.Equal(t, "Stop One", dep.Stop.Name)
	assert.InDelta(t, 51.10, dep.Stop.Coordinates.Latitude, 1e-9)
	assert.InDelta(t, 17.03, dep.Stop.Coordinates.Longitude, 1e-9)
	assert.Equal(t, "2025-04-02T08:30:00Z", dep.Stop.DepartureTime)
	assert.Equal(t, "2025-04-02T08:30:00Z", dep.Stop.ArrivalTime)
}

func TestClosestDeparturesHandlerDefaults(t *testing.T) {
	api := createTestApi(t)

	rec := serveAPI(t, api, httptest.NewRequest(http.MethodGet,
		closestDeparturesPath+"?start_coordinates=51.1000,17.0300&end_coordinates=51.1100,17.0400", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ClosestDeparturesResponse
	decodeJSON(t, rec, &resp)

	assert.Equal(t, "2025-04-02T08:00:00Z", resp.Metadata.QueryParameters.StartTime, "start_time defaults to now")
	assert.Equal(t, models.DefaultDepartureLimit, resp.Metadata.QueryParameters.Limit)
	require.Len(t, resp.Departures, 1)
	assert.Equal(t, "TripA", resp.Departures[0].TripID)
}

func TestClosestDeparturesHandlerEmptyResultIsArray(t *testing.T) {
	api := createTestApi(t)

	rec := serveAPI(t, api, httptest.NewRequest(http.MethodGet,
		closestDeparturesPath+"?start_coordinates=invalid&end_coordinates=invalid", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"departures":[]`)

	rec = serveAPI(t, api, httptest.NewRequest(http.MethodGet,
		closestDeparturesPath+"?start_coordinates=40.0,-3.7&end_coordinates=40.1,-3.6", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"departures":[]`)
}

func TestClosestDeparturesHandlerValidation(t *testing.T) {
	api := createTestApi(t)

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantError  string
	}{
		{
			name:       "unsupported city",
			url:        "/public_transport/city/gotham/closest_departures?start_coordinates=51.1,17.03&end_coordinates=51.11,17.04",
			wantStatus: http.StatusNotFound,
			wantError:  "City not supported",
		},
		{
			name:       "missing start coordinates",
			url:        closestDeparturesPath + "?end_coordinates=51.11,17.04",
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing required parameters",
		},
		{
			name:       "missing end coordinates",
			url:        closestDeparturesPath + "?start_coordinates=51.1,17.03",
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing required parameters",
		},
		{
			name:       "non numeric limit",
			url:        closestDeparturesPath + "?start_coordinates=51.1,17.03&end_coordinates=51.11,17.04&limit=ten",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveAPI(t, api, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp models.ErrorResponse
			decodeJSON(t, rec, &resp)
			assert.Equal(t, tt.wantError, resp.Error)
			assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
		})
	}
}

func TestClosestDeparturesHandlerCityIsCaseInsensitive(t *testing.T) {
	api := createTestApi(t)

	rec := serveAPI(t, api, httptest.NewRequest(http.MethodGet,
		"/public_transport/city/Wroclaw/closest_departures?start_coordinates=51.1,17.03&end_coordinates=51.11,17.04", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"", models.DefaultDepartureLimit, true},
		{"3", 3, true},
		{" 7 ", 7, true},
		{"0", models.DefaultDepartureLimit, true},
		{"-2", models.DefaultDepartureLimit, true},
		{"500", models.MaxDepartureLimit, true},
		{"2.5", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseLimit(tt.raw)
		assert.Equal(t, tt.wantOK, ok, "raw %q", tt.raw)
		if tt.wantOK {
			assert.Equal(t, tt.want, got, "raw %q", tt.raw)
		}
	}
}

func TestClosestDeparturesHandlerRequiresAPIKey(t *testing.T) {
	api := createTestApi(t, func(cfg *appconf.Config) {
		cfg.ApiKeys = []string{"secret"}
	})
	query := "?start_coordinates=51.1,17.03&end_coordinates=51.11,17.04"

	rec := serveAPI(t, api, httptest.NewRequest(http.MethodGet, closestDeparturesPath+query, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serveAPI(t, api, httptest.NewRequest(http.MethodGet, closestDeparturesPath+query+"&key=wrong", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serveAPI(t, api, httptest.NewRequest(http.MethodGet, closestDeparturesPath+query+"&key=secret", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClosestDeparturesHandlerRecordsResolution(t *testing.T) {
	api := createTestApi(t)

	serveAPI(t, api, httptest.NewRequest(http.MethodGet,
		closestDeparturesPath+"?start_coordinates=51.1,17.03&end_coordinates=51.11,17.04&start_time=2025-04-02T08:30:00Z", nil))
	serveAPI(t, api, httptest.NewRequest(http.MethodGet,
		closestDeparturesPath+"?start_coordinates=nope&end_coordinates=51.11,17.04", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(api.Metrics.DeparturesResolvedTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(api.Metrics.DeparturesResolvedTotal.WithLabelValues("invalid_coordinates")))
	assert.Equal(t, 2.0, testutil.ToFloat64(api.Metrics.HTTPRequestsTotal.WithLabelValues(
		http.MethodGet, "GET /public_transport/city/{city}/closest_departures", "200")))
}
