package restapi

import (
	"net/http"
	"strconv"
	"strings"

	"departures.opentransit.org/internal/departures"
	"departures.opentransit.org/internal/models"
)

// closestDeparturesHandler answers
// GET /public_transport/city/{city}/closest_departures.
func (api *RestAPI) closestDeparturesHandler(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	if !api.Config.SupportsCity(city) {
		api.sendNotFound(w, r, "City not supported")
		return
	}

	query := r.URL.Query()
	startCoordinates := strings.TrimSpace(query.Get("start_coordinates"))
	endCoordinates := strings.TrimSpace(query.Get("end_coordinates"))
	if startCoordinates == "" || endCoordinates == "" {
		api.sendBadRequest(w, r, "Missing required parameters")
		return
	}

	limit, ok := parseLimit(query.Get("limit"))
	if !ok {
		api.sendBadRequest(w, r, "Invalid limit")
		return
	}

	startTime := strings.TrimSpace(query.Get("start_time"))
	if startTime == "" {
		startTime = api.Clock.Now().UTC().Format(models.TimestampLayout)
	}

	results := api.Resolver.ClosestDepartures(r.Context(), departures.Query{
		StartCoordinates: startCoordinates,
		EndCoordinates:   endCoordinates,
		StartTime:        startTime,
		Limit:            limit,
	})

	metadata := models.ResponseMetadata{
		Self: r.URL.RequestURI(),
		City: city,
		QueryParameters: models.QueryParameters{
			StartCoordinates: startCoordinates,
			EndCoordinates:   endCoordinates,
			StartTime:        startTime,
			Limit:            limit,
		},
	}

	api.sendResponse(w, r, http.StatusOK, models.NewClosestDeparturesResponse(metadata, results))
}

// parseLimit reads the optional limit parameter. Missing or non-positive
// values mean the default; large values are clamped.
func parseLimit(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.DefaultDepartureLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	switch {
	case limit <= 0:
		return models.DefaultDepartureLimit, true
	case limit > models.MaxDepartureLimit:
		return models.MaxDepartureLimit, true
	}
	return limit, true
}
