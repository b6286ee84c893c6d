package restapi

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/twpayne/go-polyline"

	"departures.opentransit.org/internal/logging"
	"departures.opentransit.org/internal/models"
)

// tripHandler answers GET /public_transport/city/{city}/trip/{trip_id} with
// the trip and the stops it visits in order.
func (api *RestAPI) tripHandler(w http.ResponseWriter, r *http.Request) {
	city := r.PathValue("city")
	if !api.Config.SupportsCity(city) {
		api.sendNotFound(w, r, "City not supported")
		return
	}
	tripID := r.PathValue("trip_id")

	ctx := r.Context()
	session, err := api.GtfsDB.Acquire(ctx)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	defer logging.SafeCloseWithLogging(session, logging.FromContext(ctx), "gtfsdb_session")

	trip, err := session.GetTrip(ctx, tripID)
	if errors.Is(err, sql.ErrNoRows) {
		api.sendNotFound(w, r, "Trip not found")
		return
	}
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	path, err := session.GetTripPath(ctx, tripID)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	stops := make([]models.TripStop, 0, len(path))
	coords := make([][]float64, 0, len(path))
	for _, p := range path {
		stops = append(stops, models.TripStop{StopID: p.StopID, Latitude: p.Lat, Longitude: p.Lon})
		coords = append(coords, []float64{p.Lat, p.Lon})
	}

	details := models.NewTripDetails(trip.ID, trip.RouteID, trip.ServiceID, trip.Headsign, stops,
		string(polyline.EncodeCoords(coords)))
	api.sendResponse(w, r, http.StatusOK, details)
}
