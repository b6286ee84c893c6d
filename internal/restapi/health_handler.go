package restapi

import (
	"encoding/json"
	"net/http"
	"time"

	"departures.opentransit.org/internal/logging"
)

// HealthResponse represents the JSON response from the health endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
	FeedSource string `json:"feed_source,omitempty"`
	ImportedAt string `json:"imported_at,omitempty"`
}

// healthHandler answers 200 while the schedule database responds and 503
// otherwise. An empty database is healthy but says so in the detail.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	if api.Application == nil || api.GtfsDB == nil || api.GtfsDB.DB == nil {
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Detail: "database not initialized",
		})
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if err := api.GtfsDB.DB.PingContext(ctx); err != nil {
		logging.LogError(logger, "GTFS DB ping failed", err)
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Detail: "database connection failed",
		})
		return
	}

	meta, err := api.GtfsDB.ImportMetadata(ctx)
	if err != nil {
		logging.LogError(logger, "reading import metadata failed", err)
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Detail: "database query failed",
		})
		return
	}

	resp := HealthResponse{Status: "ok"}
	if meta == nil {
		resp.Detail = "no GTFS feed imported"
	} else {
		resp.FeedSource = meta.FileSource
		resp.ImportedAt = time.Unix(meta.ImportTime, 0).UTC().Format(time.RFC3339)
	}
	writeHealth(w, http.StatusOK, resp)
}

func writeHealth(w http.ResponseWriter, status int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
