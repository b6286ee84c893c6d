package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"departures.opentransit.org/internal/logging"
	"departures.opentransit.org/internal/models"
)

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	setJSONResponseType(&w)
	body, err := json.Marshal(payload)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		logging.FromContext(r.Context()).Debug("response write failed", slog.String("error", err.Error()))
	}
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, status int, message string) {
	api.sendResponse(w, r, status, models.ErrorResponse{Error: message})
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request, message string) {
	api.sendError(w, r, http.StatusNotFound, message)
}

func (api *RestAPI) sendBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	api.sendError(w, r, http.StatusBadRequest, message)
}

func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusUnauthorized, "permission denied")
}

// serverErrorResponse logs err and answers with a generic 500 so internals
// never reach the client.
func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "request failed", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))

	setJSONResponseType(&w)
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Internal server error"})
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}
