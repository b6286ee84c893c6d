package restapi

import (
	"net/http"

	"departures.opentransit.org/internal/models"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

// rateLimitAndValidateAPIKey applies the per-client rate limit first, so
// rejected keys still count against the caller.
func rateLimitAndValidateAPIKey(api *RestAPI, finalHandler handlerFunc) http.Handler {
	return api.rateLimiter.Handler()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		finalHandler(w, r)
	}))
}

// SetRoutes registers every endpoint on mux.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.Handle("GET /public_transport/city/{city}/closest_departures",
		CacheControlMiddleware(models.CacheDurationShort, rateLimitAndValidateAPIKey(api, api.closestDeparturesHandler)))
	mux.Handle("GET /public_transport/city/{city}/trip/{trip_id}",
		CacheControlMiddleware(models.CacheDurationLong, rateLimitAndValidateAPIKey(api, api.tripHandler)))

	mux.Handle("GET /healthz", CacheControlMiddleware(models.CacheDurationNone, http.HandlerFunc(api.healthHandler)))

	if api.Metrics != nil {
		mux.Handle("GET /metrics", api.Metrics.Handler())
	}
}

// SetupAPIRoutes returns the mux wrapped in the global middleware chain:
// request ID, request logging, metrics, CORS and compression, outermost first.
func (api *RestAPI) SetupAPIRoutes(mux *http.ServeMux) http.Handler {
	api.SetRoutes(mux)

	var handler http.Handler = mux
	handler = CompressionMiddleware(handler)
	handler = NewCORSMiddleware(api.Config.CORSOrigin)(handler)
	handler = MetricsHandler(api.Metrics)(handler)
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}
