package restapi

import (
	"net/http"
	"time"

	"departures.opentransit.org/internal/metrics"
)

const unmatchedRoute = "unmatched"

// MetricsHandler returns middleware that records request counts and
// latencies labelled by route pattern. A nil m yields a pass-through.
//
// It must wrap the ServeMux without any request copy in between: the mux
// writes r.Pattern into the request it receives.
func MetricsHandler(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(recorder, r)

			pattern := r.Pattern
			if pattern == "" {
				pattern = unmatchedRoute
			}
			m.ObserveHTTPRequest(r.Method, pattern, recorder.statusCode, time.Since(start))
		})
	}
}
