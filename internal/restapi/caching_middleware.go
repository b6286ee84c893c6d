package restapi

import (
	"fmt"
	"net/http"
)

const noStore = "no-cache, no-store, must-revalidate"

// cacheControlValue is the header sent with a successful response that may
// be cached for maxAge seconds.
func cacheControlValue(maxAge int) string {
	if maxAge <= 0 {
		return noStore
	}
	return fmt.Sprintf("public, max-age=%d", maxAge)
}

// CacheControlMiddleware sets Cache-Control once the status is known: 2xx
// responses get maxAge seconds, everything else is never cached. A handler
// that sets its own Cache-Control keeps it.
func CacheControlMiddleware(maxAge int, next http.Handler) http.Handler {
	success := cacheControlValue(maxAge)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&cacheControlWriter{ResponseWriter: w, success: success}, r)
	})
}

type cacheControlWriter struct {
	http.ResponseWriter
	success     string
	wroteHeader bool
}

func (w *cacheControlWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.ResponseWriter.Header()
	if h.Get("Cache-Control") == "" {
		value := noStore
		if code >= 200 && code < 300 {
			value = w.success
		}
		h.Set("Cache-Control", value)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
