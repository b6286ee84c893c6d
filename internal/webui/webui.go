// Package webui serves the HTML debugging pages.
package webui

import (
	"net/http"

	"departures.opentransit.org/internal/app"
)

type WebUI struct {
	*app.Application
}

// SetWebUIRoutes registers the debug page. It answers 404 in production.
func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug/", webUI.debugIndexHandler)
}
