package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"departures.opentransit.org/gtfsdb"
	"departures.opentransit.org/internal/appconf"
	"departures.opentransit.org/internal/logging"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

const debugDataTypes = "counts, import, schema, stops, config"

// importStatus pairs the database file with what was last imported into it.
type importStatus struct {
	DBPath   string
	Metadata *gtfsdb.ImportMetadatum
}

type debugData struct {
	Title string
	Pre   string
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := debugTemplate.Execute(w, debugData{
		Title: title,
		Pre:   spew.Sdump(data),
	})
	if err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Application == nil || webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var (
		data  interface{}
		title string
		err   error
	)

	switch r.URL.Query().Get("dataType") {
	case "counts":
		title = "Schedule Database - Table Counts"
		data, err = webUI.GtfsDB.TableCounts()
	case "import":
		title = "Schedule Database - Import Metadata"
		var meta *gtfsdb.ImportMetadatum
		meta, err = webUI.GtfsDB.ImportMetadata(ctx)
		data = importStatus{DBPath: webUI.GtfsDB.GetDBPath(), Metadata: meta}
	case "schema":
		title = "Schedule Database - Schema"
		data, err = webUI.GtfsDB.Schema()
	case "stops":
		title = "Schedule Database - Stops"
		data, err = webUI.GtfsDB.Queries.ListStops(ctx)
	case "config":
		title = "Effective Configuration"
		data = webUI.Config.Redacted()
	default:
		title = "Choose a data type"
		data = map[string]string{
			"error": "Please use one of the following: " + debugDataTypes + ".",
		}
	}

	if err != nil {
		logging.LogError(logger, "debug page query failed", err, slog.String("title", title))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeDebugData(w, title, data)
}
