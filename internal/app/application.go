package app

import (
	"log/slog"

	"departures.opentransit.org/gtfsdb"
	"departures.opentransit.org/internal/appconf"
	"departures.opentransit.org/internal/clock"
	"departures.opentransit.org/internal/departures"
	"departures.opentransit.org/internal/metrics"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config   appconf.Config
	Logger   *slog.Logger
	GtfsDB   *gtfsdb.Client
	Resolver *departures.Resolver
	Clock    clock.Clock
	Metrics  *metrics.Metrics
}

// PolicyFromConfig maps the configured search settings onto a resolver policy.
func PolicyFromConfig(cfg appconf.Config) departures.Policy {
	return departures.Policy{
		RadiusMeters:                 cfg.SearchRadiusMeters,
		PerStopLimit:                 cfg.DeparturesPerStop,
		MaxDestinationDistanceMeters: cfg.MaxDestinationDistanceMeters,
	}
}
