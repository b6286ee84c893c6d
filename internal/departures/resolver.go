// Package departures finds the scheduled departures near a start point whose
// trips travel toward a destination.
package departures

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"departures.opentransit.org/gtfsdb"
	"departures.opentransit.org/internal/clock"
	"departures.opentransit.org/internal/gtfs"
	"departures.opentransit.org/internal/logging"
	"departures.opentransit.org/internal/metrics"
	"departures.opentransit.org/internal/models"
	"departures.opentransit.org/internal/utils"
)

// Resolution outcomes, as reported to metrics.
const (
	OutcomeOK                 = "ok"
	OutcomeEmpty              = "empty"
	OutcomeInvalidCoordinates = "invalid_coordinates"
	OutcomeStorageError       = "storage_error"
)

// Query is one closest departures request. Coordinates are "lat,lon"
// strings; StartTime is an ISO 8601 timestamp whose HH:MM:SS part is the
// earliest departure time considered.
type Query struct {
	StartCoordinates string
	EndCoordinates   string
	StartTime        string
	Limit            int
}

type Resolver struct {
	gateway Gateway
	policy  Policy
	clock   clock.Clock
	metrics *metrics.Metrics
}

// NewResolver returns a Resolver. A nil clock means the real clock; nil
// metrics disables instrumentation.
func NewResolver(gateway Gateway, policy Policy, clk clock.Clock, m *metrics.Metrics) *Resolver {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Resolver{
		gateway: gateway,
		policy:  policy.withDefaults(),
		clock:   clk,
		metrics: m,
	}
}

func (r *Resolver) Policy() Policy {
	return r.policy
}

// candidate is an included departure with the distance used for ranking.
type candidate struct {
	departure models.RankedDeparture
	distance  float64
}

// ClosestDepartures returns up to q.Limit departures, nearest boarding stop
// first. It never fails: malformed input, missing data and storage errors
// all yield an empty slice, told apart only in logs and metrics.
func (r *Resolver) ClosestDepartures(ctx context.Context, q Query) []models.RankedDeparture {
	started := time.Now()
	logger := logging.FromContext(ctx).With(slog.String("component", "departures_resolver"))

	results, outcome := r.resolve(ctx, logger, q)
	r.metrics.ObserveResolution(outcome, time.Since(started), len(results))

	logger.Debug("closest departures resolved",
		slog.String("outcome", outcome),
		slog.Int("count", len(results)),
		slog.Duration("duration", time.Since(started)))

	return results
}

func (r *Resolver) resolve(ctx context.Context, logger *slog.Logger, q Query) ([]models.RankedDeparture, string) {
	limit := q.Limit
	if limit <= 0 {
		limit = models.DefaultDepartureLimit
	}

	startLat, startLon, err := utils.ParseCoordinates(q.StartCoordinates)
	if err != nil {
		logger.Debug("invalid start coordinates", slog.String("value", q.StartCoordinates), slog.String("error", err.Error()))
		return []models.RankedDeparture{}, OutcomeInvalidCoordinates
	}
	endLat, endLon, err := utils.ParseCoordinates(q.EndCoordinates)
	if err != nil {
		logger.Debug("invalid end coordinates", slog.String("value", q.EndCoordinates), slog.String("error", err.Error()))
		return []models.RankedDeparture{}, OutcomeInvalidCoordinates
	}

	reader, err := r.gateway.Acquire(ctx)
	if err != nil {
		logging.LogError(logger, "Failed to acquire schedule reader", err)
		return []models.RankedDeparture{}, OutcomeStorageError
	}
	defer logging.SafeCloseWithLogging(reader, logger, "schedule_reader")

	stops, err := reader.ListStops(ctx)
	if err != nil {
		logging.LogError(logger, "Failed to list stops", err)
		return []models.RankedDeparture{}, OutcomeStorageError
	}

	seeds := gtfs.NewStopIndex(stops).StopsWithinRadius(startLat, startLon, r.policy.RadiusMeters)
	if len(seeds) > limit {
		seeds = seeds[:limit]
	}
	if len(seeds) == 0 {
		return []models.RankedDeparture{}, OutcomeEmpty
	}

	floor := timeFloor(q.StartTime)
	serviceDate := clock.TodayUTC(r.clock)
	paths := make(map[string]gtfs.TripPath)

	var candidates []candidate
	for _, stop := range seeds {
		upcoming, err := reader.GetUpcomingDepartures(ctx, gtfsdb.GetUpcomingDeparturesParams{
			StopID:    stop.ID,
			TimeFloor: floor,
			Limit:     int64(r.policy.PerStopLimit),
		})
		if err != nil {
			logging.LogError(logger, "Failed to get upcoming departures", err, slog.String("stop_id", stop.ID))
			return []models.RankedDeparture{}, OutcomeStorageError
		}

		for _, dep := range upcoming {
			path, ok := paths[dep.TripID]
			if !ok {
				rows, err := reader.GetTripPath(ctx, dep.TripID)
				switch {
				case errors.Is(err, gtfsdb.ErrMalformedCoordinate):
					// drop only this trip; the nil path is cached
					logger.Warn("skipping trip with malformed path",
						slog.String("trip_id", dep.TripID),
						slog.String("error", err.Error()))
				case err != nil:
					logging.LogError(logger, "Failed to get trip path", err, slog.String("trip_id", dep.TripID))
					return []models.RankedDeparture{}, OutcomeStorageError
				default:
					path = gtfs.TripPath(rows)
				}
				paths[dep.TripID] = path
			}

			if !path.MovesToward(stop.ID, endLat, endLon, r.policy.MaxDestinationDistanceMeters) {
				continue
			}

			candidates = append(candidates, candidate{
				departure: rankedDeparture(stop.Stop, dep, serviceDate),
				distance:  utils.Distance(startLat, startLon, stop.Lat, stop.Lon),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]models.RankedDeparture, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.departure)
	}

	if len(results) == 0 {
		return results, OutcomeEmpty
	}
	return results, OutcomeOK
}

func rankedDeparture(stop gtfsdb.Stop, dep gtfsdb.UpcomingDeparture, serviceDate string) models.RankedDeparture {
	// the schedule has one time per visit, so arrival and departure match
	timestamp := FormatTimestamp(serviceDate, dep.DepartureTime)
	return models.RankedDeparture{
		TripID:       dep.TripID,
		RouteID:      dep.RouteID,
		TripHeadsign: dep.TripHeadsign,
		Stop: models.DepartureStop{
			ID:   stop.ID,
			Name: stop.Name,
			Coordinates: models.Coordinates{
				Latitude:  stop.Lat,
				Longitude: stop.Lon,
			},
			ArrivalTime:   timestamp,
			DepartureTime: timestamp,
		},
	}
}

// FormatTimestamp joins a YYYY-MM-DD date and an HH:MM:SS schedule time into
// YYYY-MM-DDTHH:MM:SSZ. Schedule times past 24:00:00 are kept as they are.
func FormatTimestamp(serviceDate, scheduleTime string) string {
	return serviceDate + "T" + scheduleTime + "Z"
}

// timeFloor extracts HH:MM:SS from a YYYY-MM-DDTHH:MM:SS timestamp. Shorter
// input gives an empty floor, which every departure passes.
func timeFloor(startTime string) string {
	if len(startTime) < 19 {
		return ""
	}
	return startTime[11:19]
}
