package gtfsdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/OneBusAway/go-gtfs"
	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"departures.opentransit.org/internal/appconf"
	"departures.opentransit.org/internal/logging"
)

//go:embed schema.sql
var ddl string

// createDB creates a new SQLite database with tables for static GTFS data
func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.DBPath)
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, err
	}

	// Pool settings first, so that an in-memory database keeps the single
	// connection the schema is created on.
	configureConnectionPool(db, config)

	ctx := context.Background()
	err = configureSQLitePerformance(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error configuring SQLite performance: %w", err)
	}

	err = performDatabaseMigration(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	statements := strings.Split(ddl, "-- migrate")
	for _, stmt := range statements {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmedStmt); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmedStmt, err)
		}
	}
	return nil
}

func configureSQLitePerformance(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		name        string
		description string
	}{
		// Increase cache size to 64MB (negative value means KB)
		{"PRAGMA cache_size=-64000", "Set cache size to 64MB"},
		{"PRAGMA temp_store=MEMORY", "Store temporary data in memory"},
	}

	logger := slog.Default().With(slog.String("component", "sqlite_performance"))

	for _, pragma := range pragmas {
		_, err := db.ExecContext(ctx, pragma.name)
		if err != nil {
			logging.LogError(logger, fmt.Sprintf("Failed to set %s", pragma.description), err)
			return fmt.Errorf("failed to execute %s: %w", pragma.name, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	logging.LogOperation(logger, "sqlite_performance_settings_applied",
		slog.Int("pragma_count", len(pragmas)))

	return nil
}

func configureConnectionPool(db *sql.DB, config Config) {
	// each connection to :memory: gets its own separate database
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
}

// feed is the subset of a GTFS dataset the departures queries read,
// already converted to insert parameters.
type feed struct {
	Routes    []CreateRouteParams
	Stops     []CreateStopParams
	Trips     []CreateTripParams
	StopTimes []CreateStopTimeParams
	Warnings  int
}

func (f *feed) counts() map[string]int {
	return map[string]int{
		"routes":     len(f.Routes),
		"stops":      len(f.Stops),
		"trips":      len(f.Trips),
		"stop_times": len(f.StopTimes),
	}
}

func (c *Client) processAndStoreGTFSDataWithSource(ctx context.Context, b []byte, source string) error {
	hash := sha256.Sum256(b)

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return fmt.Errorf("parse GTFS feed: %w", err)
	}

	f, err := feedFromStatic(staticData)
	if err != nil {
		return err
	}

	return c.storeFeed(ctx, f, hex.EncodeToString(hash[:]), source)
}

func feedFromStatic(staticData *gtfs.Static) (*feed, error) {
	f := &feed{Warnings: len(staticData.Warnings)}

	singleAgencyID := ""
	if len(staticData.Agencies) == 1 {
		singleAgencyID = staticData.Agencies[0].Id
	}

	for _, r := range staticData.Routes {
		agencyID := singleAgencyID
		if r.Agency != nil && r.Agency.Id != "" {
			agencyID = r.Agency.Id
		}
		f.Routes = append(f.Routes, CreateRouteParams{
			ID:        r.Id,
			AgencyID:  toNullString(agencyID),
			ShortName: toNullString(r.ShortName),
			LongName:  toNullString(r.LongName),
			Type:      sql.NullInt64{Int64: int64(r.Type), Valid: true},
		})
	}

	for _, s := range staticData.Stops {
		// GTFS allows generic nodes and boarding areas without coordinates;
		// they can never be near anything.
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		f.Stops = append(f.Stops, CreateStopParams{
			ID:   s.Id,
			Code: toNullString(s.Code),
			Name: toNullString(s.Name),
			Lat:  *s.Latitude,
			Lon:  *s.Longitude,
		})
	}

	for _, t := range staticData.Trips {
		var routeID, serviceID string
		if t.Route != nil {
			routeID = t.Route.Id
		}
		if t.Service != nil {
			serviceID = t.Service.Id
		}
		f.Trips = append(f.Trips, CreateTripParams{
			ID:           t.ID,
			RouteID:      routeID,
			ServiceID:    toNullString(serviceID),
			TripHeadsign: toNullString(t.Headsign),
		})

		for _, st := range t.StopTimes {
			if st.Stop == nil {
				continue
			}
			f.StopTimes = append(f.StopTimes, CreateStopTimeParams{
				TripID:        t.ID,
				ArrivalTime:   FormatScheduleTime(st.ArrivalTime),
				DepartureTime: FormatScheduleTime(st.DepartureTime),
				StopID:        st.Stop.Id,
				StopSequence:  int64(st.StopSequence),
			})
		}
	}

	return f, nil
}

// storeFeed replaces the stored dataset with f unless the same source with
// the same hash has already been imported. The replacement happens in one
// transaction, so readers never see a half-imported feed.
func (c *Client) storeFeed(ctx context.Context, f *feed, hashStr, source string) error {
	logger := slog.Default().With(slog.String("component", "gtfs_importer"))

	startTime := time.Now()
	defer func() {
		c.importRuntime = time.Since(startTime)

		logging.LogOperation(logger, "gtfs_data_import_completed",
			slog.Duration("duration", c.importRuntime),
			slog.String("source", source))
	}()

	existingMetadata, err := c.Queries.GetImportMetadata(ctx)
	switch {
	case err == nil:
		if existingMetadata.FileHash == hashStr && existingMetadata.FileSource == source {
			logging.LogOperation(logger, "gtfs_data_unchanged_skipping_import",
				slog.String("hash", shortHash(hashStr)))
			return nil
		}
		logging.LogOperation(logger, "gtfs_data_changed_reimporting",
			slog.String("old_hash", shortHash(existingMetadata.FileHash)),
			slog.String("new_hash", shortHash(hashStr)))
	case errors.Is(err, sql.ErrNoRows):
		// first import
	default:
		return fmt.Errorf("error checking import metadata: %w", err)
	}

	logging.LogOperation(logger, "starting_database_import",
		slog.Int("routes", len(f.Routes)),
		slog.Int("stops", len(f.Stops)),
		slog.Int("trips", len(f.Trips)),
		slog.Int("stop_times", len(f.StopTimes)),
		slog.Int("warnings", f.Warnings))

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "store_feed")

	qtx := c.Queries.WithTx(tx)

	if err := clearAllGTFSData(ctx, qtx); err != nil {
		return fmt.Errorf("error clearing existing GTFS data: %w", err)
	}

	for _, route := range f.Routes {
		if err := qtx.CreateRoute(ctx, route); err != nil {
			return fmt.Errorf("unable to create route %s: %w", route.ID, err)
		}
	}

	if err := c.bulkInsertStops(ctx, tx, f.Stops); err != nil {
		return fmt.Errorf("unable to create stops: %w", err)
	}
	if err := c.bulkInsertTrips(ctx, tx, f.Trips); err != nil {
		return fmt.Errorf("unable to create trips: %w", err)
	}
	if err := c.bulkInsertStopTimes(ctx, tx, f.StopTimes); err != nil {
		return fmt.Errorf("unable to create stop times: %w", err)
	}

	logging.LogOperation(logger, "updating_import_metadata",
		slog.String("hash", shortHash(hashStr)),
		slog.String("source", source))

	err = qtx.UpsertImportMetadata(ctx, UpsertImportMetadataParams{
		FileHash:   hashStr,
		ImportTime: time.Now().Unix(),
		FileSource: source,
	})
	if err != nil {
		logging.LogError(logger, "Error updating import metadata", err)
		return fmt.Errorf("error updating import metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	counts, err := c.TableCounts()
	if err != nil {
		logging.LogError(logger, "Error getting table counts", err)
		return fmt.Errorf("failed to get table counts: %w", err)
	}
	expected := f.counts()
	for table, want := range expected {
		if counts[table] != want {
			logger.Warn("table count differs from feed",
				slog.String("table", table),
				slog.Int("stored", counts[table]),
				slog.Int("feed", want))
		}
	}

	return nil
}

// clearAllGTFSData deletes dependents before the rows they reference.
func clearAllGTFSData(ctx context.Context, q *Queries) error {
	if err := q.ClearStopTimes(ctx); err != nil {
		return fmt.Errorf("error clearing stop_times: %w", err)
	}
	if err := q.ClearTrips(ctx); err != nil {
		return fmt.Errorf("error clearing trips: %w", err)
	}
	if err := q.ClearStops(ctx); err != nil {
		return fmt.Errorf("error clearing stops: %w", err)
	}
	if err := q.ClearRoutes(ctx); err != nil {
		return fmt.Errorf("error clearing routes: %w", err)
	}
	return nil
}

func (c *Client) bulkInsertStops(ctx context.Context, tx *sql.Tx, stops []CreateStopParams) error {
	rows := make([][]interface{}, 0, len(stops))
	for _, s := range stops {
		rows = append(rows, []interface{}{s.ID, s.Code, s.Name, s.Lat, s.Lon})
	}
	return c.bulkInsert(ctx, tx, "INSERT OR REPLACE INTO stops (stop_id, stop_code, stop_name, stop_lat, stop_lon) VALUES ", 5, rows)
}

func (c *Client) bulkInsertTrips(ctx context.Context, tx *sql.Tx, trips []CreateTripParams) error {
	rows := make([][]interface{}, 0, len(trips))
	for _, t := range trips {
		rows = append(rows, []interface{}{t.ID, t.RouteID, t.ServiceID, t.TripHeadsign})
	}
	return c.bulkInsert(ctx, tx, "INSERT OR REPLACE INTO trips (trip_id, route_id, service_id, trip_headsign) VALUES ", 4, rows)
}

func (c *Client) bulkInsertStopTimes(ctx context.Context, tx *sql.Tx, stopTimes []CreateStopTimeParams) error {
	rows := make([][]interface{}, 0, len(stopTimes))
	for _, st := range stopTimes {
		rows = append(rows, []interface{}{st.TripID, st.ArrivalTime, st.DepartureTime, st.StopID, st.StopSequence})
	}
	return c.bulkInsert(ctx, tx, "INSERT OR REPLACE INTO stop_times (trip_id, arrival_time, departure_time, stop_id, stop_sequence) VALUES ", 5, rows)
}

// bulkInsert writes rows with multi-row INSERT statements of at most
// BulkInsertBatchSize rows. Values are always bound as placeholders.
func (c *Client) bulkInsert(ctx context.Context, tx *sql.Tx, baseQuery string, columns int, rows [][]interface{}) error {
	logger := slog.Default().With(slog.String("component", "bulk_insert"))

	batchSize := c.config.GetBulkInsertBatchSize()
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", columns), ", ") + ")"

	for start := 0; start < len(rows); start += batchSize {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		var query strings.Builder
		query.WriteString(baseQuery)
		args := make([]interface{}, 0, len(batch)*columns)
		for j, row := range batch {
			if j > 0 {
				query.WriteString(", ")
			}
			query.WriteString(placeholder)
			args = append(args, row...)
		}

		if _, err := tx.ExecContext(ctx, query.String(), args...); err != nil {
			return err
		}

		if end%100000 == 0 || end == len(rows) {
			logging.LogOperation(logger, "bulk_insert_progress",
				slog.Int("inserted", end),
				slog.Int("total", len(rows)))
		}
	}

	return nil
}

// FormatScheduleTime renders an offset from the start of the service day as
// zero-padded HH:MM:SS. Hours past 23 are kept, as GTFS allows.
func FormatScheduleTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// NormalizeScheduleTime pads a GTFS H:MM:SS time to HH:MM:SS so that stored
// times sort lexically in time order. An empty value stays empty.
func NormalizeScheduleTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid schedule time %q", s)
	}
	var values [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return "", fmt.Errorf("invalid schedule time %q", s)
		}
		values[i] = v
	}
	if values[1] > 59 || values[2] > 59 {
		return "", fmt.Errorf("invalid schedule time %q", s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", values[0], values[1], values[2]), nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

func toNullString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}
