package gtfsdb

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"departures.opentransit.org/internal/logging"
)

type routeRecord struct {
	RouteID   string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Type      string `csv:"route_type"`
}

type stopRecord struct {
	StopID string `csv:"stop_id"`
	Code   string `csv:"stop_code"`
	Name   string `csv:"stop_name"`
	Lat    string `csv:"stop_lat"`
	Lon    string `csv:"stop_lon"`
}

type tripRecord struct {
	RouteID   string `csv:"route_id"`
	ServiceID string `csv:"service_id"`
	TripID    string `csv:"trip_id"`
	Headsign  string `csv:"trip_headsign"`
}

type stopTimeRecord struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  string `csv:"stop_sequence"`
}

// feedFiles are read in this order; the hash covers all of them.
var feedFiles = []string{"routes.txt", "stops.txt", "trips.txt", "stop_times.txt"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// gtfsCSVReader tolerates rows with fewer columns than the header, which
// GTFS producers emit for trailing optional fields.
func gtfsCSVReader(in io.Reader) gocsv.CSVReader {
	csvReader := csv.NewReader(in)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true
	return csvReader
}

func (c *Client) importFromDirectory(ctx context.Context, dir string) error {
	contents := make(map[string][]byte, len(feedFiles))
	hasher := sha256.New()
	for _, name := range feedFiles {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) && name == "routes.txt" {
			// routes only carry descriptive columns the queries never read
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		b = bytes.TrimPrefix(b, utf8BOM)
		contents[name] = b
		_, _ = hasher.Write([]byte(name))
		_, _ = hasher.Write(b)
	}

	f, err := feedFromCSV(contents)
	if err != nil {
		return err
	}

	return c.storeFeed(ctx, f, hex.EncodeToString(hasher.Sum(nil)), dir)
}

func feedFromCSV(contents map[string][]byte) (*feed, error) {
	logger := slog.Default().With(slog.String("component", "gtfs_importer"))
	f := &feed{}

	var routes []routeRecord
	if b, ok := contents["routes.txt"]; ok {
		if err := unmarshalCSV(b, &routes); err != nil {
			return nil, fmt.Errorf("decode routes.txt: %w", err)
		}
	}
	for _, r := range routes {
		routeType := sql.NullInt64{}
		if v, err := strconv.ParseInt(strings.TrimSpace(r.Type), 10, 64); err == nil {
			routeType = sql.NullInt64{Int64: v, Valid: true}
		}
		f.Routes = append(f.Routes, CreateRouteParams{
			ID:        r.RouteID,
			AgencyID:  toNullString(r.AgencyID),
			ShortName: toNullString(r.ShortName),
			LongName:  toNullString(r.LongName),
			Type:      routeType,
		})
	}

	var stops []stopRecord
	if err := unmarshalCSV(contents["stops.txt"], &stops); err != nil {
		return nil, fmt.Errorf("decode stops.txt: %w", err)
	}
	skipped := 0
	for _, s := range stops {
		lat, lon, err := parseStoredCoordinates(
			sql.NullString{String: s.Lat, Valid: s.Lat != ""},
			sql.NullString{String: s.Lon, Valid: s.Lon != ""},
		)
		if err != nil {
			skipped++
			f.Warnings++
			continue
		}
		f.Stops = append(f.Stops, CreateStopParams{
			ID:   s.StopID,
			Code: toNullString(s.Code),
			Name: toNullString(s.Name),
			Lat:  lat,
			Lon:  lon,
		})
	}
	logRowsSkipped(logger, "stops", skipped)

	var trips []tripRecord
	if err := unmarshalCSV(contents["trips.txt"], &trips); err != nil {
		return nil, fmt.Errorf("decode trips.txt: %w", err)
	}
	for _, t := range trips {
		f.Trips = append(f.Trips, CreateTripParams{
			ID:           t.TripID,
			RouteID:      t.RouteID,
			ServiceID:    toNullString(t.ServiceID),
			TripHeadsign: toNullString(t.Headsign),
		})
	}

	var stopTimes []stopTimeRecord
	if err := unmarshalCSV(contents["stop_times.txt"], &stopTimes); err != nil {
		return nil, fmt.Errorf("decode stop_times.txt: %w", err)
	}
	skipped = 0
	for _, st := range stopTimes {
		params, err := stopTimeParams(st)
		if err != nil {
			skipped++
			f.Warnings++
			continue
		}
		f.StopTimes = append(f.StopTimes, params)
	}
	logRowsSkipped(logger, "stop_times", skipped)

	return f, nil
}

func stopTimeParams(st stopTimeRecord) (CreateStopTimeParams, error) {
	arrival, err := NormalizeScheduleTime(st.ArrivalTime)
	if err != nil {
		return CreateStopTimeParams{}, err
	}
	departure, err := NormalizeScheduleTime(st.DepartureTime)
	if err != nil {
		return CreateStopTimeParams{}, err
	}
	sequence, err := strconv.ParseInt(strings.TrimSpace(st.StopSequence), 10, 64)
	if err != nil {
		return CreateStopTimeParams{}, fmt.Errorf("invalid stop_sequence %q", st.StopSequence)
	}
	return CreateStopTimeParams{
		TripID:        st.TripID,
		ArrivalTime:   arrival,
		DepartureTime: departure,
		StopID:        st.StopID,
		StopSequence:  sequence,
	}, nil
}

func unmarshalCSV(b []byte, out interface{}) error {
	return gocsv.UnmarshalCSV(gtfsCSVReader(bytes.NewReader(b)), out)
}

func logRowsSkipped(logger *slog.Logger, table string, skipped int) {
	if skipped == 0 {
		return
	}
	logging.LogOperation(logger, "rows_skipped",
		slog.String("table", table),
		slog.Int("count", skipped))
}
