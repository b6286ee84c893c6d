package gtfsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"departures.opentransit.org/internal/logging"
)

// SchemaObject is one entry of sqlite_master.
type SchemaObject struct {
	Type string
	Name string
	SQL  string
}

// Schema lists the tables and indexes the database holds.
func (c *Client) Schema() ([]SchemaObject, error) {
	rows, err := c.DB.Query(`
		SELECT type, name, COALESCE(sql, '')
		FROM sqlite_master
		WHERE type IN ('table', 'index', 'view', 'trigger')
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY type, name
	`)
	if err != nil {
		return nil, err
	}
	defer logging.SafeCloseWithLogging(rows,
		slog.Default().With(slog.String("component", "debugging")),
		"database_rows")

	var objects []SchemaObject
	for rows.Next() {
		var o SchemaObject
		if err := rows.Scan(&o.Type, &o.Name, &o.SQL); err != nil {
			return nil, err
		}
		o.Type = strings.ToUpper(o.Type)
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

// TableCounts returns row counts for the known GTFS tables that exist.
func (c *Client) TableCounts() (map[string]int, error) {
	rows, err := c.DB.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, fmt.Errorf("failed to query table names: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows,
		slog.Default().With(slog.String("component", "debugging")),
		"database_rows")

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts := make(map[string]int)

	// table names are never interpolated into SQL
	tableCountQueries := map[string]string{
		"routes":          "SELECT COUNT(*) FROM routes",
		"stops":           "SELECT COUNT(*) FROM stops",
		"trips":           "SELECT COUNT(*) FROM trips",
		"stop_times":      "SELECT COUNT(*) FROM stop_times",
		"import_metadata": "SELECT COUNT(*) FROM import_metadata",
	}

	for _, table := range tables {
		query, ok := tableCountQueries[table]
		if !ok {
			continue
		}

		var count int
		err := c.DB.QueryRow(query).Scan(&count)
		if err != nil {
			return nil, err
		}
		counts[table] = count
	}

	return counts, nil
}

// ImportMetadata returns the last import record, or nil if nothing has been
// imported yet.
func (c *Client) ImportMetadata(ctx context.Context) (*ImportMetadatum, error) {
	m, err := c.Queries.GetImportMetadata(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
