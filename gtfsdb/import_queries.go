package gtfsdb

import (
	"context"
)

const getImportMetadata = `
SELECT file_hash, import_time, file_source
FROM import_metadata
WHERE id = 1
`

func (q *Queries) GetImportMetadata(ctx context.Context) (ImportMetadatum, error) {
	row := q.queryRow(ctx, getImportMetadata)
	var i ImportMetadatum
	err := row.Scan(&i.FileHash, &i.ImportTime, &i.FileSource)
	return i, err
}

const upsertImportMetadata = `
INSERT INTO import_metadata (id, file_hash, import_time, file_source)
VALUES (1, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    file_hash = excluded.file_hash,
    import_time = excluded.import_time,
    file_source = excluded.file_source
`

func (q *Queries) UpsertImportMetadata(ctx context.Context, arg UpsertImportMetadataParams) error {
	_, err := q.exec(ctx, upsertImportMetadata, arg.FileHash, arg.ImportTime, arg.FileSource)
	return err
}

const createRoute = `
INSERT OR REPLACE INTO routes (route_id, agency_id, route_short_name, route_long_name, route_type)
VALUES (?, ?, ?, ?, ?)
`

func (q *Queries) CreateRoute(ctx context.Context, arg CreateRouteParams) error {
	_, err := q.exec(ctx, createRoute,
		arg.ID,
		arg.AgencyID,
		arg.ShortName,
		arg.LongName,
		arg.Type,
	)
	return err
}

const clearStopTimes = `DELETE FROM stop_times`

func (q *Queries) ClearStopTimes(ctx context.Context) error {
	_, err := q.exec(ctx, clearStopTimes)
	return err
}

const clearTrips = `DELETE FROM trips`

func (q *Queries) ClearTrips(ctx context.Context) error {
	_, err := q.exec(ctx, clearTrips)
	return err
}

const clearStops = `DELETE FROM stops`

func (q *Queries) ClearStops(ctx context.Context) error {
	_, err := q.exec(ctx, clearStops)
	return err
}

const clearRoutes = `DELETE FROM routes`

func (q *Queries) ClearRoutes(ctx context.Context) error {
	_, err := q.exec(ctx, clearRoutes)
	return err
}
