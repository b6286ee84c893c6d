package gtfsdb

import "departures.opentransit.org/internal/appconf"

const defaultBulkInsertBatchSize = 500

// Config holds configuration for the database client.
type Config struct {
	DBPath string
	Env    appconf.Environment
	// BulkInsertBatchSize is the number of stop_times rows per INSERT statement.
	BulkInsertBatchSize int
	verbose             bool
}

func NewConfig(dbPath string, env appconf.Environment, verbose bool) Config {
	return Config{
		DBPath:  dbPath,
		Env:     env,
		verbose: verbose,
	}
}

func (c Config) GetBulkInsertBatchSize() int {
	if c.BulkInsertBatchSize <= 0 {
		return defaultBulkInsertBatchSize
	}
	return c.BulkInsertBatchSize
}
