package gtfsdb

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableCounts(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	client := &Client{DB: db}

	_, err = db.Exec(`
		CREATE TABLE routes (route_id TEXT);
		INSERT INTO routes VALUES ('1');

		CREATE TABLE stops (stop_id TEXT);
		INSERT INTO stops VALUES ('s1'), ('s2');

		-- Create a table NOT in the whitelist to ensure it's ignored
		CREATE TABLE secret_table (id TEXT);
	`)
	require.NoError(t, err)

	counts, err := client.TableCounts()
	require.NoError(t, err)

	assert.Equal(t, 1, counts["routes"], "Should count routes correctly")
	assert.Equal(t, 2, counts["stops"], "Should count stops correctly")

	_, exists := counts["secret_table"]
	assert.False(t, exists, "Should not include tables outside the whitelist")
	_, exists = counts["trips"]
	assert.False(t, exists, "Should not report tables that do not exist")
}

func TestSchemaListsMigratedObjects(t *testing.T) {
	client := newTestClient(t)

	objects, err := client.Schema()
	require.NoError(t, err)

	names := make(map[string]string)
	for _, o := range objects {
		names[o.Name] = o.Type
	}
	assert.Equal(t, "TABLE", names["stops"])
	assert.Equal(t, "TABLE", names["stop_times"])
	assert.Equal(t, "INDEX", names["idx_stop_times_stop_departure"])
}

func TestImportMetadataBeforeFirstImport(t *testing.T) {
	client := newTestClient(t)

	m, err := client.ImportMetadata(context.Background())
	require.NoError(t, err)
	assert.Nil(t, m)
}
