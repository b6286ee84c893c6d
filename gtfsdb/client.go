package gtfsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"departures.opentransit.org/internal/logging"
)

// maxFeedDownloadBytes bounds a downloaded zip feed.
const maxFeedDownloadBytes = 200 * 1024 * 1024

// ErrFeedTooLarge is returned when a downloaded feed exceeds maxFeedDownloadBytes.
var ErrFeedTooLarge = errors.New("GTFS feed exceeds download size limit")

// Client owns the schedule database. The API reads through Acquire; the
// importer writes through ImportFromFile and DownloadAndStore.
type Client struct {
	config        Config
	DB            *sql.DB
	Queries       *Queries
	importRuntime time.Duration
}

// NewClient opens (and migrates) the database described by config.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	}
	if config.verbose {
		logging.LogOperation(slog.Default().With(slog.String("component", "gtfsdb")),
			"schedule_schema_ready",
			slog.String("db_path", config.DBPath))
	}

	return &Client{
		config:  config,
		DB:      db,
		Queries: New(db),
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) GetDBPath() string {
	return c.config.DBPath
}

// ImportRuntime reports how long the last import took, including an import
// skipped as unchanged.
func (c *Client) ImportRuntime() time.Duration {
	return c.importRuntime
}

// Acquire takes a dedicated connection from the pool for the lifetime of one
// unit of work. The caller must Close the session to return the connection.
func (c *Client) Acquire(ctx context.Context) (*Session, error) {
	conn, err := c.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return newSession(conn), nil
}

// DownloadAndStore fetches a zip feed over HTTP and imports it. The auth
// header is sent only when both its name and value are set.
func (c *Client) DownloadAndStore(ctx context.Context, url, authHeaderKey, authHeaderValue string) error {
	body, err := fetchFeed(ctx, url, authHeaderKey, authHeaderValue)
	if err != nil {
		return err
	}
	return c.processAndStoreGTFSDataWithSource(ctx, body, url)
}

var feedHTTPClient = &http.Client{
	Timeout: 5 * time.Minute,
	Transport: &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
	},
}

func fetchFeed(ctx context.Context, url, authHeaderKey, authHeaderValue string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	if authHeaderKey != "" && authHeaderValue != "" {
		req.Header.Set(authHeaderKey, authHeaderValue)
	}

	resp, err := feedHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d downloading %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	if len(body) > maxFeedDownloadBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrFeedTooLarge, maxFeedDownloadBytes)
	}
	return body, nil
}

// ImportFromFile imports a local zip feed, or a directory of GTFS text files.
func (c *Client) ImportFromFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return c.importFromDirectory(ctx, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.processAndStoreGTFSDataWithSource(ctx, data, path)
}
