// Command importer loads a GTFS feed into the SQLite database read by the
// API server. The source may be a .zip file, a directory of .txt files or an
// http(s) URL of a .zip feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"departures.opentransit.org/gtfsdb"
	"departures.opentransit.org/internal/appconf"
	"departures.opentransit.org/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fset := flag.NewFlagSet("importer", flag.ContinueOnError)
	fset.SetOutput(stderr)
	dataPath := fset.String("data-path", envOr(appconf.EnvDataPath, "./trips.sqlite"), "Path to the SQLite database to create or update")
	source := fset.String("source", "", "GTFS feed: .zip file, directory of .txt files, or http(s) URL")
	authName := fset.String("auth-header-name", "", "Header name sent when downloading the feed")
	authValue := fset.String("auth-header-value", "", "Header value sent when downloading the feed")
	envName := fset.String("env", envOr(appconf.EnvEnvironment, "development"), "Environment (development|test|production)")
	verbose := fset.Bool("verbose", false, "Enable debug logging")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if *source == "" && fset.NArg() == 1 {
		*source = fset.Arg(0)
	}
	if *source == "" {
		return errors.New("a feed source is required (-source or first argument)")
	}

	env, err := appconf.EnvFlagToEnvironment(*envName)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(stderr, level).With(slog.String("component", "gtfs_importer"))
	slog.SetDefault(logger)

	client, err := gtfsdb.NewClient(gtfsdb.NewConfig(*dataPath, env, *verbose))
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", *dataPath, err)
	}
	defer logging.SafeCloseWithLogging(client, logger, "gtfs_database")

	if isURL(*source) {
		err = client.DownloadAndStore(ctx, *source, *authName, *authValue)
	} else {
		err = client.ImportFromFile(ctx, *source)
	}
	if err != nil {
		return fmt.Errorf("import of %s failed: %w", *source, err)
	}

	counts, err := client.TableCounts()
	if err != nil {
		return fmt.Errorf("failed to count rows: %w", err)
	}
	printCounts(stdout, counts)

	logging.LogOperation(logger, "import_finished",
		slog.String("source", *source),
		slog.Duration("duration", client.ImportRuntime()))
	return nil
}

func printCounts(w io.Writer, counts map[string]int) {
	tables := make([]string, 0, len(counts))
	for table := range counts {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "%-16s %d\n", table, counts[table])
	}
}

func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
