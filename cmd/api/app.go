package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"departures.opentransit.org/gtfsdb"
	"departures.opentransit.org/internal/app"
	"departures.opentransit.org/internal/appconf"
	"departures.opentransit.org/internal/clock"
	"departures.opentransit.org/internal/departures"
	"departures.opentransit.org/internal/logging"
	"departures.opentransit.org/internal/metrics"
	"departures.opentransit.org/internal/restapi"
	"departures.opentransit.org/internal/webui"
)

// dbStatsInterval is how often connection pool gauges are refreshed.
const dbStatsInterval = 15 * time.Second

// BuildApplication opens the schedule database and wires the resolver,
// metrics and clock around it.
func BuildApplication(cfg appconf.Config) (*app.Application, error) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)
	slog.SetDefault(logger)

	client, err := gtfsdb.NewClient(gtfsdb.NewConfig(cfg.DataPath, cfg.Env, cfg.Verbose))
	if err != nil {
		return nil, fmt.Errorf("failed to open schedule database: %w", err)
	}

	m := metrics.NewWithLogger(logger)
	m.StartDBStatsCollector(client.DB, dbStatsInterval)

	counts, err := client.TableCounts()
	if err != nil {
		logging.LogError(logger, "failed to count schedule rows", err)
	} else {
		m.SetScheduleRows(counts)
		if counts["stops"] == 0 {
			logger.Warn("schedule database has no stops; run the importer first",
				slog.String("data_path", cfg.DataPath))
		}
	}

	appClock := createClock(cfg.Env)

	coreApp := &app.Application{
		Config:   cfg,
		Logger:   logger,
		GtfsDB:   client,
		Resolver: departures.NewResolver(departures.FromClient(client), app.PolicyFromConfig(cfg), appClock, m),
		Clock:    appClock,
		Metrics:  m,
	}

	return coreApp, nil
}

// createClock returns RealClock except in the test environment, where the
// FAKETIME variable may pin the current time.
func createClock(env appconf.Environment) clock.Clock {
	if env == appconf.Test {
		return clock.NewEnvironmentClock("FAKETIME")
	}
	return clock.RealClock{}
}

// CreateServer builds the HTTP server with the API and debug routes behind
// the shared middleware chain.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)
	webUI := &webui.WebUI{Application: coreApp}

	mux := http.NewServeMux()
	webUI.SetWebUIRoutes(mux)
	handler := api.SetupAPIRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}

	return srv, api
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down with a 30 second grace period. Dependencies are released from the
// outside in: server, API, metrics, database.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI, logger *slog.Logger) error {
	logger.Info("starting server", "addr", srv.Addr)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		shutdownDependencies(coreApp, api, logger)
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	shutdownDependencies(coreApp, api, logger)
	logger.Info("server exited")
	return nil
}

func shutdownDependencies(coreApp *app.Application, api *restapi.RestAPI, logger *slog.Logger) {
	if api != nil {
		api.Shutdown()
	}
	if coreApp == nil {
		return
	}
	if coreApp.Metrics != nil {
		coreApp.Metrics.Shutdown()
	}
	if coreApp.GtfsDB != nil {
		logging.SafeCloseWithLogging(coreApp.GtfsDB, logger, "gtfs_database")
	}
}

// dumpConfigJSON writes the effective configuration as indented JSON with
// API keys redacted.
func dumpConfigJSON(w io.Writer, cfg appconf.Config) error {
	cfg = cfg.Redacted()
	apiKeys := cfg.ApiKeys
	if apiKeys == nil {
		apiKeys = []string{}
	}
	exemptKeys := cfg.ExemptApiKeys
	if exemptKeys == nil {
		exemptKeys = []string{}
	}

	jsonConfig := map[string]interface{}{
		"port":                            cfg.Port,
		"env":                             cfg.Env.String(),
		"data-path":                       cfg.DataPath,
		"cities":                          cfg.Cities,
		"rate-limit":                      cfg.RateLimit,
		"verbose":                         cfg.Verbose,
		"api-keys":                        apiKeys,
		"exempt-api-keys":                 exemptKeys,
		"cors-origin":                     cfg.CORSOrigin,
		"search-radius-meters":            cfg.SearchRadiusMeters,
		"departures-per-stop":             cfg.DeparturesPerStop,
		"max-destination-distance-meters": cfg.MaxDestinationDistanceMeters,
	}

	output, err := json.MarshalIndent(jsonConfig, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}
