package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"departures.opentransit.org/internal/appconf"
	"departures.opentransit.org/internal/logging"
)

func main() {
	loaded, err := appconf.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	cfg := loaded.Config

	if loaded.DumpConfig {
		if err := dumpConfigJSON(os.Stdout, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling config to JSON: %v\n", err)
			os.Exit(1)
		}
		return
	}

	coreApp, err := BuildApplication(cfg)
	if err != nil {
		logging.LogError(slog.Default(), "failed to build application", err)
		os.Exit(1)
	}

	srv, api := CreateServer(coreApp, cfg)
	if err := Run(context.Background(), srv, coreApp, api, coreApp.Logger); err != nil {
		logging.LogError(coreApp.Logger, "server stopped with error", err)
		os.Exit(1)
	}
}
