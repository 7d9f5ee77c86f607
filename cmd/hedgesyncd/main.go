package main

import (
	"flag"
	"fmt"
	"os"

	"hedge_sync/internal/bootstrap"
)

var (
	// Version information (set via build flags)
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/hedgesync.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("hedgesyncd version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	app, err := bootstrap.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}

	app.Logger.Info("Starting hedgesyncd",
		"version", version,
		"bridge_url", app.Cfg.Bridge.URL,
		"listen_addr", app.Cfg.Listener.Addr(),
	)

	svc, err := newService(app.Cfg, app.Logger)
	if err != nil {
		app.Logger.Error("Failed to build service", "error", err)
		os.Exit(1)
	}

	if err := app.Run(svc); err != nil {
		os.Exit(1)
	}
}
