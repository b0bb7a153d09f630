package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
)

// Set through -ldflags at release time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sabi", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	catalogPath := fs.String("catalog", "", "platform catalog YAML file (overrides config; empty uses the embedded catalog)")
	adapterMode := fs.String("adapter", "", "platform adapter mode: simulated or digitalocean (overrides config)")
	showVersion := fs.Bool("version", false, "print version and exit")
	_ = fs.Parse(args)

	if *showVersion {
		fmt.Printf("sabi %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	cfg, err := LoadConfig(*configPath)
	if err == nil {
		err = cfg.ApplyFlags(*catalogPath, *adapterMode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger := SetupLogger(cfg)
	logger.Info("starting sabi",
		"version", Version,
		"adapter", cfg.Adapter.Mode,
		"catalog", cfg.Catalog.Path,
	)

	server, err := NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		return exitCode(err)
	}

	if err := server.Start(context.Background()); err != nil {
		logger.Error("server stopped", "error", err)
		return exitCode(err)
	}
	return ExitSuccess
}

// exitCode maps an error from server construction or operation to the
// process exit code.
func exitCode(err error) int {
	var sErr *ServerError
	if errors.As(err, &sErr) {
		return sErr.ExitCode
	}
	return ExitConfigError
}
