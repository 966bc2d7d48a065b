package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/roster/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := os.Getenv("ROSTER_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}

	if err := shared.SetLogLevel(logger, config.Log.Level); err != nil {
		logger.Warn("ignoring log level", "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "roster",
		Usage:    "Browse and sync school records from the command line",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	err := app.Run(context.Background(), os.Args)
	runner.Close()

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
