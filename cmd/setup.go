package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/roster/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = r.config
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.Path, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	} else {
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	version, applied, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	if !applied {
		return r.writePlain("✓ Database %s has no migrations applied\n", config.Database.Path)
	}
	return r.writePlain("✓ Database %s at schema version %d\n", config.Database.Path, version)
}

// SetupConfig writes the default configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	r.logger.Info("config file created", "path", configPath)
	return r.writePlain("✓ Wrote %s\nSet api.base_url and api.token before syncing.\n", configPath)
}
