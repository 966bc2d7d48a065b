package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/paging"
	"github.com/desertthunder/roster/internal/tasks"
)

var defaultExportCollections = []string{"students", "teachers", "subjects", "results"}

// Export drains several collections and writes each to a file, with a manifest.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.store()
	if err != nil {
		return err
	}

	engine := tasks.NewExportEngine(func(name string) paging.PageFetcher {
		return r.collection(name)
	}, store, r.config.Loader.PagePause, r.logger)

	prog := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range prog {
			switch update.Phase {
			case tasks.ExportStarted:
				r.logger.Debug(update.Message)
			case tasks.ExportFailed:
				r.writePlain("✗ %s\n", update.Message)
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	collections := cmd.StringSlice("collection")
	if len(collections) == 0 {
		collections = defaultExportCollections
	}

	result, err := engine.Export(ctx, prog, collections, tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("dir"),
		NumWorkers: int(cmd.Int("workers")),
		Refresh:    cmd.Bool("refresh"),
	})
	close(prog)
	<-done

	if result == nil {
		return err
	}

	r.writePlain("\n═══════════════════════════════════════\n")
	r.writePlain("Export Complete: %d/%d collections\n", result.Successful, result.Total)
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	for _, res := range result.Results {
		if res.Success {
			r.writePlain("  ✓ %-14s %5d records  %s\n", res.Collection, res.Records, res.File)
		} else {
			r.writePlain("  ✗ %-14s %s\n", res.Collection, res.Error)
		}
	}
	return err
}
