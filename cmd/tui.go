package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/roster/internal/paging"
	"github.com/desertthunder/roster/internal/services"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/ui"
)

// TUI launches the interactive list view for one collection.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	name := cmd.String("collection")
	if name == "" {
		return fmt.Errorf("%w: collection", shared.ErrMissingArgument)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	if err := shared.SetLogLevel(fileLogger, r.config.Log.Level); err != nil {
		fileLogger.Warn("ignoring log level", "error", err)
	}
	r.SetLogger(fileLogger)

	store, err := r.store()
	if err != nil {
		return err
	}

	updates := make(chan paging.Update, 64)
	loader := r.loader(r.collection(name), store, r.config.Loader.AutoDrain, updates)
	defer loader.Unmount()

	model := ui.NewModel(ctx, loader, updates, ui.Options{
		ScrollDebounce:  r.config.Loader.ScrollDebounce,
		ScrollThreshold: r.config.Loader.ScrollThreshold,
		Graded:          name == services.ResultsCollection,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
