package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/paging"
	"github.com/desertthunder/roster/internal/services"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/snapshot"
)

// syncMode selects how much of a collection a command loads before printing.
type syncMode int

const (
	syncCached syncMode = iota // Cached list, or the first page when nothing is cached
	syncAll                    // Drain every remaining page
	syncNext                   // Exactly one more page
)

// StudentsList prints the students list.
func (r *Runner) StudentsList(ctx context.Context, cmd *cli.Command) error {
	return r.list(ctx, cmd, services.StudentsCollection, false)
}

// StudentsMore fetches and merges the next page of students, then prints the list.
func (r *Runner) StudentsMore(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	records, err := r.sync(ctx, services.StudentsCollection, syncNext)
	if records == nil && err != nil {
		return err
	}
	if rerr := r.render(cmd, services.StudentsCollection, records, format, false); rerr != nil {
		return rerr
	}
	return err
}

// ResultsList prints exam results with percentage and grade columns.
func (r *Runner) ResultsList(ctx context.Context, cmd *cli.Command) error {
	return r.list(ctx, cmd, services.ResultsCollection, true)
}

func (r *Runner) list(ctx context.Context, cmd *cli.Command, name string, grades bool) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if cmd.Bool("refresh") {
		store, err := r.store()
		if err != nil {
			return err
		}
		if err := snapshot.Clear(ctx, store, name); err != nil {
			return err
		}
		r.logger.Info("cleared cached list", "collection", name)
	}

	mode := syncCached
	if cmd.Bool("all") {
		mode = syncAll
	}

	records, err := r.sync(ctx, name, mode)
	if records == nil && err != nil {
		return err
	}
	// A halted load still prints what was merged before the failure.
	if rerr := r.render(cmd, name, records, format, grades); rerr != nil {
		return rerr
	}
	return err
}

// sync mounts a loader for name and loads according to mode. The loader is unmounted before
// returning. On a halt the records merged so far are returned along with the error.
func (r *Runner) sync(ctx context.Context, name string, mode syncMode) ([]models.Record, error) {
	store, err := r.store()
	if err != nil {
		return nil, err
	}

	updates := make(chan paging.Update, 64)
	done := make(chan struct{})
	go r.reportProgress(updates, done)
	defer func() {
		close(updates)
		<-done
	}()

	l := r.loader(r.collection(name), store, mode == syncAll, updates)
	if err := l.Mount(ctx); err != nil {
		return nil, err
	}
	defer l.Unmount()

	switch mode {
	case syncAll:
		if l.Start() {
			l.Wait()
		}
	case syncNext:
		// A complete cached list has no next page; refreshing it is list --refresh.
		if l.Restored() && l.Cursor() == nil {
			return l.Records(), fmt.Errorf("%w: %s", shared.ErrNoMorePages, name)
		}
		if !l.LoadMore(ctx) {
			return l.Records(), fmt.Errorf("%w: %s", shared.ErrNoMorePages, name)
		}
	default:
		if !l.Restored() {
			l.LoadMore(ctx)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Records(), l.Err()
}

// reportProgress logs loader updates until updates is closed.
func (r *Runner) reportProgress(updates <-chan paging.Update, done chan<- struct{}) {
	defer close(done)
	for u := range updates {
		switch u.Phase {
		case paging.PhaseHalted:
			r.logger.Error(u.Message)
		case paging.PhaseFetching:
			r.logger.Debug(u.Message)
		default:
			r.logger.Info(u.Message, "page", u.Page, "records", u.Records)
		}
	}
}

func (r *Runner) render(cmd *cli.Command, name string, records []models.Record, format formatter.Format, grades bool) error {
	if records == nil {
		records = []models.Record{}
	}
	if grades {
		records = formatter.WithGrades(records)
	}
	cols := formatter.Columns(name, records)

	if out := cmd.String("output"); out != "" {
		path, err := formatter.WriteExport(format, out, name, records, cols)
		if err != nil {
			return err
		}
		r.logger.Info("list exported", "path", path, "records", len(records))
		return nil
	}

	title := fmt.Sprintf("%s (%d)", name, len(records))
	return formatter.Write(r.output, format, title, records, cols)
}
