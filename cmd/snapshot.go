package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/roster/internal/formatter"
	"github.com/desertthunder/roster/internal/repositories"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/snapshot"
)

// SnapshotShow lists the session's snapshots, or prints one collection's cached list.
func (r *Runner) SnapshotShow(ctx context.Context, cmd *cli.Command) error {
	store, err := r.store()
	if err != nil {
		return err
	}

	name := cmd.String("collection")
	if name == "" {
		return r.showEntries(ctx, store)
	}

	snap, ok, err := snapshot.Load(ctx, store, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s in session %s", shared.ErrSnapshotNotFound, name, store.Session())
	}

	next := "end of list"
	if snap.HasMore() {
		next = *snap.NextPageToken
	}
	r.writePlain("Session: %s\n", store.Session())
	r.writePlain("Next page: %s\n\n", next)

	title := fmt.Sprintf("%s (%d cached)", name, len(snap.Records))
	return formatter.Write(r.output, formatter.FormatText, title, snap.Records, formatter.Columns(name, snap.Records))
}

func (r *Runner) showEntries(ctx context.Context, store *repositories.SessionStore) error {
	entries, err := store.Entries(ctx)
	if err != nil {
		return err
	}

	r.writePlain("Session: %s\n", store.Session())
	if len(entries) == 0 {
		return r.writePlain("No snapshots.\n")
	}
	for _, e := range entries {
		r.writePlain("  %-16s %8d bytes  rev %-4d %s\n", e.Key, e.Size, e.Revision, e.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

// SnapshotClear removes one collection's snapshot, or ends the session with all of its snapshots.
func (r *Runner) SnapshotClear(ctx context.Context, cmd *cli.Command) error {
	store, err := r.store()
	if err != nil {
		return err
	}

	if name := cmd.String("collection"); name != "" {
		if err := snapshot.Clear(ctx, store, name); err != nil {
			return err
		}
		r.logger.Info("snapshot cleared", "collection", name, "session", store.Session())
		return r.writePlain("✓ Cleared %s\n", name)
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	if err := repositories.NewSessionRepository(db).End(ctx, store.Session()); err != nil {
		return err
	}
	r.logger.Info("session ended", "session", store.Session())
	return r.writePlain("✓ Cleared every snapshot in session %s\n", store.Session())
}

// SnapshotSessions lists known sessions with their snapshot counts.
func (r *Runner) SnapshotSessions(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	sessions, err := repositories.NewSessionRepository(db).List(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return r.writePlain("No sessions.\n")
	}

	for _, s := range sessions {
		marker := " "
		if s.ID == r.config.Snapshot.Session {
			marker = "*"
		}
		r.writePlain("%s %-20s %3d snapshots  last seen %s\n", marker, s.ID, s.Snapshots, s.LastSeenAt.Format(time.RFC3339))
	}
	return nil
}
