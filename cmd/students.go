package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/roster/internal/models"
	"github.com/desertthunder/roster/internal/paging"
	"github.com/desertthunder/roster/internal/services"
	"github.com/desertthunder/roster/internal/shared"
	"github.com/desertthunder/roster/internal/snapshot"
)

// StudentsAdd creates a student and adds it to the cached list.
func (r *Runner) StudentsAdd(ctx context.Context, cmd *cli.Command) error {
	in, err := studentInput(cmd)
	if err != nil {
		return err
	}

	record, err := r.students().Create(ctx, in)
	if err != nil {
		return err
	}
	r.logger.Info("student created", "id", record.Key(), "name", in.Name)

	r.reconcile(ctx, func(store snapshot.Store) (bool, error) {
		return paging.UpsertSnapshot(ctx, store, services.StudentsCollection, record)
	})
	return r.writeJSON(record, true)
}

// StudentsUpdate replaces a student's details and the cached copy.
func (r *Runner) StudentsUpdate(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")
	in, err := studentInput(cmd)
	if err != nil {
		return err
	}

	record, err := r.students().Update(ctx, id, in)
	if err != nil {
		return err
	}
	r.logger.Info("student updated", "id", id)

	r.reconcile(ctx, func(store snapshot.Store) (bool, error) {
		return paging.UpsertSnapshot(ctx, store, services.StudentsCollection, record)
	})
	return r.writeJSON(record, true)
}

// StudentsDelete deletes a student and drops it from the cached list.
func (r *Runner) StudentsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")
	if err := r.students().Delete(ctx, id); err != nil {
		return err
	}
	r.logger.Info("student deleted", "id", id)

	r.reconcile(ctx, func(store snapshot.Store) (bool, error) {
		return paging.RemoveFromSnapshot(ctx, store, services.StudentsCollection, id)
	})
	return r.writePlain("✓ Deleted student %s\n", id)
}

func (r *Runner) students() *services.StudentService {
	return services.NewStudentService(r.collection(services.StudentsCollection), r.validator)
}

// reconcile applies a completed write to the cached list. The write already succeeded, so
// failures here are only logged.
func (r *Runner) reconcile(ctx context.Context, fn func(snapshot.Store) (bool, error)) {
	store, err := r.store()
	if err != nil {
		r.logger.Warn("cached list not updated", "error", err)
		return
	}

	updated, err := fn(store)
	switch {
	case err != nil:
		r.logger.Warn("cached list not updated", "error", err)
	case updated:
		r.logger.Debug("cached list updated", "collection", services.StudentsCollection)
	default:
		r.logger.Debug("no cached list to update", "collection", services.StudentsCollection)
	}
}

// studentInput builds the payload from --data, then applies individual flags on top.
func studentInput(cmd *cli.Command) (models.StudentInput, error) {
	var in models.StudentInput
	if data := cmd.String("data"); data != "" {
		if err := json.Unmarshal([]byte(data), &in); err != nil {
			return in, fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
		}
	}

	for flag, dst := range map[string]*string{
		"name":   &in.Name,
		"class":  &in.Class,
		"uid":    &in.UID,
		"gender": &in.Gender,
		"email":  &in.Email,
		"phone":  &in.Phone,
	} {
		if v := strings.TrimSpace(cmd.String(flag)); v != "" {
			*dst = v
		}
	}

	for _, g := range cmd.StringSlice("guardian") {
		guardian, err := parseGuardian(g)
		if err != nil {
			return in, err
		}
		in.Guardians = append(in.Guardians, guardian)
	}
	return in, nil
}

// parseGuardian reads name:phone:relationship; trailing parts are optional.
func parseGuardian(s string) (models.Guardian, error) {
	parts := strings.SplitN(s, ":", 3)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" {
		return models.Guardian{}, fmt.Errorf("%w: guardian %q needs a name", shared.ErrInvalidFlag, s)
	}

	g := models.Guardian{Name: parts[0]}
	if len(parts) > 1 {
		g.Phone = parts[1]
	}
	if len(parts) > 2 {
		g.Relationship = parts[2]
	}
	return g, nil
}
