package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/roster/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the backend
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := strings.TrimSpace(cmd.StringArg("path"))
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}

	if !cmd.Bool("raw") {
		return fmt.Errorf("%w: %s returned %q", shared.ErrInvalidResponse, path, resp.Headers.Get("Content-Type"))
	}
	if _, err := r.output.Write(resp.Body); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return r.writePlain("\n")
}
