package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fluently/internal/api"
	"fluently/internal/client"
	"fluently/internal/deps"
	"fluently/internal/recording"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := fetchStatus(cmd.Context(), ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit status as JSON")
	return cmd
}

// fetchStatus asks the daemon for its status and falls back to inspecting the
// local store when the daemon is not reachable.
func fetchStatus(cmdCtx context.Context, ctx *commandContext) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := ctx.withClient(func(cl *client.Client) error {
		fetched, fetchErr := cl.Status(cmdCtx)
		if fetchErr != nil {
			return fetchErr
		}
		status = fetched
		return nil
	})
	if err == nil {
		return status, nil
	}
	if !client.IsUnavailable(err) {
		return api.DaemonStatus{}, err
	}
	return offlineStatus(cmdCtx, ctx)
}

func offlineStatus(cmdCtx context.Context, ctx *commandContext) (api.DaemonStatus, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return api.DaemonStatus{}, fmt.Errorf("load config: %w", err)
	}

	status := api.DaemonStatus{
		Dependencies: api.FromDependencies(deps.Check(cfg)),
	}

	queryCtx, cancel := context.WithTimeout(cmdCtx, 2*time.Second)
	defer cancel()
	store, err := recording.Open(cfg)
	if err != nil {
		return status, nil
	}
	defer store.Close()
	counts, err := store.CountsByStatus(queryCtx)
	if err == nil {
		status.Queue = api.FromCounts(counts)
	}
	status.DBPath = store.Path()
	return status, nil
}
