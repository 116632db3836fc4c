package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/retention"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Run a retention sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				sweeper := retention.New(store, cfg, logging.NewNop())
				result, err := sweeper.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Removed %d expired jobs, %d clip files, %d orphan files, %d stale scratch dirs\n",
					result.JobsRemoved, result.FilesRemoved, result.OrphansRemoved, result.ScratchRemoved)
				return nil
			})
		},
	}
}
