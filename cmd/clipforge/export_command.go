package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/fileutil"
	"clipforge/internal/queue"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <clipID> <destination>",
		Short: "Copy a rendered clip to a destination path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid clip id %q", args[0])
			}
			dest, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				clip, err := store.GetClipByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if clip == nil {
					return fmt.Errorf("clip %d not found", id)
				}
				if clip.OutputPath == "" {
					return fmt.Errorf("clip %d has not been rendered", id)
				}

				if info, statErr := os.Stat(dest); statErr == nil && info.IsDir() {
					dest = filepath.Join(dest, filepath.Base(clip.OutputPath))
				}
				if err := fileutil.CopyFileVerified(clip.OutputPath, dest); err != nil {
					return fmt.Errorf("export clip %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported clip %d to %s\n", id, dest)
				return nil
			})
		},
	}
}
