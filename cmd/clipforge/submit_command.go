package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/queue"
	"clipforge/internal/services/ytdlp"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var quality string
	var aspectRatio string
	var publish bool

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a source video URL for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceURL := strings.TrimSpace(args[0])
			if err := ytdlp.ValidateSourceURL(sourceURL); err != nil {
				return err
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				job, err := store.NewJob(cmd.Context(), sourceURL, queue.NewJobOptions{
					Quality:        quality,
					AspectRatio:    aspectRatio,
					PublishEnabled: publish,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job #%d (%s)\n", job.ID, job.SourceURL)
				if publish {
					fmt.Fprintln(cmd.OutOrStdout(), "Clips will be published after rendering")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&quality, "quality", "q", "", "Download quality override (e.g. 1080p)")
	cmd.Flags().StringVarP(&aspectRatio, "aspect-ratio", "a", "", "Clip aspect ratio override (e.g. 9:16)")
	cmd.Flags().BoolVarP(&publish, "publish", "p", false, "Publish rendered clips when the pipeline completes")
	return cmd
}
