package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(listStatuses))
			for _, value := range listStatuses {
				status, ok := queue.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				var jobs []*queue.Job
				var err error
				if len(statuses) == 0 && limit > 0 {
					jobs, err = store.ListRecent(cmd.Context(), limit)
				} else {
					jobs, err = store.List(cmd.Context(), statuses...)
				}
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					rows = append(rows, []string{
						fmt.Sprintf("%d", job.ID),
						jobTitle(job),
						string(job.Status),
						formatProgress(job),
						job.CreatedAt.Local().Format(time.RFC3339),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Progress", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the most recent N jobs")
	return cmd
}

func jobTitle(job *queue.Job) string {
	if title := strings.TrimSpace(job.Title); title != "" {
		return truncate(title, 48)
	}
	return truncate(job.SourceURL, 48)
}

func formatProgress(job *queue.Job) string {
	switch job.Status {
	case queue.StatusFailed:
		if job.FailureCause != "" {
			return job.FailureCause
		}
		return "failed"
	case queue.StatusCompleted:
		return "100%"
	case queue.StatusPending:
		return "-"
	default:
		return fmt.Sprintf("%.0f%%", job.ProgressPercent)
	}
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 1 {
		return value[:max]
	}
	return value[:max-1] + "…"
}
