package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

type jobView struct {
	ID           int64      `json:"id"`
	SourceURL    string     `json:"source_url"`
	Title        string     `json:"title,omitempty"`
	Status       string     `json:"status"`
	Progress     float64    `json:"progress_percent"`
	Duration     float64    `json:"duration_seconds,omitempty"`
	Language     string     `json:"language,omitempty"`
	Publish      bool       `json:"publish_enabled"`
	ErrorMessage string     `json:"error_message,omitempty"`
	FailureCause string     `json:"failure_cause,omitempty"`
	Segments     int        `json:"segments"`
	Clips        []clipView `json:"clips,omitempty"`
}

type clipView struct {
	ID           int64   `json:"id"`
	Seq          int     `json:"seq"`
	Title        string  `json:"title,omitempty"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Score        float64 `json:"score"`
	OutputPath   string  `json:"output_path,omitempty"`
	RenderError  string  `json:"render_error,omitempty"`
	PublishState string  `json:"publish_state"`
	PublishedURL string  `json:"published_url,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <jobID>",
		Short: "Show detailed status for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				job, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}

				if asJSON {
					return writeJobJSON(cmd, store, job)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				for _, line := range renderSectionHeader(fmt.Sprintf("Job #%d", job.ID), colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Source", statusInfo, job.SourceURL, colorize))
				if job.Title != "" {
					fmt.Fprintln(out, renderStatusLine("Title", statusInfo, job.Title, colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Status", statusKindForJob(job), string(job.Status), colorize))
				if job.IsProcessing() {
					fmt.Fprintln(out, renderStatusLine("Progress", statusInfo,
						fmt.Sprintf("%.0f%% %s", job.ProgressPercent, job.ProgressMessage), colorize))
				}
				if job.DurationSeconds > 0 {
					fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, formatSeconds(job.DurationSeconds), colorize))
				}
				if job.Language != "" {
					fmt.Fprintln(out, renderStatusLine("Language", statusInfo, job.Language, colorize))
				}
				fmt.Fprintln(out, renderStatusLine("Publish", statusInfo, yesNo(job.PublishEnabled), colorize))
				if job.Status == queue.StatusFailed {
					message := job.ErrorMessage
					if job.FailureCause != "" {
						message = fmt.Sprintf("%s: %s", job.FailureCause, job.ErrorMessage)
					}
					fmt.Fprintln(out, renderStatusLine("Error", statusError, message, colorize))
				}

				segments, err := store.SegmentsForJob(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				if len(segments) > 0 {
					fmt.Fprintln(out, renderStatusLine("Segments", statusInfo, strconv.Itoa(len(segments)), colorize))
				}

				clips, err := store.ClipsForJob(cmd.Context(), job.ID)
				if err != nil {
					return err
				}
				if len(clips) == 0 {
					return nil
				}

				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Clips", colorize) {
					fmt.Fprintln(out, line)
				}
				rows := make([][]string, 0, len(clips))
				for _, clip := range clips {
					rows = append(rows, []string{
						fmt.Sprintf("%d", clip.Seq),
						truncate(clip.Title, 40),
						fmt.Sprintf("%s - %s", formatSeconds(clip.StartSeconds), formatSeconds(clip.EndSeconds)),
						fmt.Sprintf("%.2f", clip.Score),
						clipState(clip),
					})
				}
				table := renderTable(
					[]string{"#", "Title", "Window", "Score", "State"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func writeJobJSON(cmd *cobra.Command, store *queue.Store, job *queue.Job) error {
	segments, err := store.SegmentsForJob(cmd.Context(), job.ID)
	if err != nil {
		return err
	}
	clips, err := store.ClipsForJob(cmd.Context(), job.ID)
	if err != nil {
		return err
	}

	view := jobView{
		ID:           job.ID,
		SourceURL:    job.SourceURL,
		Title:        job.Title,
		Status:       string(job.Status),
		Progress:     job.ProgressPercent,
		Duration:     job.DurationSeconds,
		Language:     job.Language,
		Publish:      job.PublishEnabled,
		ErrorMessage: job.ErrorMessage,
		FailureCause: job.FailureCause,
		Segments:     len(segments),
	}
	for _, clip := range clips {
		view.Clips = append(view.Clips, clipView{
			ID:           clip.ID,
			Seq:          clip.Seq,
			Title:        clip.Title,
			StartSeconds: clip.StartSeconds,
			EndSeconds:   clip.EndSeconds,
			Score:        clip.Score,
			OutputPath:   clip.OutputPath,
			RenderError:  clip.RenderError,
			PublishState: string(clip.PublishState),
			PublishedURL: clip.PublishedURL,
		})
	}
	return writeJSON(cmd, view)
}

func statusKindForJob(job *queue.Job) statusKind {
	switch job.Status {
	case queue.StatusCompleted:
		return statusOK
	case queue.StatusFailed:
		return statusError
	default:
		return statusInfo
	}
}

func clipState(clip *queue.Clip) string {
	if clip.RenderError != "" {
		return "render failed"
	}
	if clip.OutputPath == "" {
		return "pending"
	}
	switch clip.PublishState {
	case queue.PublishStatePublished:
		if clip.PublishedURL != "" {
			return "published " + clip.PublishedURL
		}
		return "published"
	case queue.PublishStateFailed:
		return "publish failed"
	default:
		return "rendered"
	}
}

func formatSeconds(value float64) string {
	total := int(value)
	minutes := total / 60
	seconds := total % 60
	if minutes >= 60 {
		return fmt.Sprintf("%d:%02d:%02d", minutes/60, minutes%60, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
