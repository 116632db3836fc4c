package main

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database and tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				for _, line := range renderSectionHeader("Queue", colorize) {
					fmt.Fprintln(out, line)
				}
				db, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				if db.Error != "" {
					fmt.Fprintln(out, renderStatusLine("Database", statusError, db.Error, colorize))
				} else if !db.IntegrityCheck || len(db.MissingTables) > 0 {
					detail := "integrity check failed"
					if len(db.MissingTables) > 0 {
						detail = "missing tables: " + strings.Join(db.MissingTables, ", ")
					}
					fmt.Fprintln(out, renderStatusLine("Database", statusError, detail, colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Database", statusOK, db.DBPath, colorize))
				}

				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderStatusLine("Jobs", statusInfo,
					fmt.Sprintf("%d total, %d pending, %d processing, %d failed, %d completed",
						summary.Total, summary.Pending, summary.Processing, summary.Failed, summary.Completed), colorize))

				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Tools", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, binaryStatusLine("yt-dlp", cfg.YtdlpBinary(), colorize))
				fmt.Fprintln(out, binaryStatusLine("ffmpeg", cfg.FFmpegBinary(), colorize))
				fmt.Fprintln(out, binaryStatusLine("ffprobe", cfg.FFprobeBinary(), colorize))
				fmt.Fprintln(out, binaryStatusLine("whisper", cfg.WhisperBinary(), colorize))

				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Credentials", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, credentialStatusLine("Gemini API key", cfg.Gemini.APIKey, "heuristic scoring only", colorize))
				fmt.Fprintln(out, credentialStatusLine("Publish token", cfg.Publish.Token, "publishing unavailable", colorize))
				return nil
			})
		},
	}
}

func binaryStatusLine(label, binary string, colorize bool) string {
	path, err := exec.LookPath(binary)
	if err != nil {
		return renderStatusLine(label, statusError, fmt.Sprintf("%s not found in PATH", binary), colorize)
	}
	return renderStatusLine(label, statusOK, path, colorize)
}

func credentialStatusLine(label, value, fallback string, colorize bool) string {
	if strings.TrimSpace(value) == "" {
		return renderStatusLine(label, statusWarn, "not configured ("+fallback+")", colorize)
	}
	return renderStatusLine(label, statusOK, "configured", colorize)
}
