package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	content := fmt.Sprintf(`[paths]
media_dir = %q
clips_dir = %q
scratch_dir = %q
log_dir = %q
`,
		filepath.Join(root, "media"),
		filepath.Join(root, "clips"),
		filepath.Join(root, "scratch"),
		filepath.Join(root, "logs"),
	)
	path := filepath.Join(root, "clipforge.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func openTestStore(t *testing.T, configPath string) (*config.Config, *queue.Store) {
	t.Helper()
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return cfg, store
}

func TestSubmitAndListCommands(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, configPath, "submit", "https://example.com/watch?v=abc", "--publish")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "Queued job #1") {
		t.Fatalf("submit output = %q", out)
	}

	out, err = runCommand(t, configPath, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "pending") || !strings.Contains(out, "example.com") {
		t.Fatalf("list output = %q", out)
	}
}

func TestSubmitRejectsUnsupportedURL(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCommand(t, configPath, "submit", "ftp://example.com/video"); err == nil {
		t.Fatal("expected scheme rejection")
	}
}

func TestStatusCommandShowsJobDetail(t *testing.T) {
	configPath := writeTestConfig(t)
	_, store := openTestStore(t, configPath)

	job, err := store.NewJob(context.Background(), "https://example.com/watch?v=abc", queue.NewJobOptions{})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	clip := &queue.Clip{JobID: job.ID, Seq: 1, Title: "Opening hook", StartSeconds: 5, EndSeconds: 35, Score: 0.82}
	if err := store.InsertClip(context.Background(), clip); err != nil {
		t.Fatalf("insert clip: %v", err)
	}

	out, err := runCommand(t, configPath, "status", fmt.Sprintf("%d", job.ID))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "pending") {
		t.Fatalf("status output missing state: %q", out)
	}
	if !strings.Contains(out, "Opening hook") {
		t.Fatalf("status output missing clip: %q", out)
	}
}

func TestStatusCommandJSONOutput(t *testing.T) {
	configPath := writeTestConfig(t)
	_, store := openTestStore(t, configPath)

	job, err := store.NewJob(context.Background(), "https://example.com/watch?v=abc", queue.NewJobOptions{PublishEnabled: true})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	out, err := runCommand(t, configPath, "status", fmt.Sprintf("%d", job.ID), "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var view struct {
		ID      int64  `json:"id"`
		Status  string `json:"status"`
		Publish bool   `json:"publish_enabled"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("parse json: %v\n%s", err, out)
	}
	if view.ID != job.ID || view.Status != "pending" || !view.Publish {
		t.Fatalf("json view = %+v", view)
	}
}

func TestStatusCommandRejectsUnknownJob(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCommand(t, configPath, "status", "42"); err == nil {
		t.Fatal("expected missing job error")
	}
}

func TestCancelCommandRequestsCancellation(t *testing.T) {
	configPath := writeTestConfig(t)
	_, store := openTestStore(t, configPath)

	job, err := store.NewJob(context.Background(), "https://example.com/watch?v=abc", queue.NewJobOptions{})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	out, err := runCommand(t, configPath, "cancel", fmt.Sprintf("%d", job.ID))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !strings.Contains(out, "Cancellation requested") {
		t.Fatalf("cancel output = %q", out)
	}

	stored, err := store.GetByID(context.Background(), job.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload: %v", err)
	}
	if !stored.CancelRequested {
		t.Fatal("cancel flag should be set")
	}
}

func TestRetryCommandResetsFailedJob(t *testing.T) {
	configPath := writeTestConfig(t)
	_, store := openTestStore(t, configPath)

	job, err := store.NewJob(context.Background(), "https://example.com/watch?v=abc", queue.NewJobOptions{})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := store.UpdateStatus(context.Background(), job.ID, queue.StatusDownloading); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := store.UpdateStatus(context.Background(), job.ID, queue.StatusFailed); err != nil {
		t.Fatalf("fail: %v", err)
	}

	out, err := runCommand(t, configPath, "retry", fmt.Sprintf("%d", job.ID))
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !strings.Contains(out, "reset for retry") {
		t.Fatalf("retry output = %q", out)
	}

	stored, err := store.GetByID(context.Background(), job.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != queue.StatusPending {
		t.Fatalf("status = %s", stored.Status)
	}
}

func TestClearCommandRemovesFailedJobs(t *testing.T) {
	configPath := writeTestConfig(t)
	_, store := openTestStore(t, configPath)

	job, err := store.NewJob(context.Background(), "https://example.com/watch?v=abc", queue.NewJobOptions{})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := store.UpdateStatus(context.Background(), job.ID, queue.StatusDownloading); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := store.UpdateStatus(context.Background(), job.ID, queue.StatusFailed); err != nil {
		t.Fatalf("fail: %v", err)
	}

	out, err := runCommand(t, configPath, "clear", "--failed")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 failed jobs") {
		t.Fatalf("clear output = %q", out)
	}
}

func TestExportCommandCopiesClip(t *testing.T) {
	configPath := writeTestConfig(t)
	cfg, store := openTestStore(t, configPath)

	job, err := store.NewJob(context.Background(), "https://example.com/watch?v=abc", queue.NewJobOptions{})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	source := filepath.Join(cfg.Paths.ClipsDir, "clip_1_01.mp4")
	if err := os.WriteFile(source, []byte("clip payload"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	clip := &queue.Clip{JobID: job.ID, Seq: 1, StartSeconds: 0, EndSeconds: 30}
	if err := store.InsertClip(context.Background(), clip); err != nil {
		t.Fatalf("insert clip: %v", err)
	}
	if err := store.UpdateClipRender(context.Background(), clip.ID, source, "", ""); err != nil {
		t.Fatalf("record render: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "export.mp4")
	out, err := runCommand(t, configPath, "export", fmt.Sprintf("%d", clip.ID), dest)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Exported clip") {
		t.Fatalf("export output = %q", out)
	}
	payload, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(payload) != "clip payload" {
		t.Fatalf("export payload = %q", payload)
	}
}

func TestExportCommandRejectsUnrenderedClip(t *testing.T) {
	configPath := writeTestConfig(t)
	_, store := openTestStore(t, configPath)

	job, err := store.NewJob(context.Background(), "https://example.com/watch?v=abc", queue.NewJobOptions{})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	clip := &queue.Clip{JobID: job.ID, Seq: 1, StartSeconds: 0, EndSeconds: 30}
	if err := store.InsertClip(context.Background(), clip); err != nil {
		t.Fatalf("insert clip: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "export.mp4")
	if _, err := runCommand(t, configPath, "export", fmt.Sprintf("%d", clip.ID), dest); err == nil {
		t.Fatal("expected unrendered clip rejection")
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("init output = %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCommand(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected overwrite rejection")
	}
}

func TestHealthCommandReportsQueue(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, configPath, "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !strings.Contains(out, "Database") || !strings.Contains(out, "Jobs") {
		t.Fatalf("health output = %q", out)
	}
}
