package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/stage"
	"clipforge/internal/testsupport"
)

type scriptedHandler struct {
	name       string
	prepareErr error
	executeErr error
	onExecute  func(ctx context.Context, job *queue.Job) error
	calls      *[]string
}

func (h *scriptedHandler) Prepare(ctx context.Context, job *queue.Job) error {
	return h.prepareErr
}

func (h *scriptedHandler) Execute(ctx context.Context, job *queue.Job) error {
	if h.calls != nil {
		*h.calls = append(*h.calls, h.name)
	}
	if h.onExecute != nil {
		return h.onExecute(ctx, job)
	}
	return h.executeErr
}

func (h *scriptedHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(h.name)
}

func newScriptedManager(t *testing.T) (*Manager, *queue.Store, *config.Config, *[]string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	calls := &[]string{}
	handlers := map[queue.Status]stage.Handler{}
	for _, status := range []queue.Status{
		queue.StatusDownloading,
		queue.StatusTranscribing,
		queue.StatusAnalyzing,
		queue.StatusEditing,
		queue.StatusPublishing,
	} {
		handlers[status] = &scriptedHandler{name: string(status), calls: calls}
	}
	manager := NewManagerWithHandlers(cfg, store, logging.NewNop(), handlers)
	return manager, store, cfg, calls
}

func claimJob(t *testing.T, store *queue.Store, publishEnabled bool) *queue.Job {
	t.Helper()
	job, err := store.NewJob(context.Background(), "https://example.com/watch?v=abc", queue.NewJobOptions{
		PublishEnabled: publishEnabled,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	claimed, err := store.ClaimExecution(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return claimed
}

func TestRunJobCompletesWithoutPublishing(t *testing.T) {
	manager, store, _, calls := newScriptedManager(t)
	job := claimJob(t, store, false)

	manager.runJob(context.Background(), job)

	stored, err := store.GetByID(context.Background(), job.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != queue.StatusCompleted {
		t.Fatalf("status = %s", stored.Status)
	}
	if stored.ProgressPercent != 100 {
		t.Fatalf("progress = %v", stored.ProgressPercent)
	}

	want := []string{"downloading", "transcribing", "analyzing", "editing"}
	if len(*calls) != len(want) {
		t.Fatalf("calls = %v", *calls)
	}
	for i, name := range want {
		if (*calls)[i] != name {
			t.Fatalf("calls = %v", *calls)
		}
	}
}

func TestRunJobRunsPublishingWhenEnabled(t *testing.T) {
	manager, store, _, calls := newScriptedManager(t)
	job := claimJob(t, store, true)

	manager.runJob(context.Background(), job)

	stored, err := store.GetByID(context.Background(), job.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != queue.StatusCompleted {
		t.Fatalf("status = %s", stored.Status)
	}
	if got := (*calls)[len(*calls)-1]; got != "publishing" {
		t.Fatalf("last stage = %q", got)
	}
}

func TestRunJobRecordsFailureCause(t *testing.T) {
	manager, store, _, _ := newScriptedManager(t)
	manager.handlers[queue.StatusAnalyzing] = &scriptedHandler{
		name:       "analyzing",
		executeErr: services.Wrap(services.ErrNoViableSegments, "analyzing", "select", "no segment scored at or above 0.50", nil),
	}
	job := claimJob(t, store, false)

	manager.runJob(context.Background(), job)

	stored, err := store.GetByID(context.Background(), job.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != queue.StatusFailed {
		t.Fatalf("status = %s", stored.Status)
	}
	if stored.FailureCause != "NoViableSegments" {
		t.Fatalf("cause = %q", stored.FailureCause)
	}
	if stored.ErrorMessage == "" {
		t.Fatal("expected error message recorded")
	}
}

func TestRunJobHonoursCancelBetweenStages(t *testing.T) {
	manager, store, _, _ := newScriptedManager(t)
	manager.handlers[queue.StatusDownloading] = &scriptedHandler{
		name: "downloading",
		onExecute: func(ctx context.Context, job *queue.Job) error {
			_, err := store.RequestCancel(ctx, job.ID)
			return err
		},
	}
	job := claimJob(t, store, false)

	manager.runJob(context.Background(), job)

	stored, err := store.GetByID(context.Background(), job.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != queue.StatusFailed {
		t.Fatalf("status = %s", stored.Status)
	}
	if stored.FailureCause != "Cancelled" {
		t.Fatalf("cause = %q", stored.FailureCause)
	}
	if stored.ErrorMessage != queue.UserCancelReason {
		t.Fatalf("message = %q", stored.ErrorMessage)
	}
}

func TestRunJobCleansUpPublishedArtifacts(t *testing.T) {
	manager, store, cfg, _ := newScriptedManager(t)
	job := claimJob(t, store, true)

	mediaDir := filepath.Join(cfg.Paths.MediaDir, "job_1")
	scratchDir := filepath.Join(cfg.Paths.ScratchDir, "job_1")
	publishedPath := filepath.Join(cfg.Paths.ClipsDir, "clip_1_01.mp4")
	keptPath := filepath.Join(cfg.Paths.ClipsDir, "clip_1_02.mp4")
	testsupport.WriteFile(t, filepath.Join(mediaDir, "source.mp4"), 128)
	testsupport.WriteFile(t, filepath.Join(scratchDir, "audio.wav"), 128)
	testsupport.WriteFile(t, publishedPath, 128)
	testsupport.WriteFile(t, keptPath, 128)

	published := &queue.Clip{JobID: job.ID, Seq: 1, StartSeconds: 0, EndSeconds: 30}
	if err := store.InsertClip(context.Background(), published); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateClipRender(context.Background(), published.ID, publishedPath, "", ""); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateClipPublishState(context.Background(), published.ID, queue.PublishStatePublished, "https://example.com/w", ""); err != nil {
		t.Fatal(err)
	}
	unpublished := &queue.Clip{JobID: job.ID, Seq: 2, StartSeconds: 30, EndSeconds: 60}
	if err := store.InsertClip(context.Background(), unpublished); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateClipRender(context.Background(), unpublished.ID, keptPath, "", ""); err != nil {
		t.Fatal(err)
	}

	manager.runJob(context.Background(), job)

	if _, err := os.Stat(mediaDir); !os.IsNotExist(err) {
		t.Fatal("media dir should be removed")
	}
	if _, err := os.Stat(scratchDir); !os.IsNotExist(err) {
		t.Fatal("scratch dir should be removed")
	}
	if _, err := os.Stat(publishedPath); !os.IsNotExist(err) {
		t.Fatal("published clip file should be removed")
	}
	if _, err := os.Stat(keptPath); err != nil {
		t.Fatal("unpublished clip file should be kept")
	}
}

func TestRunJobTimeoutBecomesTimeoutCause(t *testing.T) {
	manager, store, cfg, _ := newScriptedManager(t)
	cfg.Download.TimeoutSeconds = 1
	manager.handlers[queue.StatusDownloading] = &scriptedHandler{
		name: "downloading",
		onExecute: func(ctx context.Context, job *queue.Job) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	job := claimJob(t, store, false)

	manager.runJob(context.Background(), job)

	stored, err := store.GetByID(context.Background(), job.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != queue.StatusFailed {
		t.Fatalf("status = %s", stored.Status)
	}
	if stored.FailureCause != "Timeout" {
		t.Fatalf("cause = %q", stored.FailureCause)
	}
}

func TestStartRequiresHandlers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := NewManagerWithHandlers(cfg, store, logging.NewNop(), nil)

	if err := manager.Start(context.Background()); err == nil {
		t.Fatal("expected error for unconfigured stages")
	}
}

func TestStartAndStop(t *testing.T) {
	manager, _, _, _ := newScriptedManager(t)

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !manager.Running() {
		t.Fatal("manager should be running")
	}
	if err := manager.Start(context.Background()); err == nil {
		t.Fatal("second start should fail")
	}
	manager.Stop()
	if manager.Running() {
		t.Fatal("manager should have stopped")
	}
}

func TestNextStatusOrder(t *testing.T) {
	job := &queue.Job{Status: queue.StatusDownloading}
	order := []queue.Status{}
	for job.Status != queue.StatusCompleted {
		job.Status = nextStatus(job)
		order = append(order, job.Status)
	}
	want := []queue.Status{queue.StatusTranscribing, queue.StatusAnalyzing, queue.StatusEditing, queue.StatusCompleted}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v", order)
		}
	}
}
