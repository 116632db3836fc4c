package retention

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
)

func backdateJob(t *testing.T, dbPath string, jobID int64, age time.Duration) {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	stamp := time.Now().UTC().Add(-age).Format(time.RFC3339Nano)
	if _, err := db.Exec(`UPDATE jobs SET updated_at = ? WHERE id = ?`, stamp, jobID); err != nil {
		t.Fatalf("backdate job: %v", err)
	}
}

func completeJob(t *testing.T, store *queue.Store, jobID int64) {
	t.Helper()
	ctx := context.Background()
	for _, status := range []queue.Status{
		queue.StatusDownloading,
		queue.StatusTranscribing,
		queue.StatusAnalyzing,
		queue.StatusEditing,
		queue.StatusCompleted,
	} {
		if err := store.UpdateStatus(ctx, jobID, status); err != nil {
			t.Fatalf("advance to %s: %v", status, err)
		}
	}
}

func TestSweepRemovesExpiredCompletedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Retention.Days = 7
	store := testsupport.MustOpenStore(t, cfg)
	sweeper := New(store, cfg, logging.NewNop())
	ctx := context.Background()

	old := testsupport.NewJob(t, store, "https://example.com/old")
	completeJob(t, store, old.ID)
	clipPath := filepath.Join(cfg.Paths.ClipsDir, "clip_old.mp4")
	testsupport.WriteFile(t, clipPath, 64)
	clip := &queue.Clip{JobID: old.ID, Seq: 1, StartSeconds: 0, EndSeconds: 30}
	if err := store.InsertClip(ctx, clip); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateClipRender(ctx, clip.ID, clipPath, "", ""); err != nil {
		t.Fatal(err)
	}
	backdateJob(t, store.Path(), old.ID, 30*24*time.Hour)

	fresh := testsupport.NewJob(t, store, "https://example.com/fresh")
	completeJob(t, store, fresh.ID)

	result, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.JobsRemoved != 1 {
		t.Fatalf("jobs removed = %d", result.JobsRemoved)
	}
	if result.FilesRemoved != 1 {
		t.Fatalf("files removed = %d", result.FilesRemoved)
	}
	if _, err := os.Stat(clipPath); !os.IsNotExist(err) {
		t.Fatal("expired clip file should be gone")
	}

	if job, err := store.GetByID(ctx, old.ID); err != nil || job != nil {
		t.Fatalf("expired job should be gone: %v %v", job, err)
	}
	if job, err := store.GetByID(ctx, fresh.ID); err != nil || job == nil {
		t.Fatalf("fresh job should remain: %v", err)
	}
}

func TestSweepRemovesOrphanClipFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Retention.Days = 0
	store := testsupport.MustOpenStore(t, cfg)
	sweeper := New(store, cfg, logging.NewNop())
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "https://example.com/watch")
	tracked := filepath.Join(cfg.Paths.ClipsDir, "clip_1_01.mp4")
	orphan := filepath.Join(cfg.Paths.ClipsDir, "leftover.mp4")
	testsupport.WriteFile(t, tracked, 64)
	testsupport.WriteFile(t, orphan, 64)
	clip := &queue.Clip{JobID: job.ID, Seq: 1, StartSeconds: 0, EndSeconds: 30}
	if err := store.InsertClip(ctx, clip); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateClipRender(ctx, clip.ID, tracked, "", ""); err != nil {
		t.Fatal(err)
	}

	result, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.OrphansRemoved != 1 {
		t.Fatalf("orphans removed = %d", result.OrphansRemoved)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatal("orphan should be gone")
	}
	if _, err := os.Stat(tracked); err != nil {
		t.Fatal("tracked clip should remain")
	}
}

func TestSweepRemovesScratchForDeletedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Retention.Days = 0
	store := testsupport.MustOpenStore(t, cfg)
	sweeper := New(store, cfg, logging.NewNop())
	ctx := context.Background()

	live := testsupport.NewJob(t, store, "https://example.com/watch")
	liveScratch := filepath.Join(cfg.Paths.ScratchDir, fmt.Sprintf("job_%d", live.ID))
	deadScratch := filepath.Join(cfg.Paths.ScratchDir, "job_99")
	testsupport.WriteFile(t, filepath.Join(liveScratch, "audio.wav"), 64)
	testsupport.WriteFile(t, filepath.Join(deadScratch, "audio.wav"), 64)

	result, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.ScratchRemoved != 1 {
		t.Fatalf("scratch removed = %d", result.ScratchRemoved)
	}
	if _, err := os.Stat(deadScratch); !os.IsNotExist(err) {
		t.Fatal("dead scratch should be gone")
	}
	if _, err := os.Stat(liveScratch); err != nil {
		t.Fatal("live scratch should remain")
	}
}
