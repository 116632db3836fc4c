package daemon

import (
	"context"
	"testing"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/stage"
	"clipforge/internal/testsupport"
	"clipforge/internal/workflow"
)

type idleHandler struct{}

func (idleHandler) Prepare(context.Context, *queue.Job) error { return nil }

func (idleHandler) Execute(context.Context, *queue.Job) error { return nil }

func (idleHandler) HealthCheck(context.Context) stage.Health { return stage.Healthy("idle") }

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManagerWithHandlers(cfg, store, logging.NewNop(), map[queue.Status]stage.Handler{
		queue.StatusDownloading: idleHandler{},
	})
	d, err := New(cfg, store, logging.NewNop(), manager)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second start should fail")
	}

	status := d.Status(context.Background())
	if !status.Running {
		t.Fatal("status should report running")
	}
	if status.QueueDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("status paths missing: %+v", status)
	}
	if len(status.Stages) == 0 {
		t.Fatal("status should include stage health")
	}

	d.Stop()
	if d.Status(context.Background()).Running {
		t.Fatal("status should report stopped")
	}
}

func TestDaemonRejectsInvalidRetentionSchedule(t *testing.T) {
	d := newTestDaemon(t)
	d.cfg.Retention.Enabled = true
	d.cfg.Retention.Schedule = "not a schedule"

	if err := d.Start(context.Background()); err == nil {
		d.Stop()
		t.Fatal("expected schedule validation error")
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(nil, nil, nil, nil); err == nil {
		t.Fatal("expected dependency error")
	}
}
