// Package workflow drives claimed jobs through the pipeline stages. A poll
// loop claims pending jobs and hands each to a worker goroutine; the worker
// runs the stage matching the job's status, advances the status on success,
// and repeats until the job reaches a terminal state.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"clipforge/internal/analyzing"
	"clipforge/internal/config"
	"clipforge/internal/downloading"
	"clipforge/internal/editing"
	"clipforge/internal/logging"
	"clipforge/internal/publishing"
	"clipforge/internal/queue"
	"clipforge/internal/stage"
	"clipforge/internal/transcribing"
)

// Manager coordinates queue processing using registered stage handlers.
type Manager struct {
	cfg           *config.Config
	store         *queue.Store
	logger        *slog.Logger
	pollInterval  time.Duration
	retryInterval time.Duration
	heartbeat     *HeartbeatMonitor
	handlers      map[queue.Status]stage.Handler
	workers       *semaphore.Weighted

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group
	lastErr error
}

// NewManager constructs a workflow manager with the standard pipeline stages.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	m := newManagerCore(cfg, store, logger)
	m.handlers = map[queue.Status]stage.Handler{
		queue.StatusDownloading:  downloading.New(store, cfg, logger),
		queue.StatusTranscribing: transcribing.New(store, cfg, logger),
		queue.StatusAnalyzing:    analyzing.New(store, cfg, logger),
		queue.StatusEditing:      editing.New(store, cfg, logger),
		queue.StatusPublishing:   publishing.New(store, cfg, logger),
	}
	return m
}

// NewManagerWithHandlers constructs a manager with custom stage handlers,
// keyed by the processing status each handler serves. Used in tests.
func NewManagerWithHandlers(cfg *config.Config, store *queue.Store, logger *slog.Logger, handlers map[queue.Status]stage.Handler) *Manager {
	m := newManagerCore(cfg, store, logger)
	m.handlers = handlers
	return m
}

func newManagerCore(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	maxJobs := int64(cfg.Workflow.MaxConcurrentJobs)
	if maxJobs <= 0 {
		maxJobs = 1
	}
	return &Manager{
		cfg:           cfg,
		store:         store,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		pollInterval:  secondsOrDefault(cfg.Workflow.QueuePollInterval, 5),
		retryInterval: secondsOrDefault(cfg.Workflow.ErrorRetryInterval, 10),
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			secondsOrDefault(cfg.Workflow.HeartbeatInterval, 10),
			secondsOrDefault(cfg.Workflow.HeartbeatTimeout, 120),
		),
		workers: semaphore.NewWeighted(maxJobs),
	}
}

// Start begins background processing. Jobs left in a processing status by an
// unclean shutdown are returned to pending first.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if len(m.handlers) == 0 {
		return errors.New("workflow stages not configured")
	}

	reset, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		m.logger.Info("reset interrupted jobs to pending", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	m.cancel = cancel
	m.group = group
	m.running = true

	group.Go(func() error {
		m.pollLoop(groupCtx)
		return nil
	})
	return nil
}

// Stop terminates background processing and waits for in-flight jobs.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	group := m.group
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	_ = group.Wait()
}

// Running reports whether the manager is processing.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastError returns the most recent processing error, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// Health runs every stage's health check and returns the results in pipeline order.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	order := []queue.Status{
		queue.StatusDownloading,
		queue.StatusTranscribing,
		queue.StatusAnalyzing,
		queue.StatusEditing,
		queue.StatusPublishing,
	}
	results := make([]stage.Health, 0, len(order))
	for _, status := range order {
		handler, ok := m.handlers[status]
		if !ok {
			continue
		}
		results = append(results, handler.HealthCheck(ctx))
	}
	return results
}

func (m *Manager) pollLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStale(ctx); err != nil {
			m.logger.Warn("reclaim stale jobs failed", logging.Error(err))
		}

		job, err := m.store.NextForStatuses(ctx, queue.StatusPending)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("fetch next pending job failed", logging.Error(err))
			m.sleep(ctx, m.retryInterval)
			continue
		}
		if job == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		if err := m.workers.Acquire(ctx, 1); err != nil {
			return
		}
		claimed, err := m.store.ClaimExecution(ctx, job.ID)
		if err != nil {
			m.workers.Release(1)
			if errors.Is(err, queue.ErrAlreadyClaimed) || errors.Is(err, queue.ErrNotFound) {
				continue
			}
			m.setLastError(err)
			m.logger.Error("claim job failed", logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
			m.sleep(ctx, m.retryInterval)
			continue
		}

		m.group.Go(func() error {
			defer m.workers.Release(1)
			m.runJob(ctx, claimed)
			return nil
		})
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func secondsOrDefault(value int, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}
