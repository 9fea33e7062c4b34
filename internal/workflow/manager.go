package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"focal/internal/config"
	"focal/internal/logging"
	"focal/internal/queue"
	"focal/internal/stage"
)

// Manager drives queue processing with a bounded pool of workers. Each worker
// claims one job at a time, so total concurrent jobs never exceed the
// configured limit.
type Manager struct {
	cfg     *config.Config
	store   *queue.Store
	logger  *slog.Logger
	handler stage.Handler

	workers      int
	pollInterval time.Duration
	errorRetry   time.Duration
	heartbeat    *HeartbeatMonitor

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager around the processing stage.
func NewManager(cfg *config.Config, store *queue.Store, handler stage.Handler, logger *slog.Logger) *Manager {
	workers := cfg.Processing.MaxConcurrentJobs
	if workers <= 0 {
		workers = 1
	}
	poll := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}
	errorRetry := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	if errorRetry <= 0 {
		errorRetry = poll
	}

	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		handler:      handler,
		workers:      workers,
		pollInterval: poll,
		errorRetry:   errorRetry,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// Start launches the worker pool.
func (m *Manager) Start(ctx context.Context) error {
	if m == nil {
		return errors.New("workflow manager unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("workflow already running")
	}
	if m.handler == nil {
		return errors.New("processing stage not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(m.workers)
	for i := 0; i < m.workers; i++ {
		go m.runWorker(runCtx, i)
	}
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to unwind.
func (m *Manager) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// LastError returns the most recent worker error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

// Health reports stage readiness, folding in queue database availability.
func (m *Manager) Health(ctx context.Context) stage.Health {
	if m == nil || m.handler == nil {
		return stage.Unhealthy("workflow", "processing stage not configured")
	}
	if _, err := m.store.Health(ctx); err != nil {
		return stage.Unhealthy("workflow", "queue database unavailable: "+err.Error())
	}
	return m.handler.HealthCheck(ctx)
}
