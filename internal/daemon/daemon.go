package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"focal/internal/cleanup"
	"focal/internal/config"
	"focal/internal/logging"
	"focal/internal/processing"
	"focal/internal/queue"
	"focal/internal/stage"
	"focal/internal/watcher"
	"focal/internal/workflow"
)

// Daemon wires the watcher, workflow manager, and cleanup sweeper together
// and enforces single-instance execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store

	watcher  *watcher.Watcher
	workflow *workflow.Manager
	sweeper  *cleanup.Sweeper

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status reports daemon runtime information.
type Status struct {
	Running      bool
	Stage        stage.Health
	Queue        queue.HealthSummary
	QueueDBPath  string
	LockFilePath string
}

// New constructs the daemon and its services.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	processor := processing.New(cfg, logger)
	manager := workflow.NewManager(cfg, store, processor, logger)
	watch := watcher.New(cfg, store, logger)
	sweeper := cleanup.NewSweeper(cfg, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "focal.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		watcher:  watch,
		workflow: manager,
		sweeper:  sweeper,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, recovers jobs stranded by a previous
// crash, and launches every service.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another focal daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)

	if reset, err := d.store.ResetStuckProcessing(runCtx); err != nil {
		d.logger.Warn("could not reset stuck jobs", logging.Error(err))
	} else if reset > 0 {
		d.logger.Info("reset jobs stranded by previous shutdown",
			logging.Int64("count", reset))
	}

	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.watcher.Start(runCtx); err != nil {
		d.workflow.Stop()
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := d.sweeper.Start(runCtx); err != nil {
		d.watcher.Stop()
		d.workflow.Stop()
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start cleanup: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("focal daemon started",
		logging.String("watch_dir", d.cfg.Paths.WatchDir),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop halts admission first so no new jobs arrive, then drains the workers
// and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.watcher.Stop()
	d.sweeper.Stop()
	d.workflow.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("focal daemon stopped")
}

// Close stops the daemon and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon services are active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status summarizes daemon health for operator commands.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
	status.Stage = d.workflow.Health(ctx)
	if summary, err := d.store.Health(ctx); err == nil {
		status.Queue = summary
	}
	return status
}
