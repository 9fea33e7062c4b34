package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"focal/internal/config"
	"focal/internal/fileutil"
	"focal/internal/logging"
	"focal/internal/queue"
)

const flushInterval = 500 * time.Millisecond

// Watcher observes the watch directory for new subfolders and enqueues one
// job per folder once its debounce window passes without further events.
// Folders that exist when the watcher starts are never enqueued.
type Watcher struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger

	watchDir    string
	debounce    time.Duration
	rescanEvery time.Duration
	now         func() time.Time

	mu      sync.Mutex
	running bool
	pending map[string]time.Time
	known   map[string]struct{}

	fs     *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Watcher {
	if cfg == nil || store == nil {
		return nil
	}

	debounce := time.Duration(cfg.Processing.DebounceSeconds) * time.Second
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	rescan := time.Duration(cfg.Workflow.RescanInterval) * time.Second
	if rescan <= 0 {
		rescan = 3 * time.Second
	}

	return &Watcher{
		cfg:         cfg,
		store:       store,
		logger:      logging.NewComponentLogger(logger, "watcher"),
		watchDir:    cfg.Paths.WatchDir,
		debounce:    debounce,
		rescanEvery: rescan,
		now:         time.Now,
		pending:     make(map[string]time.Time),
		known:       make(map[string]struct{}),
	}
}

// Start begins watching. Direct subfolders already present are recorded as
// known so a daemon restart never reprocesses old shoots.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return errors.New("watcher unavailable")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("watcher already running")
	}

	if err := os.MkdirAll(w.watchDir, 0o755); err != nil {
		return err
	}
	if err := w.seedKnownLocked(); err != nil {
		return err
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fs.Add(w.watchDir); err != nil {
		fs.Close()
		return err
	}
	w.fs = fs

	runCtx, cancel := context.WithCancel(ctx)
	w.ctx = runCtx
	w.cancel = cancel
	w.running = true

	w.wg.Add(2)
	go w.eventLoop()
	go w.tickLoop()

	w.logger.Info("folder watcher started",
		logging.String("watch_dir", w.watchDir),
		logging.Duration("debounce", w.debounce),
		logging.String(logging.FieldEventType, "watcher_started"),
	)
	return nil
}

// Stop halts event handling. Pending folders that have not settled are
// dropped; the rescan on the next start picks up nothing because they will
// be seeded as known.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	fs := w.fs
	w.running = false
	w.cancel = nil
	w.fs = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if fs != nil {
		fs.Close()
	}
	w.wg.Wait()
}

// seedKnownLocked marks every existing direct subfolder as already handled.
func (w *Watcher) seedKnownLocked() error {
	entries, err := os.ReadDir(w.watchDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			w.known[filepath.Join(w.watchDir, entry.Name())] = struct{}{}
		}
	}
	return nil
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	w.mu.Lock()
	fs := w.fs
	ctx := w.ctx
	w.mu.Unlock()
	if fs == nil || ctx == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fs.Events:
			if !ok {
				return
			}
			// Rename-into-place surfaces as Create on Linux, so a
			// single check covers both new folders and pasted ones.
			if event.Has(fsnotify.Create) {
				w.handleCreated(event.Name)
			}
		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch event error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watcher_event_error"),
			)
		}
	}
}

func (w *Watcher) tickLoop() {
	defer w.wg.Done()

	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		return
	}

	flush := time.NewTicker(flushInterval)
	defer flush.Stop()
	rescan := time.NewTicker(w.rescanEvery)
	defer rescan.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-flush.C:
			w.flushSettled(ctx)
		case <-rescan.C:
			w.rescan()
		}
	}
}

// handleCreated records a new direct-child folder as pending. Files created
// at the watch root and nested folder events are ignored.
func (w *Watcher) handleCreated(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if filepath.Dir(path) != w.watchDir {
		return
	}
	w.markPending(path)
}

func (w *Watcher) markPending(path string) {
	if filepath.Base(path) == w.cfg.Output.Folder {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, done := w.known[path]; done {
		return
	}
	if _, waiting := w.pending[path]; waiting {
		return
	}
	w.pending[path] = w.now()
	w.logger.Info("new folder detected",
		logging.String("folder", path),
		logging.String(logging.FieldEventType, "folder_detected"),
	)
}

// rescan lists the watch root directly, catching folders whose create event
// was missed. Known and pending folders are left alone.
func (w *Watcher) rescan() {
	entries, err := os.ReadDir(w.watchDir)
	if err != nil {
		w.logger.Warn("rescan failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "watcher_rescan_failed"),
		)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		w.markPending(filepath.Join(w.watchDir, entry.Name()))
	}
}

// flushSettled enqueues every pending folder whose debounce window has
// elapsed. A folder is enqueued at most once per watch session.
func (w *Watcher) flushSettled(ctx context.Context) {
	deadline := w.now().Add(-w.debounce)

	w.mu.Lock()
	var settled []string
	for path, seen := range w.pending {
		if !seen.After(deadline) {
			settled = append(settled, path)
			delete(w.pending, path)
			w.known[path] = struct{}{}
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		w.enqueue(ctx, path)
	}
}

func (w *Watcher) enqueue(ctx context.Context, folder string) {
	logger := w.logger.With(logging.String("folder", folder))

	if !fileutil.DirExists(folder) {
		logger.Warn("settled folder disappeared before enqueue",
			logging.String(logging.FieldEventType, "folder_vanished"),
		)
		return
	}

	if existing, err := w.store.FindActiveByFolder(ctx, folder); err != nil {
		logger.Error("queue lookup failed", logging.Error(err))
		return
	} else if existing != nil {
		logger.Debug("folder already queued",
			logging.Int64(logging.FieldJobID, existing.ID),
		)
		return
	}

	files, err := fileutil.ListFiles(folder, w.cfg.SupportedExtensions())
	if err != nil {
		logger.Error("folder listing failed", logging.Error(err))
		return
	}
	if len(files) == 0 {
		logger.Info("no supported images in folder, skipping",
			logging.String(logging.FieldEventType, "folder_empty"),
		)
		return
	}

	job, err := w.store.NewFolder(ctx, folder, files)
	if err != nil {
		logger.Error("enqueue failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "enqueue_failed"),
		)
		return
	}
	logger.Info("folder queued",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldCorrelationID, job.CorrelationID),
		logging.Int("files", len(files)),
		logging.String(logging.FieldEventType, "folder_queued"),
	)
}
