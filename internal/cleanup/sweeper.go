package cleanup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"log/slog"

	"focal/internal/config"
	"focal/internal/logging"
)

// Sweeper deletes files older than the configured age from the cleanup
// folders. It runs independently of job processing and makes no attempt to
// coordinate with it; the age threshold is the only guard.
type Sweeper struct {
	cfg    *config.Config
	logger *slog.Logger

	folders    []string
	interval   time.Duration
	maxAge     time.Duration
	extensions map[string]struct{}
	now        func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewSweeper(cfg *config.Config, logger *slog.Logger) *Sweeper {
	if cfg == nil {
		return nil
	}

	extensions := make(map[string]struct{}, len(cfg.Cleanup.Extensions))
	for _, ext := range cfg.Cleanup.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = struct{}{}
	}

	return &Sweeper{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "cleanup"),
		folders:    cfg.Cleanup.Folders,
		interval:   time.Duration(cfg.Cleanup.IntervalMinutes) * time.Minute,
		maxAge:     time.Duration(cfg.Cleanup.MaxAgeMinutes) * time.Minute,
		extensions: extensions,
		now:        time.Now,
	}
}

// Start launches the sweep loop. Disabled configuration is not an error; the
// sweeper simply never runs.
func (s *Sweeper) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("cleanup sweeper unavailable")
	}
	if !s.cfg.Cleanup.Enabled || len(s.folders) == 0 {
		s.logger.Debug("cleanup disabled or no folders configured")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("cleanup already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(runCtx)

	s.logger.Info("cleanup sweeper started",
		logging.Int("folders", len(s.folders)),
		logging.Duration("interval", s.interval),
		logging.Duration("max_age", s.maxAge),
	)
	return nil
}

func (s *Sweeper) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over every configured folder and returns the number of
// items removed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	deleted := 0
	for _, folder := range s.folders {
		if ctx.Err() != nil {
			return deleted
		}
		info, err := os.Stat(folder)
		if err != nil || !info.IsDir() {
			s.logger.Warn("cleanup folder unavailable", logging.String("folder", folder))
			continue
		}
		deleted += s.sweepFolder(folder)
	}
	if deleted > 0 {
		s.logger.Info("cleanup pass complete",
			logging.Int("deleted", deleted),
			logging.String(logging.FieldEventType, "cleanup_complete"),
		)
	}
	return deleted
}

func (s *Sweeper) sweepFolder(root string) int {
	cutoff := s.now().Add(-s.maxAge)

	var stale []string
	var staleDirs []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if path == root {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if entry.IsDir() {
			staleDirs = append(staleDirs, path)
			return nil
		}
		if s.matches(path) {
			stale = append(stale, path)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("cleanup walk failed",
			logging.String("folder", root),
			logging.Error(err),
		)
		return 0
	}

	deleted := 0
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("could not delete file",
				logging.String(logging.FieldFile, path),
				logging.Error(err),
			)
			continue
		}
		deleted++
		s.logger.Debug("deleted old file", logging.String(logging.FieldFile, path))
	}

	// Deepest directories first so parents empty out before their turn.
	sort.Slice(staleDirs, func(i, j int) bool {
		return strings.Count(staleDirs[i], string(filepath.Separator)) >
			strings.Count(staleDirs[j], string(filepath.Separator))
	})
	for _, dir := range staleDirs {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			continue
		}
		deleted++
		s.logger.Debug("deleted empty folder", logging.String("folder", dir))
	}
	return deleted
}

// matches reports whether a file falls under the extension allow-list. An
// empty list matches everything.
func (s *Sweeper) matches(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	_, ok := s.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
