package processing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"focal/internal/adjust"
	"focal/internal/config"
	"focal/internal/fileutil"
	"focal/internal/imagecodec"
	"focal/internal/logging"
	"focal/internal/preset"
	"focal/internal/queue"
	"focal/internal/services"
	"focal/internal/stage"
)

// Processor applies the configured preset to every file in a job's snapshot.
// It implements stage.Handler; the workflow manager drives it. One Processor
// is shared by all workers, so everything on it past construction is
// read-only except the preset cache behind mu.
type Processor struct {
	cfg     *config.Config
	logger  *slog.Logger
	clock   func() time.Time
	sleep   func(context.Context, time.Duration) error
	develop func(*adjust.Engine, string, string) (string, error)

	mu     sync.Mutex
	preset *preset.Preset
}

// New builds a Processor bound to the daemon configuration.
func New(cfg *config.Config, logger *slog.Logger) *Processor {
	p := &Processor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "processor"),
		clock:  time.Now,
		sleep:  sleepContext,
	}
	p.develop = p.processOnce
	return p
}

// loadPreset parses the preset file on first use and caches it for the
// process lifetime. The cached Preset is immutable and shared read-only
// across jobs.
func (p *Processor) loadPreset() (*preset.Preset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.preset != nil {
		return p.preset, nil
	}
	loaded, err := preset.Load(p.cfg.Paths.PresetPath)
	if err != nil {
		return nil, err
	}
	p.preset = loaded
	return loaded, nil
}

// Prepare validates the preset before any pixels move.
func (p *Processor) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, p.logger)
	job.SetProgress("Processing", "Loading preset", 0)

	if _, err := p.loadPreset(); err != nil {
		return err
	}
	logger.Debug("preset validated", logging.String("preset", p.cfg.Paths.PresetPath))
	return nil
}

// Execute processes every file in the job snapshot. Files fail independently:
// a transient decode problem on one image never aborts its siblings. The job
// itself fails only when no file could be processed.
func (p *Processor) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, p.logger)
	stageStart := p.clock()

	loaded, err := p.loadPreset()
	if err != nil {
		return err
	}
	engine := adjust.NewEngine(loaded, logger)

	files, err := job.Files()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "processing", "decode snapshot",
			"job file snapshot is unreadable", err)
	}
	if len(files) == 0 {
		job.SetProgress("Processing", "No files to process", 100)
		return nil
	}

	outputDir := filepath.Join(job.FolderPath, p.cfg.Output.Folder)
	outcomes := make([]queue.FileOutcome, 0, len(files))
	succeeded := 0

	for index, file := range files {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrTransient, "processing", "execute", "processing interrupted", err)
		}

		job.SetProgress("Processing",
			fmt.Sprintf("Processing %s (%d/%d)", filepath.Base(file), index+1, len(files)),
			float64(index)/float64(len(files))*100)

		outcome := p.processFile(ctx, engine, file, outputDir, logger)
		outcomes = append(outcomes, outcome)
		if outcome.State == queue.FileStateDone {
			succeeded++
		}
	}

	if err := job.SetOutcomes(outcomes); err != nil {
		return err
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.State == queue.FileStateFailed {
			failed++
		}
	}
	logger.Info("folder processed",
		logging.String(logging.FieldFile, job.FolderPath),
		logging.Int("files", len(files)),
		logging.Int("succeeded", succeeded),
		logging.Int("failed", failed),
		logging.Duration("elapsed", p.clock().Sub(stageStart)))

	if succeeded == 0 && failed > 0 {
		return services.Wrap(services.ErrDecode, "processing", "execute",
			fmt.Sprintf("all %d files failed", failed), nil)
	}

	job.SetProgress("Processing", fmt.Sprintf("Processed %d/%d files", succeeded, len(files)), 100)
	return nil
}

// processFile runs decode, adjust, encode for one file with per-file retry.
func (p *Processor) processFile(ctx context.Context, engine *adjust.Engine, file, outputDir string, logger *slog.Logger) queue.FileOutcome {
	outcome := queue.FileOutcome{Path: file}

	ext := strings.ToLower(filepath.Ext(file))
	if _, ok := p.cfg.SupportedExtensions()[ext]; !ok {
		outcome.State = queue.FileStateSkipped
		outcome.Error = "unsupported format " + ext
		logger.Debug("skipping unsupported file", logging.String(logging.FieldFile, file))
		return outcome
	}

	maxAttempts := 1
	if p.cfg.Processing.RetryFailed {
		maxAttempts = p.cfg.Processing.MaxRetries
		if maxAttempts < 1 {
			maxAttempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome.Attempts = attempt
		fileLogger := logger.With(
			logging.String(logging.FieldFile, file),
			logging.Int(logging.FieldAttempt, attempt),
		)

		outputPath, err := p.develop(engine, file, outputDir)
		if err == nil {
			outcome.State = queue.FileStateDone
			outcome.Output = outputPath
			outcome.Error = ""
			fileLogger.Info("file processed", logging.String("output", outputPath))
			return outcome
		}

		lastErr = err
		if !services.Retryable(err) {
			fileLogger.Warn("file failed permanently", logging.Error(err),
				logging.String(logging.FieldErrorKind, services.Kind(err)))
			break
		}
		if attempt < maxAttempts {
			backoff := time.Duration(p.cfg.Processing.RetryBackoffSeconds*attempt) * time.Second
			fileLogger.Warn("file failed, retrying", logging.Error(err), logging.Duration("backoff", backoff))
			if err := p.sleep(ctx, backoff); err != nil {
				break
			}
		} else {
			fileLogger.Warn("file failed after retries", logging.Error(err))
		}
	}

	outcome.State = queue.FileStateFailed
	if lastErr != nil {
		outcome.Error = lastErr.Error()
	}
	return outcome
}

func (p *Processor) processOnce(engine *adjust.Engine, file, outputDir string) (string, error) {
	buf, err := imagecodec.Decode(file)
	if err != nil {
		return "", err
	}

	profile := imagecodec.ParseProfile(p.cfg.Output.ColorProfile)
	if profile != imagecodec.ProfilePreserve {
		buf.Profile = profile
	}
	engine.Apply(buf)

	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	outputPath := fileutil.UniquePath(filepath.Join(outputDir, name+p.cfg.OutputExtension()))

	err = imagecodec.Encode(buf, outputPath, imagecodec.EncodeOptions{
		Format:      p.cfg.Output.Format,
		JPEGQuality: p.cfg.Output.JPEGQuality,
	})
	if err != nil {
		return "", err
	}
	return outputPath, nil
}

// HealthCheck verifies the preset is present and parseable.
func (p *Processor) HealthCheck(ctx context.Context) stage.Health {
	if _, err := p.loadPreset(); err != nil {
		return stage.Unhealthy("processor", err.Error())
	}
	return stage.Healthy("processor")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
