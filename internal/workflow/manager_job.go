package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"focal/internal/logging"
	"focal/internal/queue"
	"focal/internal/services"
)

const stageName = "processing"

func (m *Manager) processJob(ctx context.Context, workerLogger *slog.Logger, job *queue.Job) {
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithStage(jobCtx, stageName)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())

	logger := logging.WithContext(jobCtx, workerLogger).With(
		logging.String("folder", job.FolderPath),
	)

	start := time.Now()
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
	)

	if err := m.handler.Prepare(jobCtx, job); err != nil {
		m.handleJobFailure(jobCtx, logger, job, err)
		return
	}
	if err := m.store.Update(jobCtx, job); err != nil {
		m.setLastError(err)
		logger.Error("failed to persist job preparation", logging.Error(err))
		return
	}

	execErr := m.executeWithHeartbeat(jobCtx, job)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			// Shutdown mid-job: leave it processing so the stale-job
			// reclaim on the next start reruns it.
			logger.Debug("job interrupted by shutdown")
			return
		}
		m.handleJobFailure(jobCtx, logger, job, execErr)
		return
	}

	job.Status = queue.StatusCompleted
	job.LastHeartbeat = nil
	if job.ProgressPercent < 100 {
		job.ProgressPercent = 100
	}
	if strings.TrimSpace(job.ProgressStage) == "" {
		job.ProgressStage = "Completed"
	}
	if err := m.store.Update(jobCtx, job); err != nil {
		m.setLastError(err)
		logger.Error("failed to persist job result", logging.Error(err))
		return
	}

	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Duration("job_duration", time.Since(start)),
	)
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, job *queue.Job) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	execErr := m.handler.Execute(ctx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

// handleJobFailure routes a failed job to either a bounded retry or a
// terminal failed state.
func (m *Manager) handleJobFailure(ctx context.Context, logger *slog.Logger, job *queue.Job, jobErr error) {
	m.setLastError(jobErr)

	message := strings.TrimSpace(jobErr.Error())
	if message == "" {
		message = "processing failed without error detail"
	}

	retryable := services.Retryable(jobErr) && m.cfg.Processing.RetryFailed
	budget := m.cfg.Processing.MaxRetries
	if retryable && job.RetryCount+1 < budget {
		logger.Warn("job failed, scheduling retry",
			logging.Error(jobErr),
			logging.String(logging.FieldErrorKind, services.Kind(jobErr)),
			logging.Int(logging.FieldAttempt, job.RetryCount+1),
			logging.String(logging.FieldEventType, "job_retry"),
		)
		if err := m.store.MarkRetrying(ctx, job.ID, message); err != nil {
			logger.Error("failed to persist retry state", logging.Error(err))
		}
		return
	}

	job.SetFailed(message)
	logger.Error("job failed",
		logging.Error(jobErr),
		logging.String(logging.FieldErrorKind, services.Kind(jobErr)),
		logging.Int(logging.FieldAttempt, job.RetryCount+1),
		logging.String(logging.FieldEventType, "job_failure"),
	)
	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist job failure")
		} else {
			logger.Error("failed to persist job failure", logging.Error(err))
		}
	}
}
