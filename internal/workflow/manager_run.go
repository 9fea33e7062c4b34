package workflow

import (
	"context"
	"time"

	"log/slog"

	"focal/internal/logging"
	"focal/internal/queue"
)

func (m *Manager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()

	logger := m.logger.With(logging.Int("worker", id))
	// Only one worker runs the stale-job reclaimer; duplicating it just
	// burns queue writes.
	reclaimer := id == 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if reclaimer {
			if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil {
				logger.Warn("stale job reclaim failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				)
			}
		}

		job, err := m.store.NextForStatuses(ctx, queue.StatusPending, queue.StatusRetrying)
		if err != nil {
			m.handleFetchError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.waitForJobOrShutdown(ctx)
			continue
		}

		claimed, err := m.store.Claim(ctx, job.ID)
		if err != nil {
			m.handleFetchError(ctx, logger, err)
			continue
		}
		if !claimed {
			// Another worker won the race; look for the next job.
			continue
		}

		job, err = m.store.GetByID(ctx, job.ID)
		if err != nil || job == nil {
			m.handleFetchError(ctx, logger, err)
			continue
		}

		m.processJob(ctx, logger, job)
	}
}

func (m *Manager) handleFetchError(ctx context.Context, logger *slog.Logger, err error) {
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.setLastError(err)
		logger.Error("queue access failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_fetch_failed"),
		)
	}
	select {
	case <-ctx.Done():
	case <-time.After(m.errorRetry):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
