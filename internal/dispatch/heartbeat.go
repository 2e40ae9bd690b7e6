package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fluently/internal/logging"
	"fluently/internal/recording"
)

// HeartbeatMonitor manages job heartbeats and stale lease reclamation.
type HeartbeatMonitor struct {
	store             *recording.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *recording.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:             store,
		logger:            logging.NewComponentLogger(logger, "dispatch-heartbeat"),
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStaleJobs requeues leased jobs whose workers have stopped sending
// heartbeats. The requeued jobs are redelivered to the next free worker.
func (h *HeartbeatMonitor) ReclaimStaleJobs(ctx context.Context) error {
	if h.heartbeatTimeout <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.ReclaimStaleJobs(ctx, cutoff)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		h.logger.Info("reclaimed stale jobs", logging.Int64("count", reclaimed))
	}
	return nil
}

// StartLoop runs a heartbeat updater for a specific job until context
// cancellation.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, jobID int64) {
	defer wg.Done()
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.HeartbeatJob(ctx, jobID); err != nil {
				if errors.Is(err, context.Canceled) {
					h.logger.Info("daemon shutting down, heartbeat update cancelled")
				} else {
					h.logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}
