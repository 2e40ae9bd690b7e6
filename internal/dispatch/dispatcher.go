package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"fluently/internal/logging"
	"fluently/internal/recording"
	"fluently/internal/services"
)

// Dispatcher accepts analysis requests and hands them to the durable job
// queue. Submission is idempotent per recording: while a job is queued or
// leased, further submissions coalesce into it.
type Dispatcher struct {
	store  *recording.Store
	logger *slog.Logger
}

// NewDispatcher constructs a Dispatcher on top of the shared store.
func NewDispatcher(store *recording.Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		logger: logging.NewComponentLogger(logger, "dispatch"),
	}
}

// Submission reports the outcome of a dispatch request.
type Submission struct {
	Enqueued      bool
	CorrelationID string
}

// Submit queues analysis for the recording. Returns Enqueued == false when an
// active job already covers it; the correlation identifier then belongs to the
// surviving job.
func (d *Dispatcher) Submit(ctx context.Context, recordingID int64) (Submission, error) {
	rec, err := d.store.GetByID(ctx, recordingID)
	if err != nil {
		return Submission{}, services.Wrap(services.ErrQueueUnavailable, "dispatch", "submit", "load recording", err)
	}
	if rec == nil {
		return Submission{}, services.Wrap(services.ErrNotFound, "dispatch", "submit",
			fmt.Sprintf("recording %d", recordingID), nil)
	}

	correlationID := uuid.NewString()
	enqueued, err := d.store.EnqueueJob(ctx, recordingID, correlationID)
	if err != nil {
		return Submission{}, services.Wrap(services.ErrQueueUnavailable, "dispatch", "submit", "enqueue job", err)
	}
	if !enqueued {
		existing, err := d.store.ActiveJobForRecording(ctx, recordingID)
		if err != nil {
			return Submission{}, services.Wrap(services.ErrQueueUnavailable, "dispatch", "submit", "load active job", err)
		}
		if existing != nil {
			correlationID = existing.CorrelationID
		}
		d.logger.Debug("submission coalesced into active job",
			logging.Int64(logging.FieldRecordingID, recordingID),
			logging.String(logging.FieldCorrelationID, correlationID),
		)
		return Submission{Enqueued: false, CorrelationID: correlationID}, nil
	}

	d.logger.Info("analysis job enqueued",
		logging.Int64(logging.FieldRecordingID, recordingID),
		logging.String(logging.FieldCorrelationID, correlationID),
	)
	return Submission{Enqueued: true, CorrelationID: correlationID}, nil
}
