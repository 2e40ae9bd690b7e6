package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fluently/internal/config"
	"fluently/internal/dispatch"
	"fluently/internal/ingest"
	"fluently/internal/logging"
	"fluently/internal/progress"
	"fluently/internal/recording"
	"fluently/internal/services"
)

// Service is the application facade behind both the HTTP handlers and the
// CLI. It owns ingestion, dispatch, and progress on top of the shared store.
type Service struct {
	cfg        *config.Config
	store      *recording.Store
	validator  *ingest.Validator
	dispatcher *dispatch.Dispatcher
	aggregator *progress.Aggregator
	logger     *slog.Logger
}

// NewService wires the facade. The validator is passed in so callers control
// how uploads are probed.
func NewService(cfg *config.Config, store *recording.Store, validator *ingest.Validator, logger *slog.Logger) *Service {
	return &Service{
		cfg:        cfg,
		store:      store,
		validator:  validator,
		dispatcher: dispatch.NewDispatcher(store, logger),
		aggregator: progress.NewAggregator(store, logger),
		logger:     logging.NewComponentLogger(logger, "api"),
	}
}

// CreateRecordingRequest carries one upload plus its metadata.
type CreateRecordingRequest struct {
	OwnerID     int64
	ContentType string
	Filename    string
	Description string
	Body        io.Reader
	// AutoSubmit queues analysis immediately after the upload is accepted.
	AutoSubmit bool
}

// CreateRecording validates and stores the upload, registers the recording,
// and optionally queues analysis.
func (s *Service) CreateRecording(ctx context.Context, req CreateRecordingRequest) (RecordingView, *SubmissionView, error) {
	accepted, err := s.validator.Accept(ctx, ingest.Upload{
		OwnerID:     req.OwnerID,
		ContentType: req.ContentType,
		Filename:    req.Filename,
		Body:        req.Body,
	})
	if err != nil {
		return RecordingView{}, nil, err
	}

	rec, err := s.store.Create(ctx, req.OwnerID, accepted.StorageKey, accepted.DurationSeconds, req.Description)
	if err != nil {
		// The stored file would be orphaned without its row; remove it.
		_ = os.Remove(accepted.Path)
		return RecordingView{}, nil, services.Wrap(services.ErrQueueUnavailable, "api", "create recording", "register recording", err)
	}

	var submission *SubmissionView
	if req.AutoSubmit {
		sub, err := s.dispatcher.Submit(ctx, rec.ID)
		if err != nil {
			return FromRecording(rec), nil, err
		}
		submission = &SubmissionView{
			RecordingID:   rec.ID,
			Enqueued:      sub.Enqueued,
			CorrelationID: sub.CorrelationID,
		}
	}
	return FromRecording(rec), submission, nil
}

// GetRecording fetches one recording.
func (s *Service) GetRecording(ctx context.Context, id int64) (RecordingView, error) {
	rec, err := s.loadRecording(ctx, id)
	if err != nil {
		return RecordingView{}, err
	}
	return FromRecording(rec), nil
}

// ListRecordings returns one owner's recordings, newest first.
func (s *Service) ListRecordings(ctx context.Context, ownerID int64, offset, limit int) (RecordingListResponse, error) {
	recs, total, err := s.store.ListByOwner(ctx, ownerID, offset, limit)
	if err != nil {
		return RecordingListResponse{}, services.Wrap(services.ErrQueueUnavailable, "api", "list recordings", "query store", err)
	}
	if limit <= 0 {
		limit = len(recs)
	}
	return RecordingListResponse{
		Items:  FromRecordings(recs),
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}, nil
}

// DeleteRecording removes the recording row, its result, and its stored audio.
// Deletion is unconditional: an in-flight analysis discovers it at completion
// time and discards its result.
func (s *Service) DeleteRecording(ctx context.Context, id int64) error {
	rec, err := s.loadRecording(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return services.Wrap(services.ErrQueueUnavailable, "api", "delete recording", "delete row", err)
	}
	if !deleted {
		return services.Wrap(services.ErrNotFound, "api", "delete recording", fmt.Sprintf("recording %d", id), nil)
	}

	s.removeStorageObjects(rec)
	s.logger.Info("recording deleted",
		logging.Int64(logging.FieldRecordingID, id),
		logging.Int64(logging.FieldOwnerID, rec.OwnerID),
	)
	return nil
}

// GetAnalysis returns the stored result for a completed recording.
func (s *Service) GetAnalysis(ctx context.Context, id int64) (ResultView, error) {
	if _, err := s.loadRecording(ctx, id); err != nil {
		return ResultView{}, err
	}
	result, err := s.store.GetResult(ctx, id)
	if err != nil {
		return ResultView{}, services.Wrap(services.ErrQueueUnavailable, "api", "get analysis", "query store", err)
	}
	if result == nil {
		return ResultView{}, services.Wrap(services.ErrNotFound, "api", "get analysis",
			fmt.Sprintf("no analysis for recording %d", id), nil)
	}
	return FromResult(result), nil
}

// Submit queues analysis for the recording.
func (s *Service) Submit(ctx context.Context, id int64) (SubmissionView, error) {
	sub, err := s.dispatcher.Submit(ctx, id)
	if err != nil {
		return SubmissionView{}, err
	}
	return SubmissionView{RecordingID: id, Enqueued: sub.Enqueued, CorrelationID: sub.CorrelationID}, nil
}

// Retry resets a failed recording to pending and queues it again.
func (s *Service) Retry(ctx context.Context, id int64) (SubmissionView, error) {
	rec, err := s.loadRecording(ctx, id)
	if err != nil {
		return SubmissionView{}, err
	}
	if rec.Status != recording.StatusFailed {
		return SubmissionView{}, services.Wrap(services.ErrTransient, "api", "retry",
			fmt.Sprintf("recording %d is %s, only failed recordings retry", id, rec.Status), nil)
	}

	reset, err := s.store.ResetForRetry(ctx, id)
	if err != nil {
		return SubmissionView{}, services.Wrap(services.ErrQueueUnavailable, "api", "retry", "reset status", err)
	}
	if !reset {
		return SubmissionView{}, services.Wrap(services.ErrTransient, "api", "retry",
			fmt.Sprintf("recording %d changed state during retry", id), nil)
	}
	return s.Submit(ctx, id)
}

// Progress computes the owner's windowed progress report.
func (s *Service) Progress(ctx context.Context, ownerID int64, start, end time.Time) (ProgressView, error) {
	if !end.After(start) {
		return ProgressView{}, services.Wrap(services.ErrTransient, "api", "progress", "window end must follow start", nil)
	}
	report, err := s.aggregator.ComputeWindow(ctx, ownerID, start, end)
	if err != nil {
		return ProgressView{}, err
	}
	return FromReport(report), nil
}

// Status summarizes queue depth per lifecycle state.
func (s *Service) Status(ctx context.Context) (StatusSummary, error) {
	counts, err := s.store.CountsByStatus(ctx)
	if err != nil {
		return StatusSummary{}, services.Wrap(services.ErrQueueUnavailable, "api", "status", "query store", err)
	}
	return FromCounts(counts), nil
}

func (s *Service) loadRecording(ctx context.Context, id int64) (*recording.Recording, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrQueueUnavailable, "api", "load recording", "query store", err)
	}
	if rec == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "load recording", fmt.Sprintf("recording %d", id), nil)
	}
	return rec, nil
}

// removeStorageObjects deletes the audio wherever it lives at the time of
// deletion. Missing files are fine, the analysis may already have archived or
// never stored them.
func (s *Service) removeStorageObjects(rec *recording.Recording) {
	key := filepath.FromSlash(rec.StorageKey)
	for _, dir := range []string{s.cfg.Paths.UploadDir, s.cfg.Paths.ProcessedDir} {
		path := filepath.Join(dir, key)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove stored audio failed",
				logging.String("path", path),
				logging.Error(err),
			)
		}
	}
}
