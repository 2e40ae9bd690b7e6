package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fluently/internal/config"
	"fluently/internal/dispatch"
	"fluently/internal/fileutil"
	"fluently/internal/logging"
	"fluently/internal/recording"
	"fluently/internal/services"
)

// Pool drives the analysis workers. Each worker claims jobs from the durable
// queue, guards execution with the status compare-and-set, and reports
// per-job heartbeats while analyzing.
type Pool struct {
	cfg      *config.Config
	store    *recording.Store
	analyzer *Analyzer
	monitor  *dispatch.HeartbeatMonitor
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool constructs a worker pool.
func NewPool(cfg *config.Config, store *recording.Store, analyzer *Analyzer, logger *slog.Logger) *Pool {
	return &Pool{
		cfg:      cfg,
		store:    store,
		analyzer: analyzer,
		monitor:  dispatch.NewHeartbeatMonitor(store, logger, cfg.Workflow.HeartbeatEvery(), cfg.Workflow.HeartbeatExpiry()),
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Start begins background processing.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("pipeline already running")
	}
	workers := p.cfg.Workflow.Workers
	if workers <= 0 {
		p.mu.Unlock()
		return errors.New("pipeline workers not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(workers + 1)
	p.mu.Unlock()

	go p.runReclaimer(runCtx)
	for i := 0; i < workers; i++ {
		go p.runWorker(runCtx, i)
	}
	return nil
}

// Stop terminates background processing and waits for completion.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

func (p *Pool) runReclaimer(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.Workflow.HeartbeatEvery())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.monitor.ReclaimStaleJobs(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check queue database access"),
				)
			}
		}
	}
}

func (p *Pool) runWorker(ctx context.Context, index int) {
	defer p.wg.Done()
	logger := p.logger.With(logging.Int("worker", index))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.store.ClaimNextJob(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Warn("claim next job failed", logging.Error(err))
			p.waitOrShutdown(ctx, p.cfg.Workflow.RetryInterval())
			continue
		}
		if job == nil {
			p.waitOrShutdown(ctx, p.cfg.Workflow.PollInterval())
			continue
		}

		p.processJob(ctx, logger, job)
	}
}

func (p *Pool) processJob(ctx context.Context, logger *slog.Logger, job *recording.Job) {
	jobLogger := logger.With(
		logging.Int64(logging.FieldRecordingID, job.RecordingID),
		logging.String(logging.FieldCorrelationID, job.CorrelationID),
	)

	rec, err := p.store.GetByID(ctx, job.RecordingID)
	if err != nil {
		jobLogger.Warn("load recording failed", logging.Error(err))
		p.finishJob(ctx, jobLogger, job.ID, recording.JobFailed)
		return
	}
	if rec == nil {
		// Deleted while queued. Nothing to analyze.
		jobLogger.Info("recording gone before analysis, dropping job")
		p.finishJob(ctx, jobLogger, job.ID, recording.JobDone)
		return
	}

	claimed, err := p.store.MarkProcessing(ctx, rec.ID)
	if err != nil {
		jobLogger.Warn("transition to processing failed", logging.Error(err))
		p.finishJob(ctx, jobLogger, job.ID, recording.JobFailed)
		return
	}
	if !claimed {
		// Redelivery of work another execution already claimed or finished.
		jobLogger.Info("duplicate delivery skipped",
			logging.String(logging.FieldEventType, "job_skipped"),
			logging.String("status", string(rec.Status)),
		)
		p.finishJob(ctx, jobLogger, job.ID, recording.JobDone)
		return
	}

	analyzeCtx, cancelAnalysis := context.WithTimeout(ctx, p.cfg.Workflow.ProcessingDeadline())
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	var heartbeatWG sync.WaitGroup
	heartbeatWG.Add(1)
	go p.monitor.StartLoop(heartbeatCtx, &heartbeatWG, job.ID)

	result, analyzeErr := p.analyzer.Analyze(analyzeCtx, rec)

	stopHeartbeat()
	heartbeatWG.Wait()
	cancelAnalysis()

	if analyzeErr != nil {
		if errors.Is(analyzeErr, context.Canceled) && ctx.Err() != nil {
			// Shutdown mid-analysis: leave the lease for the reclaimer.
			return
		}
		p.failRecording(ctx, jobLogger, job, rec, analyzeErr)
		return
	}

	completed, err := p.store.CompleteWithResult(ctx, rec.ID, result)
	if err != nil {
		jobLogger.Error("persist analysis result failed", logging.Error(err))
		p.failRecording(ctx, jobLogger, job, rec, services.Wrap(services.ErrIO, "pipeline", "complete", "persist result", err))
		return
	}
	if !completed {
		jobLogger.Info("result discarded, recording no longer processing",
			logging.String(logging.FieldEventType, "result_discarded"))
		p.finishJob(ctx, jobLogger, job.ID, recording.JobDone)
		return
	}

	p.archiveProcessed(jobLogger, rec)
	p.finishJob(ctx, jobLogger, job.ID, recording.JobDone)
	jobLogger.Info("recording completed",
		logging.String(logging.FieldEventType, "recording_completed"),
		logging.Float64("fluency_score", result.FluencyScore),
	)
}

func (p *Pool) failRecording(ctx context.Context, logger *slog.Logger, job *recording.Job, rec *recording.Recording, cause error) {
	kind := services.Kind(cause)
	logger.Error("analysis failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorKind, kind),
	)
	marked, err := p.store.MarkFailed(ctx, rec.ID, kind, cause.Error())
	if err != nil {
		logger.Error("persist failure status failed", logging.Error(err))
	} else if !marked {
		logger.Warn("failure status not applied, recording moved on")
	}
	p.finishJob(ctx, logger, job.ID, recording.JobFailed)
}

// archiveProcessed moves the completed upload into the processed directory.
// The result is already committed, so archive problems only warn.
func (p *Pool) archiveProcessed(logger *slog.Logger, rec *recording.Recording) {
	src := filepath.Join(p.cfg.Paths.UploadDir, filepath.FromSlash(rec.StorageKey))
	dst := filepath.Join(p.cfg.Paths.ProcessedDir, filepath.FromSlash(rec.StorageKey))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		logger.Warn("create processed directory failed", logging.Error(err))
		return
	}
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		logger.Warn("archive processed audio failed", logging.Error(err))
		return
	}
	if err := os.Remove(src); err != nil {
		logger.Warn("remove archived upload failed", logging.Error(err))
	}
}

func (p *Pool) finishJob(ctx context.Context, logger *slog.Logger, jobID int64, state recording.JobState) {
	if err := p.store.FinishJob(ctx, jobID, state); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn(fmt.Sprintf("finish job as %s failed", state), logging.Error(err))
	}
}

func (p *Pool) waitOrShutdown(ctx context.Context, wait time.Duration) {
	if wait <= 0 {
		wait = time.Second
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
