package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fluently/internal/config"
	"fluently/internal/logging"
	"fluently/internal/model"
	"fluently/internal/recording"
	"fluently/internal/services"
)

// Analyzer runs the staged analysis for one recording: load the audio,
// extract features, classify segments, aggregate the result.
type Analyzer struct {
	cfg     *config.Config
	model   *model.Model
	scorer  model.Scorer
	decoder Decoder
	logger  *slog.Logger
}

// AnalyzerOption customizes an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithDecoder overrides the ffmpeg decoder, primarily for tests.
func WithDecoder(decoder Decoder) AnalyzerOption {
	return func(a *Analyzer) {
		if decoder != nil {
			a.decoder = decoder
		}
	}
}

// WithScorer overrides the default scoring strategy.
func WithScorer(scorer model.Scorer) AnalyzerOption {
	return func(a *Analyzer) {
		if scorer != nil {
			a.scorer = scorer
		}
	}
}

// NewAnalyzer constructs an Analyzer bound to the loaded model.
func NewAnalyzer(cfg *config.Config, m *model.Model, logger *slog.Logger, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		cfg:     cfg,
		model:   m,
		scorer:  model.NewCompositeScorer(),
		decoder: NewFFmpegDecoder(cfg),
		logger:  logging.NewComponentLogger(logger, "analyzer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze produces the analysis result for a recording. Errors carry the
// classification marker of the stage that failed.
func (a *Analyzer) Analyze(ctx context.Context, rec *recording.Recording) (recording.Result, error) {
	logger := a.logger.With(logging.Int64(logging.FieldRecordingID, rec.ID))
	started := time.Now()

	path := filepath.Join(a.cfg.Paths.UploadDir, filepath.FromSlash(rec.StorageKey))
	if _, err := os.Stat(path); err != nil {
		return recording.Result{}, services.Wrap(services.ErrIO, "analyzer", "load", "stored audio missing", err)
	}

	logger.Debug("stage started", logging.String(logging.FieldStage, "load"))
	clip, err := a.decoder.Decode(ctx, path)
	if err != nil {
		return recording.Result{}, stageError(ctx, err)
	}

	logger.Debug("stage started", logging.String(logging.FieldStage, "extract"))
	segments, err := extractSegments(clip)
	if err != nil {
		return recording.Result{}, stageError(ctx, err)
	}

	logger.Debug("stage started", logging.String(logging.FieldStage, "infer"),
		logging.Int("segments", len(segments)))
	classified, err := a.infer(ctx, segments)
	if err != nil {
		return recording.Result{}, stageError(ctx, err)
	}

	result := a.aggregate(clip.DurationSeconds(), segments, classified)
	logger.Info("analysis complete",
		logging.Int("total_disfluencies", result.TotalDisfluencies),
		logging.Float64("fluency_score", result.FluencyScore),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// classifiedSegment pairs a segment with its model output.
type classifiedSegment struct {
	segment Segment
	class   model.Classification
}

func (a *Analyzer) infer(ctx context.Context, segments []Segment) ([]classifiedSegment, error) {
	var classified []classifiedSegment
	for _, segment := range segments {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrInference, "analyzer", "infer", "interrupted", err)
		}
		class, ok := a.model.Classify(segment.Features)
		if !ok {
			continue
		}
		classified = append(classified, classifiedSegment{segment: segment, class: class})
	}
	return classified, nil
}

func (a *Analyzer) aggregate(durationSeconds float64, segments []Segment, classified []classifiedSegment) recording.Result {
	minutes := durationSeconds / 60
	if minutes <= 0 {
		minutes = 1.0 / 60
	}

	typeCounts := make(map[string]any)
	events := make([]map[string]any, 0, len(classified))
	for _, c := range classified {
		key := c.class.Label
		if current, ok := typeCounts[key].(int); ok {
			typeCounts[key] = current + 1
		} else {
			typeCounts[key] = 1
		}
		events = append(events, map[string]any{
			"label":         c.class.Label,
			"confidence":    c.class.Confidence,
			"start_seconds": c.segment.StartSeconds,
			"end_seconds":   c.segment.EndSeconds,
		})
	}

	total := len(classified)
	disfluencyRate := float64(total) / minutes
	speechRate := float64(len(segments)) / minutes

	score := a.scorer.Score(model.ScoreInput{
		TotalDisfluencies: total,
		DisfluencyRate:    disfluencyRate,
		SpeechRate:        speechRate,
		DurationSeconds:   durationSeconds,
	})

	return recording.Result{
		TotalDisfluencies: total,
		DisfluencyRate:    disfluencyRate,
		SpeechRate:        speechRate,
		FluencyScore:      score,
		DetailedAnalysis: map[string]any{
			"model_version":     a.model.Version(),
			"duration_seconds":  durationSeconds,
			"segments_analyzed": len(segments),
			"type_counts":       typeCounts,
			"events":            events,
		},
	}
}

// stageError upgrades a stage failure to a timeout classification when the
// processing deadline elapsed mid-stage.
func stageError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "analyzer", "analyze", "processing deadline exceeded", err)
	}
	return err
}
