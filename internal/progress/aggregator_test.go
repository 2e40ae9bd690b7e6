package progress_test

import (
	"context"
	"math"
	"testing"
	"time"

	"fluently/internal/logging"
	"fluently/internal/progress"
	"fluently/internal/recording"
	"fluently/internal/testsupport"
)

func completeRecording(t *testing.T, store *recording.Store, ownerID int64, key string, result recording.Result) {
	t.Helper()
	rec := testsupport.NewRecording(t, store, ownerID, key, 60)
	ctx := context.Background()
	if _, err := store.MarkProcessing(ctx, rec.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if _, err := store.CompleteWithResult(ctx, rec.ID, result); err != nil {
		t.Fatalf("CompleteWithResult failed: %v", err)
	}
}

func window() (time.Time, time.Time) {
	now := time.Now().UTC()
	return now.Add(-time.Hour), now.Add(time.Hour)
}

func TestComputeWindowAggregates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	aggregator := progress.NewAggregator(store, logging.NewNop())

	completeRecording(t, store, 1, "1/a.wav", recording.Result{
		TotalDisfluencies: 4,
		DisfluencyRate:    4,
		SpeechRate:        120,
		FluencyScore:      80,
		DetailedAnalysis: map[string]any{
			"type_counts": map[string]any{"filler": float64(3), "repetition": float64(1)},
		},
	})
	completeRecording(t, store, 1, "1/b.wav", recording.Result{
		TotalDisfluencies: 2,
		DisfluencyRate:    2,
		SpeechRate:        130,
		FluencyScore:      90,
		DetailedAnalysis: map[string]any{
			"type_counts": map[string]any{"filler": float64(2)},
		},
	})

	start, end := window()
	report, err := aggregator.ComputeWindow(context.Background(), 1, start, end)
	if err != nil {
		t.Fatalf("ComputeWindow failed: %v", err)
	}
	if report.SampleCount != 2 {
		t.Fatalf("expected 2 samples, got %d", report.SampleCount)
	}
	if report.AverageDisfluencyRate != 3 {
		t.Fatalf("expected mean rate 3, got %v", report.AverageDisfluencyRate)
	}
	if report.AverageFluencyScore != 85 {
		t.Fatalf("expected mean score 85, got %v", report.AverageFluencyScore)
	}
	// Rate halved from the first half to the second.
	if report.ImprovementRate != 50 {
		t.Fatalf("expected 50%% improvement, got %v", report.ImprovementRate)
	}
	if math.Abs(report.TypeDistribution["filler"]-5.0/6.0) > 1e-9 {
		t.Fatalf("unexpected filler share: %v", report.TypeDistribution["filler"])
	}

	stored, err := store.GetMetric(context.Background(), 1, recording.MetricAverageDisfluencyRate, start, end)
	if err != nil {
		t.Fatalf("GetMetric failed: %v", err)
	}
	if stored == nil || stored.Value != 3 {
		t.Fatalf("expected stored average, got %#v", stored)
	}
	if stored.Metadata["sample_count"] != float64(2) {
		t.Fatalf("expected sample count metadata, got %#v", stored.Metadata)
	}
}

func TestComputeWindowEmptyStoresNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	aggregator := progress.NewAggregator(store, logging.NewNop())

	start, end := window()
	report, err := aggregator.ComputeWindow(context.Background(), 42, start, end)
	if err != nil {
		t.Fatalf("ComputeWindow failed: %v", err)
	}
	if report.SampleCount != 0 {
		t.Fatalf("expected empty report, got %#v", report)
	}

	metrics, err := store.MetricsForWindow(context.Background(), 42, start, end)
	if err != nil {
		t.Fatalf("MetricsForWindow failed: %v", err)
	}
	if len(metrics) != 0 {
		t.Fatalf("expected no stored metrics, got %d", len(metrics))
	}
}

func TestComputeWindowIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	aggregator := progress.NewAggregator(store, logging.NewNop())

	completeRecording(t, store, 1, "1/a.wav", recording.Result{
		TotalDisfluencies: 3, DisfluencyRate: 3, SpeechRate: 100, FluencyScore: 70,
	})

	start, end := window()
	ctx := context.Background()
	if _, err := aggregator.ComputeWindow(ctx, 1, start, end); err != nil {
		t.Fatalf("ComputeWindow failed: %v", err)
	}
	if _, err := aggregator.ComputeWindow(ctx, 1, start, end); err != nil {
		t.Fatalf("ComputeWindow failed: %v", err)
	}

	metrics, err := store.MetricsForWindow(ctx, 1, start, end)
	if err != nil {
		t.Fatalf("MetricsForWindow failed: %v", err)
	}
	if len(metrics) != 3 {
		t.Fatalf("expected exactly one row per metric type, got %d", len(metrics))
	}
}

func TestComputeWindowSingleSampleHasNoImprovement(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	aggregator := progress.NewAggregator(store, logging.NewNop())

	completeRecording(t, store, 1, "1/solo.wav", recording.Result{
		TotalDisfluencies: 3, DisfluencyRate: 3, SpeechRate: 100, FluencyScore: 70,
	})

	start, end := window()
	report, err := aggregator.ComputeWindow(context.Background(), 1, start, end)
	if err != nil {
		t.Fatalf("ComputeWindow failed: %v", err)
	}
	if report.ImprovementRate != 0 {
		t.Fatalf("expected zero improvement for single sample, got %v", report.ImprovementRate)
	}
}

func TestComputeWindowScopesToOwner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	aggregator := progress.NewAggregator(store, logging.NewNop())

	completeRecording(t, store, 1, "1/a.wav", recording.Result{
		TotalDisfluencies: 8, DisfluencyRate: 8, SpeechRate: 100, FluencyScore: 50,
	})
	completeRecording(t, store, 2, "2/b.wav", recording.Result{
		TotalDisfluencies: 1, DisfluencyRate: 1, SpeechRate: 120, FluencyScore: 95,
	})

	start, end := window()
	report, err := aggregator.ComputeWindow(context.Background(), 2, start, end)
	if err != nil {
		t.Fatalf("ComputeWindow failed: %v", err)
	}
	if report.SampleCount != 1 || report.AverageDisfluencyRate != 1 {
		t.Fatalf("expected only owner 2's results, got %#v", report)
	}
}
