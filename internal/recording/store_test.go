package recording_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fluently/internal/recording"
	"fluently/internal/testsupport"
)

func TestOpenAppliesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec, err := store.Create(ctx, 7, "7/sample.wav", 42.5, "first attempt")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("expected recording ID to be assigned")
	}
	if rec.Status != recording.StatusPending {
		t.Fatalf("expected pending status, got %s", rec.Status)
	}

	fetched, err := store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.StorageKey != "7/sample.wav" {
		t.Fatalf("unexpected fetched recording: %#v", fetched)
	}
	if fetched.Description != "first attempt" {
		t.Fatalf("unexpected description: %q", fetched.Description)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.Create(ctx, 1, "", 10, ""); err == nil {
		t.Fatal("expected error when storage key missing")
	}
	if _, err := store.Create(ctx, 1, "1/a.wav", 0, ""); err == nil {
		t.Fatal("expected error when duration is zero")
	}
}

func TestGetByIDReturnsNilWhenAbsent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	fetched, err := store.GetByID(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched != nil {
		t.Fatalf("expected nil for missing recording, got %#v", fetched)
	}
}

func TestListByOwnerPaginates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		testsupport.NewRecording(t, store, 3, fmt.Sprintf("3/rec-%d.wav", i), 30)
	}
	testsupport.NewRecording(t, store, 4, "4/other.wav", 30)

	page, total, err := store.ListByOwner(ctx, 3, 0, 2)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 recordings, got %d", len(page))
	}

	rest, _, err := store.ListByOwner(ctx, 3, 4, 10)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("expected 1 recording on last page, got %d", len(rest))
	}
}

func TestTransitionsGuardCurrentStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := testsupport.NewRecording(t, store, 1, "1/a.wav", 30)

	ok, err := store.MarkProcessing(ctx, rec.ID)
	if err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if !ok {
		t.Fatal("expected pending recording to transition to processing")
	}

	// Duplicate delivery: a second claim must observe the miss and skip.
	ok, err = store.MarkProcessing(ctx, rec.ID)
	if err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if ok {
		t.Fatal("expected second MarkProcessing to report no transition")
	}

	ok, err = store.MarkFailed(ctx, rec.ID, "inference_error", "model unavailable")
	if err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	if !ok {
		t.Fatal("expected processing recording to transition to failed")
	}

	fetched, err := store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != recording.StatusFailed {
		t.Fatalf("expected failed status, got %s", fetched.Status)
	}
	if fetched.FailureKind != "inference_error" || fetched.FailureMessage != "model unavailable" {
		t.Fatalf("unexpected failure details: %q / %q", fetched.FailureKind, fetched.FailureMessage)
	}

	ok, err = store.ResetForRetry(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ResetForRetry failed: %v", err)
	}
	if !ok {
		t.Fatal("expected failed recording to reset to pending")
	}

	fetched, err = store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != recording.StatusPending {
		t.Fatalf("expected pending after retry reset, got %s", fetched.Status)
	}
	if fetched.FailureKind != "" || fetched.FailureMessage != "" {
		t.Fatal("expected failure details cleared after retry reset")
	}
}

func TestCompleteWithResultIsAtomic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := testsupport.NewRecording(t, store, 1, "1/a.wav", 60)
	if _, err := store.MarkProcessing(ctx, rec.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}

	result := recording.Result{
		TotalDisfluencies: 4,
		DisfluencyRate:    4.0,
		SpeechRate:        120,
		FluencyScore:      86.5,
		DetailedAnalysis: map[string]any{
			"type_counts": map[string]any{"filler": float64(3), "repetition": float64(1)},
		},
	}
	completed, err := store.CompleteWithResult(ctx, rec.ID, result)
	if err != nil {
		t.Fatalf("CompleteWithResult failed: %v", err)
	}
	if !completed {
		t.Fatal("expected completion to apply")
	}

	fetched, err := store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != recording.StatusCompleted {
		t.Fatalf("expected completed status, got %s", fetched.Status)
	}

	stored, err := store.GetResult(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if stored == nil || stored.FluencyScore != 86.5 {
		t.Fatalf("unexpected stored result: %#v", stored)
	}
	if stored.DetailedAnalysis["type_counts"] == nil {
		t.Fatal("expected detailed analysis payload to round-trip")
	}
}

func TestCompleteWithResultDiscardsAfterDeletion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := testsupport.NewRecording(t, store, 1, "1/a.wav", 60)
	if _, err := store.MarkProcessing(ctx, rec.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if _, err := store.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	completed, err := store.CompleteWithResult(ctx, rec.ID, recording.Result{
		TotalDisfluencies: 1,
		DisfluencyRate:    1,
		SpeechRate:        100,
		FluencyScore:      90,
	})
	if err != nil {
		t.Fatalf("CompleteWithResult failed: %v", err)
	}
	if completed {
		t.Fatal("expected completion to be discarded after deletion")
	}

	stored, err := store.GetResult(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if stored != nil {
		t.Fatalf("expected no result after deletion, got %#v", stored)
	}
}

func TestDeleteCascadesResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := testsupport.NewRecording(t, store, 1, "1/a.wav", 60)
	if _, err := store.MarkProcessing(ctx, rec.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if _, err := store.CompleteWithResult(ctx, rec.ID, recording.Result{
		TotalDisfluencies: 2,
		DisfluencyRate:    2,
		SpeechRate:        110,
		FluencyScore:      88,
	}); err != nil {
		t.Fatalf("CompleteWithResult failed: %v", err)
	}

	deleted, err := store.Delete(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion to apply")
	}

	stored, err := store.GetResult(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if stored != nil {
		t.Fatal("expected result to cascade on delete")
	}
}

func TestResultsInWindowScopesOwnerAndBounds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	complete := func(ownerID int64, key string, score float64) {
		t.Helper()
		rec := testsupport.NewRecording(t, store, ownerID, key, 60)
		if _, err := store.MarkProcessing(ctx, rec.ID); err != nil {
			t.Fatalf("MarkProcessing failed: %v", err)
		}
		if _, err := store.CompleteWithResult(ctx, rec.ID, recording.Result{
			TotalDisfluencies: 1,
			DisfluencyRate:    1.5,
			SpeechRate:        100,
			FluencyScore:      score,
		}); err != nil {
			t.Fatalf("CompleteWithResult failed: %v", err)
		}
	}
	complete(5, "5/first.wav", 80)
	complete(5, "5/second.wav", 90)
	complete(6, "6/other.wav", 70)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	results, err := store.ResultsInWindow(ctx, 5, start, end)
	if err != nil {
		t.Fatalf("ResultsInWindow failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results for owner, got %d", len(results))
	}
	if results[0].FluencyScore != 80 || results[1].FluencyScore != 90 {
		t.Fatalf("expected results ordered by creation time, got %#v", results)
	}

	empty, err := store.ResultsInWindow(ctx, 5, end, end.Add(time.Hour))
	if err != nil {
		t.Fatalf("ResultsInWindow failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty window, got %d results", len(empty))
	}
}

func TestCountsByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewRecording(t, store, 1, "1/a.wav", 30)
	testsupport.NewRecording(t, store, 1, "1/b.wav", 30)
	if _, err := store.MarkProcessing(ctx, first.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}

	counts, err := store.CountsByStatus(ctx)
	if err != nil {
		t.Fatalf("CountsByStatus failed: %v", err)
	}
	if counts.Total != 2 || counts.Pending != 1 || counts.Processing != 1 {
		t.Fatalf("unexpected counts: %#v", counts)
	}
}
