package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fluently/internal/dispatch"
	"fluently/internal/logging"
	"fluently/internal/recording"
	"fluently/internal/services"
	"fluently/internal/testsupport"
)

func TestSubmitEnqueuesJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	dispatcher := dispatch.NewDispatcher(store, logging.NewNop())

	ctx := context.Background()
	rec := testsupport.NewRecording(t, store, 1, "1/a.wav", 30)

	submission, err := dispatcher.Submit(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !submission.Enqueued {
		t.Fatal("expected first submission to enqueue")
	}
	if submission.CorrelationID == "" {
		t.Fatal("expected correlation ID assigned")
	}

	job, err := store.ActiveJobForRecording(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ActiveJobForRecording failed: %v", err)
	}
	if job == nil || job.State != recording.JobQueued {
		t.Fatalf("expected queued job, got %#v", job)
	}
}

func TestSubmitCoalescesDuplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	dispatcher := dispatch.NewDispatcher(store, logging.NewNop())

	ctx := context.Background()
	rec := testsupport.NewRecording(t, store, 1, "1/a.wav", 30)

	first, err := dispatcher.Submit(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	second, err := dispatcher.Submit(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if second.Enqueued {
		t.Fatal("expected duplicate submission to coalesce")
	}
	if second.CorrelationID != first.CorrelationID {
		t.Fatalf("expected surviving job correlation %q, got %q", first.CorrelationID, second.CorrelationID)
	}
}

func TestSubmitUnknownRecording(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	dispatcher := dispatch.NewDispatcher(store, logging.NewNop())

	_, err := dispatcher.Submit(context.Background(), 12345)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReclaimStaleJobsRedelivers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	dispatcher := dispatch.NewDispatcher(store, logging.NewNop())

	ctx := context.Background()
	rec := testsupport.NewRecording(t, store, 1, "1/a.wav", 30)
	if _, err := dispatcher.Submit(ctx, rec.ID); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	job, err := store.ClaimNextJob(ctx)
	if err != nil {
		t.Fatalf("ClaimNextJob failed: %v", err)
	}
	if job == nil {
		t.Fatal("expected claimable job")
	}

	// A nanosecond timeout expires the fresh lease immediately.
	monitor := dispatch.NewHeartbeatMonitor(store, logging.NewNop(), time.Second, time.Nanosecond)
	time.Sleep(5 * time.Millisecond)
	if err := monitor.ReclaimStaleJobs(ctx); err != nil {
		t.Fatalf("ReclaimStaleJobs failed: %v", err)
	}

	requeued, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if requeued.State != recording.JobQueued {
		t.Fatalf("expected requeued job, got state %s", requeued.State)
	}
}

func TestHeartbeatLoopKeepsLeaseAlive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := testsupport.NewRecording(t, store, 1, "1/a.wav", 30)
	if _, err := store.EnqueueJob(ctx, rec.ID, ""); err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}
	job, err := store.ClaimNextJob(ctx)
	if err != nil {
		t.Fatalf("ClaimNextJob failed: %v", err)
	}

	monitor := dispatch.NewHeartbeatMonitor(store, logging.NewNop(), 10*time.Millisecond, time.Minute)
	loopCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go monitor.StartLoop(loopCtx, &wg, job.ID)

	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	if err := monitor.ReclaimStaleJobs(ctx); err != nil {
		t.Fatalf("ReclaimStaleJobs failed: %v", err)
	}
	fresh, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if fresh.State != recording.JobLeased {
		t.Fatalf("expected lease to survive heartbeats, got %s", fresh.State)
	}
}
