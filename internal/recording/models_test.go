package recording_test

import (
	"testing"

	"fluently/internal/recording"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to recording.Status
		want     bool
	}{
		{recording.StatusPending, recording.StatusProcessing, true},
		{recording.StatusProcessing, recording.StatusCompleted, true},
		{recording.StatusProcessing, recording.StatusFailed, true},
		{recording.StatusFailed, recording.StatusPending, true},
		{recording.StatusPending, recording.StatusCompleted, false},
		{recording.StatusPending, recording.StatusFailed, false},
		{recording.StatusCompleted, recording.StatusProcessing, false},
		{recording.StatusCompleted, recording.StatusPending, false},
		{recording.StatusFailed, recording.StatusProcessing, false},
		{recording.StatusProcessing, recording.StatusPending, false},
	}
	for _, tc := range cases {
		if got := recording.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	status, ok := recording.ParseStatus("processing")
	if !ok {
		t.Fatal("ParseStatus failed")
	}
	if status != recording.StatusProcessing {
		t.Fatalf("unexpected status: %s", status)
	}
	if _, ok := recording.ParseStatus("bogus"); ok {
		t.Fatal("expected failure for unknown status")
	}
}

func TestIsTerminal(t *testing.T) {
	if !recording.StatusCompleted.IsTerminal() || !recording.StatusFailed.IsTerminal() {
		t.Fatal("expected completed and failed to be terminal")
	}
	if recording.StatusPending.IsTerminal() || recording.StatusProcessing.IsTerminal() {
		t.Fatal("expected pending and processing to be non-terminal")
	}
}
