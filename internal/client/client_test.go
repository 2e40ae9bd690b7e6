package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fluently/internal/api"
	"fluently/internal/client"
)

func TestNewRejectsEmptyAddress(t *testing.T) {
	if _, err := client.New("   "); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestStatusRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.DaemonStatus{
			Running:      true,
			ModelVersion: 3,
			Queue:        api.StatusSummary{Total: 2, Pending: 1, Completed: 1},
		})
	}))
	defer server.Close()

	c, err := client.New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.ModelVersion != 3 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.Queue.Pending != 1 {
		t.Fatalf("unexpected queue counts: %+v", status.Queue)
	}
}

func TestAPIErrorCarriesKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "not found: api: load recording: recording 9",
			"kind":  "not_found",
		})
	}))
	defer server.Close()

	c, err := client.New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.GetRecording(context.Background(), 9)
	if err == nil {
		t.Fatal("expected error")
	}
	if !client.IsNotFound(err) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestUploadSendsMultipartForm(t *testing.T) {
	var gotOwner, gotSubmit, gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/recordings" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotOwner = r.FormValue("owner")
		gotSubmit = r.FormValue("submit")
		_, header, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		gotFilename = header.Filename
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(client.UploadResponse{
			Recording:  api.RecordingView{ID: 12, OwnerID: 7, Status: "pending"},
			Submission: &api.SubmissionView{RecordingID: 12, Enqueued: true},
		})
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "take.wav")
	if err := os.WriteFile(path, []byte("audio payload"), 0o644); err != nil {
		t.Fatalf("write audio file: %v", err)
	}

	c, err := client.New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := c.Upload(context.Background(), client.UploadRequest{
		OwnerID: 7,
		Path:    path,
		Submit:  true,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if resp.Recording.ID != 12 {
		t.Fatalf("unexpected recording id %d", resp.Recording.ID)
	}
	if resp.Submission == nil || !resp.Submission.Enqueued {
		t.Fatalf("expected enqueued submission, got %#v", resp.Submission)
	}
	if gotOwner != "7" || gotSubmit != "true" || gotFilename != "take.wav" {
		t.Fatalf("unexpected form values: owner=%q submit=%q filename=%q", gotOwner, gotSubmit, gotFilename)
	}
}

func TestProgressEncodesWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("owner") != "7" {
			t.Fatalf("unexpected owner %q", query.Get("owner"))
		}
		if query.Get("start") == "" || query.Get("end") == "" {
			t.Fatal("expected start and end parameters")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.ProgressView{OwnerID: 7, SampleCount: 4})
	}))
	defer server.Close()

	c, err := client.New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	view, err := c.Progress(context.Background(), 7, start, start.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if view.SampleCount != 4 {
		t.Fatalf("unexpected sample count %d", view.SampleCount)
	}
}

func TestUnreachableDaemonClassified(t *testing.T) {
	c, err := client.New("127.0.0.1:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Status(context.Background())
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !client.IsUnavailable(err) {
		t.Fatalf("expected unavailable classification, got %v", err)
	}
}
