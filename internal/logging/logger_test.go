package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fluently/internal/logging"
	"fluently/internal/services"
)

func TestNewConsoleWritesComponentPrefix(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "ingest").Info("stored upload",
		logging.Int64(logging.FieldRecordingID, 42),
		logging.String("storage_key", "7_20260829T101502Z_ab12cd34.wav"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "ingest: stored upload") {
		t.Fatalf("expected component prefix in output, got %q", line)
	}
	if !strings.Contains(line, "recording_id=42") {
		t.Fatalf("expected recording_id attribute, got %q", line)
	}
}

func TestNewComponentLoggerNormalizesName(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "component.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "API Server").Info("listening")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "api_server: listening") {
		t.Fatalf("expected normalized component token, got %q", string(content))
	}
}

func TestNewJSONNormalizesKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")

	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("queued")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(content, &payload); err != nil {
		t.Fatalf("decode json log line: %v", err)
	}
	for _, key := range []string{"ts", "level", "msg"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("expected %q key in json output, got %v", key, payload)
		}
	}
	if payload["msg"] != "queued" {
		t.Fatalf("unexpected message: %v", payload["msg"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsStandardFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRecordingID(context.Background(), 7)
	ctx = services.WithStage(ctx, "infer")
	ctx = services.WithRequestID(ctx, "req-123")

	logging.WithContext(ctx, logger).Info("stage started")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"recording_id=7", "stage=infer", "correlation_id=req-123"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in output, got %q", want, line)
		}
	}
}
