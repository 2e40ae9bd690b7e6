package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fluently/internal/ingest"
	"fluently/internal/logging"
	"fluently/internal/media/ffprobe"
	"fluently/internal/services"
	"fluently/internal/testsupport"
)

func healthyProbe(duration string) ingest.ProbeFunc {
	return func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{{CodecType: "audio", Channels: 1, SampleRate: "16000"}},
			Format:  ffprobe.Format{Duration: duration},
		}, nil
	}
}

func TestAcceptStoresValidUpload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	validator := ingest.NewValidator(cfg, logging.NewNop(), ingest.WithProbe(healthyProbe("42.5")))

	accepted, err := validator.Accept(context.Background(), ingest.Upload{
		OwnerID:     7,
		ContentType: "audio/wav",
		Filename:    "session.wav",
		Body:        strings.NewReader("fake audio payload"),
	})
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if accepted.DurationSeconds != 42.5 {
		t.Fatalf("unexpected duration: %v", accepted.DurationSeconds)
	}
	if !strings.HasPrefix(accepted.StorageKey, "7/") {
		t.Fatalf("expected owner-scoped key, got %q", accepted.StorageKey)
	}
	if !strings.HasSuffix(accepted.StorageKey, ".wav") {
		t.Fatalf("expected wav extension, got %q", accepted.StorageKey)
	}
	if _, err := os.Stat(accepted.Path); err != nil {
		t.Fatalf("expected stored file: %v", err)
	}
}

func TestAcceptRejectsDisallowedTypeBeforeWriting(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	probeCalled := false
	validator := ingest.NewValidator(cfg, logging.NewNop(), ingest.WithProbe(
		func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
			probeCalled = true
			return ffprobe.Result{}, nil
		},
	))

	bodyRead := false
	body := readerFunc(func(p []byte) (int, error) {
		bodyRead = true
		return 0, errors.New("should not be read")
	})
	_, err := validator.Accept(context.Background(), ingest.Upload{
		OwnerID:     1,
		ContentType: "video/mp4",
		Body:        body,
	})
	if !errors.Is(err, services.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if bodyRead || probeCalled {
		t.Fatal("expected rejection before reading body or probing")
	}
	assertUploadDirEmpty(t, cfg.Paths.UploadDir)
}

func TestAcceptNormalizesContentType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	validator := ingest.NewValidator(cfg, logging.NewNop(), ingest.WithProbe(healthyProbe("10")))

	_, err := validator.Accept(context.Background(), ingest.Upload{
		OwnerID:     1,
		ContentType: " Audio/WAV; charset=binary ",
		Body:        strings.NewReader("payload"),
	})
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
}

func TestAcceptRejectsOversizedUpload(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxUploadMB(1))
	validator := ingest.NewValidator(cfg, logging.NewNop(), ingest.WithProbe(healthyProbe("10")))

	oversized := strings.NewReader(strings.Repeat("x", 1<<20+1))
	_, err := validator.Accept(context.Background(), ingest.Upload{
		OwnerID:     1,
		ContentType: "audio/mp3",
		Body:        oversized,
	})
	if !errors.Is(err, services.ErrTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
	assertUploadDirEmpty(t, cfg.Paths.UploadDir)
}

func TestAcceptRejectsUndecodableUpload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	validator := ingest.NewValidator(cfg, logging.NewNop(), ingest.WithProbe(
		func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
			return ffprobe.Result{}, errors.New("moov atom not found")
		},
	))

	_, err := validator.Accept(context.Background(), ingest.Upload{
		OwnerID:     1,
		ContentType: "audio/wav",
		Body:        strings.NewReader("not audio"),
	})
	if !errors.Is(err, services.ErrCorruptAudio) {
		t.Fatalf("expected corrupt audio, got %v", err)
	}
	assertUploadDirEmpty(t, cfg.Paths.UploadDir)
}

func TestAcceptRejectsUploadWithoutAudioStream(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	validator := ingest.NewValidator(cfg, logging.NewNop(), ingest.WithProbe(
		func(ctx context.Context, binary, path string) (ffprobe.Result, error) {
			return ffprobe.Result{
				Streams: []ffprobe.Stream{{CodecType: "data"}},
				Format:  ffprobe.Format{Duration: "10"},
			}, nil
		},
	))

	_, err := validator.Accept(context.Background(), ingest.Upload{
		OwnerID:     1,
		ContentType: "audio/wav",
		Body:        strings.NewReader("container without audio"),
	})
	if !errors.Is(err, services.ErrCorruptAudio) {
		t.Fatalf("expected corrupt audio, got %v", err)
	}
	assertUploadDirEmpty(t, cfg.Paths.UploadDir)
}

func TestAcceptRejectsZeroDuration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	validator := ingest.NewValidator(cfg, logging.NewNop(), ingest.WithProbe(healthyProbe("0")))

	_, err := validator.Accept(context.Background(), ingest.Upload{
		OwnerID:     1,
		ContentType: "audio/wav",
		Body:        strings.NewReader("empty recording"),
	})
	if !errors.Is(err, services.ErrCorruptAudio) {
		t.Fatalf("expected corrupt audio, got %v", err)
	}
	assertUploadDirEmpty(t, cfg.Paths.UploadDir)
}

func TestAcceptGeneratesUniqueKeys(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	validator := ingest.NewValidator(cfg, logging.NewNop(), ingest.WithProbe(healthyProbe("5")))

	seen := make(map[string]struct{})
	for i := 0; i < 5; i++ {
		accepted, err := validator.Accept(context.Background(), ingest.Upload{
			OwnerID:     1,
			ContentType: "audio/wav",
			Body:        strings.NewReader("payload"),
		})
		if err != nil {
			t.Fatalf("Accept failed: %v", err)
		}
		if _, dup := seen[accepted.StorageKey]; dup {
			t.Fatalf("duplicate storage key %q", accepted.StorageKey)
		}
		seen[accepted.StorageKey] = struct{}{}
	}
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func assertUploadDirEmpty(t *testing.T, dir string) {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk upload dir: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected empty upload dir, found %v", files)
	}
}
