package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fluently/internal/config"
	"fluently/internal/fileutil"
	"fluently/internal/logging"
	"fluently/internal/media/ffprobe"
	"fluently/internal/services"
	"fluently/internal/textutil"
)

// ProbeFunc inspects a stored upload. It matches ffprobe.Inspect so tests can
// substitute a canned result without shelling out.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Upload describes one inbound recording prior to validation.
type Upload struct {
	OwnerID     int64
	ContentType string
	Filename    string
	Body        io.Reader
}

// Accepted describes a validated upload persisted under the upload directory.
type Accepted struct {
	StorageKey      string
	Path            string
	SizeBytes       int64
	DurationSeconds float64
	AudioStreams    int
}

// Option customizes a Validator.
type Option func(*Validator)

// WithProbe overrides the ffprobe invocation used to verify stored uploads.
func WithProbe(probe ProbeFunc) Option {
	return func(v *Validator) {
		if probe != nil {
			v.probe = probe
		}
	}
}

// Validator enforces the ingestion contract: declared content type against the
// allow list, the byte cap during streaming, and a decode probe of the stored
// file. Checks run cheapest first so oversized or mistyped payloads never
// reach the probe.
type Validator struct {
	cfg    *config.Config
	logger *slog.Logger
	probe  ProbeFunc
}

// NewValidator constructs a Validator backed by ffprobe.
func NewValidator(cfg *config.Config, logger *slog.Logger, opts ...Option) *Validator {
	v := &Validator{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "ingest"),
		probe:  ffprobe.Inspect,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Accept validates the upload and persists it under the upload directory.
// Rejected uploads leave no file behind.
func (v *Validator) Accept(ctx context.Context, upload Upload) (Accepted, error) {
	contentType := normalizeContentType(upload.ContentType)
	if _, ok := v.cfg.AllowedTypeSet()[contentType]; !ok {
		return Accepted{}, services.Wrap(services.ErrUnsupportedFormat, "ingest", "accept",
			fmt.Sprintf("content type %q not allowed", contentType), nil)
	}
	if upload.Body == nil {
		return Accepted{}, services.Wrap(services.ErrCorruptAudio, "ingest", "accept", "empty body", nil)
	}

	storageKey := newStorageKey(upload.OwnerID, contentType, upload.Filename)
	path := filepath.Join(v.cfg.Paths.UploadDir, filepath.FromSlash(storageKey))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Accepted{}, services.Wrap(services.ErrIO, "ingest", "accept", "create owner directory", err)
	}

	written, err := fileutil.WriteCapped(path, upload.Body, v.cfg.MaxUploadBytes())
	if err != nil {
		if errors.Is(err, fileutil.ErrSizeExceeded) {
			return Accepted{}, services.Wrap(services.ErrTooLarge, "ingest", "accept",
				fmt.Sprintf("upload exceeds %d MB cap", v.cfg.Ingest.MaxUploadMB), nil)
		}
		return Accepted{}, services.Wrap(services.ErrIO, "ingest", "accept", "store upload", err)
	}

	result, err := v.probe(ctx, v.cfg.FFprobeBinary(), path)
	if err != nil {
		v.discard(path)
		return Accepted{}, services.Wrap(services.ErrCorruptAudio, "ingest", "accept", "probe failed", err)
	}
	if result.AudioStreamCount() == 0 {
		v.discard(path)
		return Accepted{}, services.Wrap(services.ErrCorruptAudio, "ingest", "accept", "no audio stream", nil)
	}
	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		v.discard(path)
		return Accepted{}, services.Wrap(services.ErrCorruptAudio, "ingest", "accept", "unreadable duration", nil)
	}

	v.logger.Info("upload accepted",
		logging.Int64(logging.FieldOwnerID, upload.OwnerID),
		logging.String("storage_key", storageKey),
		logging.Int64("size_bytes", written),
		logging.Float64("duration_seconds", duration),
	)
	return Accepted{
		StorageKey:      storageKey,
		Path:            path,
		SizeBytes:       written,
		DurationSeconds: duration,
		AudioStreams:    result.AudioStreamCount(),
	}, nil
}

func (v *Validator) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		v.logger.Warn("failed to remove rejected upload", logging.String("path", path), logging.Error(err))
	}
}

func normalizeContentType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if idx := strings.IndexByte(value, ';'); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value
}

// newStorageKey builds an owner-scoped key that sorts chronologically and
// cannot collide across concurrent uploads.
func newStorageKey(ownerID int64, contentType, filename string) string {
	stamp := time.Now().UTC().Format("20060102T150405Z")
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%d/%s-%s%s", ownerID, stamp, suffix, extensionFor(contentType, filename))
}

func extensionFor(contentType, filename string) string {
	switch contentType {
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mp3", "audio/mpeg":
		return ".mp3"
	}
	safe := textutil.SanitizeFileName(filename)
	if ext := strings.ToLower(filepath.Ext(safe)); ext != "" {
		return ext
	}
	return ".audio"
}
