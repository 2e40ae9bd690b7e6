package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for failure classification. Validation markers surface
// synchronously to the caller of ingestion; pipeline markers are absorbed into
// the recording status machine and retained as the stored failure kind.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrTooLarge          = errors.New("payload too large")
	ErrCorruptAudio      = errors.New("corrupt audio")
	ErrQueueUnavailable  = errors.New("queue unavailable")
	ErrIO                = errors.New("io error")
	ErrFeatureExtraction = errors.New("feature extraction error")
	ErrInference         = errors.New("inference error")
	ErrModelLoad         = errors.New("model load error")
	ErrNotFound          = errors.New("not found")
	ErrTimeout           = errors.New("timeout")
	ErrTransient         = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the stable classification string recorded alongside a failed
// recording so operators can diagnose which pipeline stage broke.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	case errors.Is(err, ErrCorruptAudio):
		return "corrupt_audio"
	case errors.Is(err, ErrQueueUnavailable):
		return "queue_unavailable"
	case errors.Is(err, ErrIO):
		return "io_error"
	case errors.Is(err, ErrFeatureExtraction):
		return "feature_extraction_error"
	case errors.Is(err, ErrInference):
		return "inference_error"
	case errors.Is(err, ErrModelLoad):
		return "model_load_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timed_out"
	default:
		return "transient"
	}
}

// IsValidation reports whether the error is one of the synchronous ingestion
// rejections that belong to the uploader, not the pipeline.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrCorruptAudio)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
