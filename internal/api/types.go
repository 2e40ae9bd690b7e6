package api

import (
	"time"

	"fluently/internal/deps"
	"fluently/internal/progress"
	"fluently/internal/recording"
)

// RecordingView is the transport representation of a recording.
type RecordingView struct {
	ID              int64   `json:"id"`
	OwnerID         int64   `json:"ownerId"`
	StorageKey      string  `json:"storageKey"`
	DurationSeconds float64 `json:"durationSeconds"`
	Description     string  `json:"description,omitempty"`
	Status          string  `json:"status"`
	FailureKind     string  `json:"failureKind,omitempty"`
	FailureMessage  string  `json:"failureMessage,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

// ResultView is the transport representation of a completed analysis.
type ResultView struct {
	RecordingID       int64          `json:"recordingId"`
	TotalDisfluencies int            `json:"totalDisfluencies"`
	DisfluencyRate    float64        `json:"disfluencyRate"`
	SpeechRate        float64        `json:"speechRate"`
	FluencyScore      float64        `json:"fluencyScore"`
	DetailedAnalysis  map[string]any `json:"detailedAnalysis,omitempty"`
	CreatedAt         string         `json:"createdAt"`
}

// SubmissionView reports the outcome of a dispatch request.
type SubmissionView struct {
	RecordingID   int64  `json:"recordingId"`
	Enqueued      bool   `json:"enqueued"`
	CorrelationID string `json:"correlationId"`
}

// RecordingListResponse wraps a paginated listing.
type RecordingListResponse struct {
	Items  []RecordingView `json:"items"`
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Limit  int             `json:"limit"`
}

// ProgressView is the transport representation of a windowed progress report.
type ProgressView struct {
	OwnerID               int64              `json:"ownerId"`
	WindowStart           string             `json:"windowStart"`
	WindowEnd             string             `json:"windowEnd"`
	SampleCount           int                `json:"sampleCount"`
	AverageDisfluencyRate float64            `json:"averageDisfluencyRate"`
	AverageFluencyScore   float64            `json:"averageFluencyScore"`
	ImprovementRate       float64            `json:"improvementRate"`
	TypeDistribution      map[string]float64 `json:"typeDistribution,omitempty"`
}

// StatusSummary reports queue depth per lifecycle state.
type StatusSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// DependencyStatus reports the availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates runtime information for the status endpoint and CLI.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid,omitempty"`
	DBPath       string             `json:"dbPath,omitempty"`
	LockFilePath string             `json:"lockFilePath,omitempty"`
	ModelVersion int                `json:"modelVersion,omitempty"`
	Queue        StatusSummary      `json:"queue"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// FromRecording converts a stored recording into its DTO.
func FromRecording(rec *recording.Recording) RecordingView {
	if rec == nil {
		return RecordingView{}
	}
	return RecordingView{
		ID:              rec.ID,
		OwnerID:         rec.OwnerID,
		StorageKey:      rec.StorageKey,
		DurationSeconds: rec.DurationSeconds,
		Description:     rec.Description,
		Status:          string(rec.Status),
		FailureKind:     rec.FailureKind,
		FailureMessage:  rec.FailureMessage,
		CreatedAt:       formatTimestamp(rec.CreatedAt),
		UpdatedAt:       formatTimestamp(rec.UpdatedAt),
	}
}

// FromRecordings converts a slice of stored recordings.
func FromRecordings(recs []*recording.Recording) []RecordingView {
	views := make([]RecordingView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, FromRecording(rec))
	}
	return views
}

// FromResult converts a stored analysis result into its DTO.
func FromResult(result *recording.Result) ResultView {
	if result == nil {
		return ResultView{}
	}
	return ResultView{
		RecordingID:       result.RecordingID,
		TotalDisfluencies: result.TotalDisfluencies,
		DisfluencyRate:    result.DisfluencyRate,
		SpeechRate:        result.SpeechRate,
		FluencyScore:      result.FluencyScore,
		DetailedAnalysis:  result.DetailedAnalysis,
		CreatedAt:         formatTimestamp(result.CreatedAt),
	}
}

// FromReport converts a progress report into its DTO.
func FromReport(report progress.Report) ProgressView {
	return ProgressView{
		OwnerID:               report.OwnerID,
		WindowStart:           formatTimestamp(report.WindowStart),
		WindowEnd:             formatTimestamp(report.WindowEnd),
		SampleCount:           report.SampleCount,
		AverageDisfluencyRate: report.AverageDisfluencyRate,
		AverageFluencyScore:   report.AverageFluencyScore,
		ImprovementRate:       report.ImprovementRate,
		TypeDistribution:      report.TypeDistribution,
	}
}

// FromCounts converts store status counts into the status DTO.
func FromCounts(counts recording.StatusCounts) StatusSummary {
	return StatusSummary{
		Total:      counts.Total,
		Pending:    counts.Pending,
		Processing: counts.Processing,
		Completed:  counts.Completed,
		Failed:     counts.Failed,
	}
}

// FromDependencies converts dependency check results into their DTOs.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}
	return out
}
