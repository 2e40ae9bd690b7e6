package recording

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a recording.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status permits no further automatic transitions.
// Completed and Failed recordings only change through explicit owner actions
// (deletion, or a separately authorized retry).
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition is the single place lifecycle transitions are validated.
// Pending -> Processing is claimed by exactly one worker (compare-and-set in
// the store); Processing -> Completed happens only together with the result
// insert; Processing -> Failed records the failure kind. Failed -> Pending is
// the explicit retry path and never happens automatically.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	case StatusFailed:
		return to == StatusPending
	case StatusCompleted:
		return false
	default:
		return false
	}
}

// Recording represents one uploaded audio artifact persisted in SQLite.
type Recording struct {
	ID              int64
	OwnerID         int64
	StorageKey      string
	DurationSeconds float64
	Description     string
	Status          Status
	FailureKind     string
	FailureMessage  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Result is the immutable record of one successful pipeline run. Rates are
// expressed per minute of audio; FluencyScore is bounded to [0, 100] with
// higher meaning more fluent.
type Result struct {
	ID                int64
	RecordingID       int64
	TotalDisfluencies int
	DisfluencyRate    float64
	SpeechRate        float64
	FluencyScore      float64
	DetailedAnalysis  map[string]any
	CreatedAt         time.Time
}

// JobState tracks delivery of one queued analysis request.
type JobState string

const (
	JobQueued JobState = "queued"
	JobLeased JobState = "leased"
	JobDone   JobState = "done"
	JobFailed JobState = "failed"
)

// Job is a durable request to analyze one recording. At most one job per
// recording may be active (queued or leased) at any time; the store enforces
// this with a partial unique index.
type Job struct {
	ID            int64
	RecordingID   int64
	State         JobState
	Attempts      int
	CorrelationID string
	LastHeartbeat *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MetricType identifies a windowed progress aggregate.
type MetricType string

const (
	MetricAverageDisfluencyRate MetricType = "average_disfluency_rate"
	MetricImprovementRate       MetricType = "improvement_rate"
	MetricTypeDistribution      MetricType = "type_distribution"
)

// Metric is a windowed aggregate for one user. Writes are idempotent on the
// natural key (owner, type, window start, window end); the last write wins.
type Metric struct {
	ID          int64
	OwnerID     int64
	Type        MetricType
	Value       float64
	WindowStart time.Time
	WindowEnd   time.Time
	Metadata    map[string]any
	CreatedAt   time.Time
}

// StatusCounts summarizes queue depth per lifecycle state.
type StatusCounts struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
