package recording

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UpsertMetric writes a windowed aggregate, replacing any prior value for the
// same owner, type, and window. Re-running an aggregation pass converges on
// the same stored rows.
func (s *Store) UpsertMetric(ctx context.Context, metric *Metric) error {
	if metric == nil {
		return errors.New("metric is nil")
	}
	if !metric.WindowEnd.After(metric.WindowStart) {
		return fmt.Errorf("metric window end %s not after start %s", metric.WindowEnd, metric.WindowStart)
	}

	var metadataJSON any
	if len(metric.Metadata) > 0 {
		encoded, err := json.Marshal(metric.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metric metadata: %w", err)
		}
		metadataJSON = string(encoded)
	}

	now := formatTime(time.Now())
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO progress_metrics (owner_id, metric_type, value, window_start, window_end, metadata, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (owner_id, metric_type, window_start, window_end)
         DO UPDATE SET value = excluded.value, metadata = excluded.metadata, created_at = excluded.created_at`,
		metric.OwnerID,
		metric.Type,
		metric.Value,
		formatTime(metric.WindowStart),
		formatTime(metric.WindowEnd),
		metadataJSON,
		now,
	); err != nil {
		return fmt.Errorf("upsert metric: %w", err)
	}
	return nil
}

// GetMetric returns the stored aggregate for one owner, type, and window, or
// nil when the window was never computed.
func (s *Store) GetMetric(ctx context.Context, ownerID int64, metricType MetricType, windowStart, windowEnd time.Time) (*Metric, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+metricColumns+` FROM progress_metrics
         WHERE owner_id = ? AND metric_type = ? AND window_start = ? AND window_end = ?`,
		ownerID,
		metricType,
		formatTime(windowStart),
		formatTime(windowEnd),
	)
	metric, err := scanMetric(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get metric: %w", err)
	}
	return metric, nil
}

// MetricsForWindow returns every stored aggregate for one owner and window.
func (s *Store) MetricsForWindow(ctx context.Context, ownerID int64, windowStart, windowEnd time.Time) ([]*Metric, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+metricColumns+` FROM progress_metrics
         WHERE owner_id = ? AND window_start = ? AND window_end = ?
         ORDER BY metric_type`,
		ownerID,
		formatTime(windowStart),
		formatTime(windowEnd),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics for window: %w", err)
	}
	defer rows.Close()

	var metrics []*Metric
	for rows.Next() {
		metric, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		metrics = append(metrics, metric)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return metrics, nil
}

const metricColumns = "id, owner_id, metric_type, value, window_start, window_end, metadata, created_at"

func scanMetric(scanner interface{ Scan(dest ...any) error }) (*Metric, error) {
	var (
		id          int64
		ownerID     int64
		metricType  string
		value       float64
		startRaw    string
		endRaw      string
		metadataRaw sql.NullString
		createdRaw  sql.NullString
	)

	if err := scanner.Scan(&id, &ownerID, &metricType, &value, &startRaw, &endRaw, &metadataRaw, &createdRaw); err != nil {
		return nil, err
	}

	metric := &Metric{
		ID:      id,
		OwnerID: ownerID,
		Type:    MetricType(strings.TrimSpace(metricType)),
		Value:   value,
	}
	if start, err := parseTimeString(startRaw); err == nil {
		metric.WindowStart = start
	}
	if end, err := parseTimeString(endRaw); err == nil {
		metric.WindowEnd = end
	}
	if metadataRaw.Valid && metadataRaw.String != "" {
		metadata := make(map[string]any)
		if err := json.Unmarshal([]byte(metadataRaw.String), &metadata); err != nil {
			return nil, fmt.Errorf("decode metric metadata: %w", err)
		}
		metric.Metadata = metadata
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		metric.CreatedAt = created
	}
	return metric, nil
}
