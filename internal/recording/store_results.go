package recording

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CompleteWithResult writes the analysis result and the Processing ->
// Completed transition as one transaction: both commit or neither does. When
// the recording is no longer in Processing (duplicate delivery) or no longer
// exists (deleted mid-flight), the result is discarded and committed == false,
// never an error.
func (s *Store) CompleteWithResult(ctx context.Context, recordingID int64, result Result) (bool, error) {
	if result.TotalDisfluencies < 0 {
		return false, fmt.Errorf("total disfluencies must be >= 0, got %d", result.TotalDisfluencies)
	}
	if result.DisfluencyRate < 0 || result.SpeechRate < 0 {
		return false, errors.New("rates must be >= 0")
	}

	var detailJSON any
	if result.DetailedAnalysis != nil {
		encoded, err := json.Marshal(result.DetailedAnalysis)
		if err != nil {
			return false, fmt.Errorf("marshal detailed analysis: %w", err)
		}
		detailJSON = string(encoded)
	}

	committed := false
	err := retryOnBusy(ensureContext(ctx), func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin completion tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		now := formatTime(time.Now())
		res, err := tx.ExecContext(
			ctx,
			`UPDATE recordings SET status = ?, failure_kind = NULL, failure_message = NULL, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusCompleted,
			now,
			recordingID,
			StatusProcessing,
		)
		if err != nil {
			return fmt.Errorf("complete transition: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			// Recording deleted or already terminal; discard the result.
			committed = false
			return tx.Commit()
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO analysis_results (
                recording_id, total_disfluencies, disfluency_rate, speech_rate,
                fluency_score, detailed_analysis, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			recordingID,
			result.TotalDisfluencies,
			result.DisfluencyRate,
			result.SpeechRate,
			result.FluencyScore,
			detailJSON,
			now,
		); err != nil {
			return fmt.Errorf("insert analysis result: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit completion: %w", err)
		}
		committed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return committed, nil
}

// GetResult returns the analysis result for a recording, or nil when none exists.
func (s *Store) GetResult(ctx context.Context, recordingID int64) (*Result, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+resultColumns+` FROM analysis_results WHERE recording_id = ?`,
		recordingID,
	)
	result, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis result: %w", err)
	}
	return result, nil
}

// ResultsInWindow returns an owner's results created in [start, end), joined
// through the parent recording and ordered by creation time ascending.
func (s *Store) ResultsInWindow(ctx context.Context, ownerID int64, start, end time.Time) ([]*Result, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+prefixedResultColumns+`
         FROM analysis_results r
         JOIN recordings rec ON rec.id = r.recording_id
         WHERE rec.owner_id = ? AND r.created_at >= ? AND r.created_at < ?
         ORDER BY r.created_at, r.id`,
		ownerID,
		formatTime(start),
		formatTime(end),
	)
	if err != nil {
		return nil, fmt.Errorf("query results in window: %w", err)
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

const resultColumns = "id, recording_id, total_disfluencies, disfluency_rate, speech_rate, fluency_score, detailed_analysis, created_at"

const prefixedResultColumns = "r.id, r.recording_id, r.total_disfluencies, r.disfluency_rate, r.speech_rate, r.fluency_score, r.detailed_analysis, r.created_at"

func scanResult(scanner interface{ Scan(dest ...any) error }) (*Result, error) {
	var (
		id          int64
		recordingID int64
		total       int
		disfluency  float64
		speech      float64
		fluency     float64
		detail      sql.NullString
		createdRaw  sql.NullString
	)

	if err := scanner.Scan(&id, &recordingID, &total, &disfluency, &speech, &fluency, &detail, &createdRaw); err != nil {
		return nil, err
	}

	result := &Result{
		ID:                id,
		RecordingID:       recordingID,
		TotalDisfluencies: total,
		DisfluencyRate:    disfluency,
		SpeechRate:        speech,
		FluencyScore:      fluency,
	}
	if detail.Valid && detail.String != "" {
		payload := map[string]any{}
		if err := json.Unmarshal([]byte(detail.String), &payload); err != nil {
			return nil, fmt.Errorf("decode detailed analysis: %w", err)
		}
		result.DetailedAnalysis = payload
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		result.CreatedAt = created
	}
	return result, nil
}
