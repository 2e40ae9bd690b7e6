package recording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Create inserts a new recording in the Pending state.
func (s *Store) Create(ctx context.Context, ownerID int64, storageKey string, durationSeconds float64, description string) (*Recording, error) {
	if strings.TrimSpace(storageKey) == "" {
		return nil, errors.New("storage key is required")
	}
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %v", durationSeconds)
	}

	timestamp := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO recordings (
            owner_id, storage_key, duration_seconds, description, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ownerID,
		storageKey,
		durationSeconds,
		nullableString(description),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a recording by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Recording, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return rec, nil
}

// ListByOwner returns a page of an owner's recordings ordered by creation time
// descending, plus the total count.
func (s *Store) ListByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]*Recording, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var items []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM recordings WHERE owner_id = ?`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count recordings: %w", err)
	}
	return items, total, nil
}

// Delete removes a recording unconditionally, regardless of status. The
// analysis result cascades via foreign key; the caller removes the storage
// object. A job completing after deletion finds no row to update and its
// result is discarded.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete recording: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkProcessing performs the Pending -> Processing compare-and-set. It is the
// sole guard against double execution under at-least-once delivery: exactly
// one caller observes claimed == true, every redelivery observes false.
func (s *Store) MarkProcessing(ctx context.Context, id int64) (bool, error) {
	return s.transition(ctx, id, StatusPending, StatusProcessing, "", "")
}

// MarkFailed performs the Processing -> Failed compare-and-set, recording the
// failure kind and message for diagnosis. No result row is ever written on
// this path.
func (s *Store) MarkFailed(ctx context.Context, id int64, kind, message string) (bool, error) {
	return s.transition(ctx, id, StatusProcessing, StatusFailed, kind, message)
}

// ResetForRetry re-arms a Failed recording to Pending. This is the explicit,
// separately authorized re-submission path; nothing in the pipeline calls it
// automatically.
func (s *Store) ResetForRetry(ctx context.Context, id int64) (bool, error) {
	return s.transition(ctx, id, StatusFailed, StatusPending, "", "")
}

// transition applies a guarded status update as a single atomic
// check-and-update. A from-status mismatch affects zero rows and reports
// false, which callers treat as a duplicate-delivery no-op.
func (s *Store) transition(ctx context.Context, id int64, from, to Status, failureKind, failureMessage string) (bool, error) {
	if !CanTransition(from, to) {
		return false, fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE recordings
         SET status = ?, failure_kind = ?, failure_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		to,
		nullableString(failureKind),
		nullableString(failureMessage),
		formatTime(time.Now()),
		id,
		from,
	)
	if err != nil {
		return false, fmt.Errorf("transition %s -> %s: %w", from, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CountsByStatus returns the number of recordings per lifecycle state.
func (s *Store) CountsByStatus(ctx context.Context) (StatusCounts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM recordings GROUP BY status`)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := StatusCounts{}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return StatusCounts{}, err
		}
		counts.Total += count
		switch status {
		case StatusPending:
			counts.Pending += count
		case StatusProcessing:
			counts.Processing += count
		case StatusCompleted:
			counts.Completed += count
		case StatusFailed:
			counts.Failed += count
		}
	}
	return counts, rows.Err()
}

const recordingColumns = "id, owner_id, storage_key, duration_seconds, description, status, failure_kind, failure_message, created_at, updated_at"

func scanRecording(scanner interface{ Scan(dest ...any) error }) (*Recording, error) {
	var (
		id             int64
		ownerID        int64
		storageKey     string
		duration       float64
		description    sql.NullString
		statusStr      string
		failureKind    sql.NullString
		failureMessage sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&ownerID,
		&storageKey,
		&duration,
		&description,
		&statusStr,
		&failureKind,
		&failureMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	rec := &Recording{
		ID:              id,
		OwnerID:         ownerID,
		StorageKey:      storageKey,
		DurationSeconds: duration,
		Description:     description.String,
		Status:          Status(statusStr),
		FailureKind:     failureKind.String,
		FailureMessage:  failureMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}
