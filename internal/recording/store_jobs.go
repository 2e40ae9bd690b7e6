package recording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EnqueueJob inserts a queued job for the recording unless one is already
// active. Duplicate submissions coalesce against the partial unique index and
// report enqueued == false.
func (s *Store) EnqueueJob(ctx context.Context, recordingID int64, correlationID string) (bool, error) {
	timestamp := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (recording_id, state, attempts, correlation_id, created_at, updated_at)
         VALUES (?, ?, 0, ?, ?, ?)
         ON CONFLICT DO NOTHING`,
		recordingID,
		JobQueued,
		nullableString(correlationID),
		timestamp,
		timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("enqueue job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClaimNextJob leases the oldest queued job. The lease itself is a
// compare-and-set so concurrent workers never claim the same row; nil means
// the queue is empty.
func (s *Store) ClaimNextJob(ctx context.Context) (*Job, error) {
	for {
		row := s.db.QueryRowContext(
			ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE state = ? ORDER BY created_at, id LIMIT 1`,
			JobQueued,
		)
		job, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("next queued job: %w", err)
		}

		now := formatTime(time.Now())
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs SET state = ?, attempts = attempts + 1, last_heartbeat = ?, updated_at = ?
             WHERE id = ? AND state = ?`,
			JobLeased,
			now,
			now,
			job.ID,
			JobQueued,
		)
		if err != nil {
			return nil, fmt.Errorf("lease job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			// Lost the race to another worker; try the next queued job.
			continue
		}
		return s.GetJob(ctx, job.ID)
	}
}

// GetJob fetches a job by identifier. Returns nil when absent.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ActiveJobForRecording returns the queued or leased job for a recording, if any.
func (s *Store) ActiveJobForRecording(ctx context.Context, recordingID int64) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE recording_id = ? AND state IN (?, ?) LIMIT 1`,
		recordingID,
		JobQueued,
		JobLeased,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active job for recording: %w", err)
	}
	return job, nil
}

// HeartbeatJob refreshes the lease heartbeat for an in-flight job.
func (s *Store) HeartbeatJob(ctx context.Context, id int64) error {
	now := formatTime(time.Now())
	if err := retryOnBusy(ensureContext(ctx), func() error {
		_, err := s.db.ExecContext(
			ctx,
			`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND state = ?`,
			now,
			now,
			id,
			JobLeased,
		)
		return err
	}); err != nil {
		return fmt.Errorf("update job heartbeat: %w", err)
	}
	return nil
}

// FinishJob marks a leased job done or failed, ending its active window so a
// later submission for the same recording can enqueue again.
func (s *Store) FinishJob(ctx context.Context, id int64, state JobState) error {
	if state != JobDone && state != JobFailed {
		return fmt.Errorf("finish job: invalid terminal state %q", state)
	}
	now := formatTime(time.Now())
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET state = ?, last_heartbeat = NULL, updated_at = ? WHERE id = ? AND state = ?`,
		state,
		now,
		id,
		JobLeased,
	); err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

// ReclaimStaleJobs re-queues leased jobs whose heartbeat predates the cutoff.
// This is the at-least-once redelivery path after a worker crash. A crashed
// worker has usually already moved its recording to Processing, so the same
// transaction rolls those recordings back to Pending; without that reset the
// redelivered job would lose the Pending -> Processing compare-and-set and
// the recording would sit in Processing forever.
func (s *Store) ReclaimStaleJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	var reclaimed int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin reclaim tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		now := formatTime(time.Now())
		staleCutoff := formatTime(cutoff)

		if _, err := tx.ExecContext(
			ctx,
			`UPDATE recordings SET status = ?, updated_at = ?
             WHERE status = ? AND id IN (
                 SELECT recording_id FROM jobs
                 WHERE state = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?)`,
			StatusPending,
			now,
			StatusProcessing,
			JobLeased,
			staleCutoff,
		); err != nil {
			return fmt.Errorf("reset stale processing recordings: %w", err)
		}

		res, err := tx.ExecContext(
			ctx,
			`UPDATE jobs SET state = ?, last_heartbeat = NULL, updated_at = ?
             WHERE state = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
			JobQueued,
			now,
			JobLeased,
			staleCutoff,
		)
		if err != nil {
			return fmt.Errorf("requeue stale jobs: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit reclaim: %w", err)
		}
		reclaimed = affected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reclaimed, nil
}

// PruneFinishedJobs deletes terminal job rows older than the cutoff.
func (s *Store) PruneFinishedJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM jobs WHERE state IN (?, ?) AND updated_at < ?`,
		JobDone,
		JobFailed,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune finished jobs: %w", err)
	}
	return res.RowsAffected()
}

const jobColumns = "id, recording_id, state, attempts, correlation_id, last_heartbeat, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		recordingID  int64
		stateStr     string
		attempts     int
		correlation  sql.NullString
		heartbeatRaw sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(&id, &recordingID, &stateStr, &attempts, &correlation, &heartbeatRaw, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	job := &Job{
		ID:            id,
		RecordingID:   recordingID,
		State:         JobState(strings.TrimSpace(stateStr)),
		Attempts:      attempts,
		CorrelationID: correlation.String,
	}
	if heartbeatRaw.Valid {
		if hb, err := parseTimeString(heartbeatRaw.String); err == nil {
			job.LastHeartbeat = &hb
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}
