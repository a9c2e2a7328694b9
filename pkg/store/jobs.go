package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/data-refinery/pkg/converter"
	"github.com/David-Botos/data-refinery/pkg/model"
)

const jobColumns = `id, source, file_key, file_type, status, error, attempts, quality_score,
	original_rows, cleaned_rows, snapshot_table, created_at, updated_at`

// CreateJob inserts a job. An empty status is stored as pending.
func (s *SQLStore) CreateJob(ctx context.Context, job JobRecord) error {
	now := s.now()
	if job.Status == "" {
		job.Status = model.JobPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO refinery_jobs (`+jobColumns+`)
		VALUES (:id, :source, :file_key, :file_type, :status, :error, :attempts, :quality_score,
			:original_rows, :cleaned_rows, :snapshot_table, :created_at, :updated_at)`, job)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.ID, err)
	}

	s.logger.Info("Job created",
		zap.String("job_id", job.ID),
		zap.String("source", job.Source),
		zap.String("file_key", job.FileKey))
	return nil
}

// GetJob returns a job by id
func (s *SQLStore) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	var job JobRecord
	err := s.db.GetContext(ctx, &job, s.db.Rebind(`SELECT `+jobColumns+` FROM refinery_jobs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return &job, nil
}

// ListJobs returns the most recent jobs, optionally filtered by status
func (s *SQLStore) ListJobs(ctx context.Context, status model.JobStatus, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + jobColumns + ` FROM refinery_jobs`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	var jobs []JobRecord
	if err := s.db.SelectContext(ctx, &jobs, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// ClaimPendingJobs moves up to limit pending jobs, oldest first, to
// processing and returns them. Concurrent Postgres workers skip rows
// another worker has locked.
func (s *SQLStore) ClaimPendingJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	var claimed []JobRecord
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		query := `SELECT ` + jobColumns + ` FROM refinery_jobs WHERE status = ? ORDER BY created_at, id LIMIT ?`
		if s.dialect == converter.Postgres {
			query += ` FOR UPDATE SKIP LOCKED`
		}
		if err := tx.SelectContext(ctx, &claimed, tx.Rebind(query), model.JobPending, limit); err != nil {
			return fmt.Errorf("failed to select pending jobs: %w", err)
		}

		now := s.now()
		for i := range claimed {
			_, err := tx.ExecContext(ctx, tx.Rebind(`
				UPDATE refinery_jobs SET status = ?, attempts = attempts + 1, updated_at = ?
				WHERE id = ?`), model.JobProcessing, now, claimed[i].ID)
			if err != nil {
				return fmt.Errorf("failed to claim job %s: %w", claimed[i].ID, err)
			}
			claimed[i].Status = model.JobProcessing
			claimed[i].Attempts++
			claimed[i].UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(claimed) > 0 {
		s.logger.Debug("Claimed pending jobs", zap.Int("count", len(claimed)))
	}
	return claimed, nil
}

// MarkProcessing moves a job to processing and clears the error left by
// an earlier attempt
func (s *SQLStore) MarkProcessing(ctx context.Context, id string) error {
	return s.setStatus(ctx, s.db, id, model.JobProcessing, sql.NullString{})
}

// Requeue puts a job back to pending after a retryable failure
func (s *SQLStore) Requeue(ctx context.Context, id, reason string) error {
	return s.setStatus(ctx, s.db, id, model.JobPending, sql.NullString{String: reason, Valid: reason != ""})
}

// MarkFailed records a terminal failure
func (s *SQLStore) MarkFailed(ctx context.Context, id, reason string) error {
	if err := s.setStatus(ctx, s.db, id, model.JobFailed, sql.NullString{String: reason, Valid: true}); err != nil {
		return err
	}
	s.logger.Warn("Job failed", zap.String("job_id", id), zap.String("error", reason))
	return nil
}

func (s *SQLStore) setStatus(ctx context.Context, ex sqlx.ExtContext, id string, status model.JobStatus, reason sql.NullString) error {
	res, err := ex.ExecContext(ctx, ex.Rebind(`
		UPDATE refinery_jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`),
		status, reason, s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to set job %s to %s: %w", id, status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}
