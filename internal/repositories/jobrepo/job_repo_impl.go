package jobrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/infrastructure/database"
)

type jobRepositoryImpl struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IJobRepository {
	return &jobRepositoryImpl{
		db:     db.Db,
		logger: logger,
	}
}

func (r *jobRepositoryImpl) Enqueue(ctx context.Context, ex database.Execer, job domain.NotificationJob) error {
	const query = `
		INSERT INTO notification_jobs (
			id, session_id, kind, payload, attempt, max_attempts,
			next_run_at, status, last_error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (session_id, kind) DO NOTHING`

	_, err := ex.ExecContext(ctx, query,
		job.ID,
		job.SessionID,
		string(job.Kind),
		[]byte(job.Payload),
		job.Attempt,
		job.MaxAttempts,
		job.NextRunAt,
		string(job.Status),
		job.LastError,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).
			Str("session_id", job.SessionID).
			Str("kind", string(job.Kind)).
			Msg("Failed to enqueue notification job")
		return fmt.Errorf("failed to enqueue notification job: %w", err)
	}

	return nil
}

func (r *jobRepositoryImpl) ClaimDue(ctx context.Context, kind domain.JobKind, now time.Time, limit int) ([]domain.NotificationJob, error) {
	const query = `
		UPDATE notification_jobs
		SET status = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM notification_jobs
			WHERE kind = $2 AND status = $3 AND next_run_at <= $4
			ORDER BY next_run_at
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, session_id, kind, payload, attempt, max_attempts,
			next_run_at, status, last_error, created_at, updated_at`

	rows, err := r.db.QueryContext(ctx, query,
		string(domain.JobStatusInFlight),
		string(kind),
		string(domain.JobStatusQueued),
		now,
		limit,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("kind", string(kind)).Msg("Failed to claim due jobs")
		return nil, fmt.Errorf("failed to claim due jobs: %w", err)
	}
	defer rows.Close()

	return r.scanJobs(rows)
}

func (r *jobRepositoryImpl) MarkDone(ctx context.Context, id string, attempt int) error {
	const query = `
		UPDATE notification_jobs
		SET status = $1, attempt = $2, last_error = '', updated_at = now()
		WHERE id = $3`

	if _, err := r.db.ExecContext(ctx, query, string(domain.JobStatusDone), attempt, id); err != nil {
		r.logger.Error().Err(err).Str("job_id", id).Msg("Failed to mark job done")
		return fmt.Errorf("failed to mark job done: %w", err)
	}
	return nil
}

func (r *jobRepositoryImpl) Reschedule(ctx context.Context, id string, attempt int, nextRunAt time.Time, lastError string) error {
	const query = `
		UPDATE notification_jobs
		SET status = $1, attempt = $2, next_run_at = $3, last_error = $4, updated_at = now()
		WHERE id = $5`

	if _, err := r.db.ExecContext(ctx, query,
		string(domain.JobStatusQueued), attempt, nextRunAt, lastError, id,
	); err != nil {
		r.logger.Error().Err(err).Str("job_id", id).Msg("Failed to reschedule job")
		return fmt.Errorf("failed to reschedule job: %w", err)
	}
	return nil
}

func (r *jobRepositoryImpl) MarkDead(ctx context.Context, id string, attempt int, lastError string) error {
	const query = `
		UPDATE notification_jobs
		SET status = $1, attempt = $2, last_error = $3, updated_at = now()
		WHERE id = $4`

	if _, err := r.db.ExecContext(ctx, query, string(domain.JobStatusDead), attempt, lastError, id); err != nil {
		r.logger.Error().Err(err).Str("job_id", id).Msg("Failed to mark job dead")
		return fmt.Errorf("failed to mark job dead: %w", err)
	}
	return nil
}

func (r *jobRepositoryImpl) RequeueStale(ctx context.Context, before time.Time) (int64, error) {
	const query = `
		UPDATE notification_jobs
		SET status = $1, next_run_at = now(), updated_at = now()
		WHERE status = $2 AND updated_at < $3`

	result, err := r.db.ExecContext(ctx, query,
		string(domain.JobStatusQueued),
		string(domain.JobStatusInFlight),
		before,
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to requeue stale jobs")
		return 0, fmt.Errorf("failed to requeue stale jobs: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows, nil
}

func (r *jobRepositoryImpl) ListDead(ctx context.Context, limit int) ([]domain.NotificationJob, error) {
	const query = `
		SELECT id, session_id, kind, payload, attempt, max_attempts,
			next_run_at, status, last_error, created_at, updated_at
		FROM notification_jobs
		WHERE status = $1
		ORDER BY updated_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, string(domain.JobStatusDead), limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list dead jobs")
		return nil, fmt.Errorf("failed to list dead jobs: %w", err)
	}
	defer rows.Close()

	return r.scanJobs(rows)
}

func (r *jobRepositoryImpl) PruneDone(ctx context.Context, before time.Time) (int64, error) {
	const query = `
		DELETE FROM notification_jobs
		WHERE status = $1 AND updated_at < $2`

	result, err := r.db.ExecContext(ctx, query, string(domain.JobStatusDone), before)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to prune done jobs")
		return 0, fmt.Errorf("failed to prune done jobs: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows, nil
}

func (r *jobRepositoryImpl) scanJobs(rows *sql.Rows) ([]domain.NotificationJob, error) {
	jobs := make([]domain.NotificationJob, 0)
	for rows.Next() {
		var (
			job     domain.NotificationJob
			kind    string
			status  string
			payload []byte
		)
		if err := rows.Scan(
			&job.ID,
			&job.SessionID,
			&kind,
			&payload,
			&job.Attempt,
			&job.MaxAttempts,
			&job.NextRunAt,
			&status,
			&job.LastError,
			&job.CreatedAt,
			&job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		job.Kind = domain.JobKind(kind)
		job.Status = domain.JobStatus(status)
		job.Payload = payload
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job rows: %w", err)
	}
	return jobs, nil
}
