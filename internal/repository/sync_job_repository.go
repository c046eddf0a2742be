package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
)

type SyncJobRepository interface {
	Create(ctx context.Context, job *models.SyncJob) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SyncJob, error)
	MarkRunning(ctx context.Context, id int64, startedAt time.Time) error
	MarkCompleted(ctx context.Context, id int64, synced, updated, failed int64, completedAt time.Time, durationMS int64) error
	MarkFailed(ctx context.Context, id int64, errorMessage string, completedAt time.Time, durationMS int64) error
	ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*models.SyncJob, error)
	ListStuck(ctx context.Context, runningLongerThan time.Duration) ([]*models.SyncJob, error)
}

type syncJobRepository struct {
	db *sql.DB
}

func NewSyncJobRepository(db *sql.DB) SyncJobRepository {
	return &syncJobRepository{db: db}
}

func (r *syncJobRepository) Create(ctx context.Context, job *models.SyncJob) (int64, error) {
	query := `
		INSERT INTO sync_jobs (account_id, job_type, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, job.AccountID, job.JobType, models.SyncJobStatusPending).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *syncJobRepository) GetByID(ctx context.Context, id int64) (*models.SyncJob, error) {
	query := `
		SELECT id, account_id, job_type, status, items_synced, items_updated,
			items_failed, error_message, started_at, completed_at, duration_ms, created_at
		FROM sync_jobs
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	job, err := scanSyncJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return job, nil
}

// MarkRunning only advances a pending job. Status is monotonic through
// pending -> running -> {completed|failed}; a terminal job is never revived.
func (r *syncJobRepository) MarkRunning(ctx context.Context, id int64, startedAt time.Time) error {
	query := `
		UPDATE sync_jobs
		SET status = $1, started_at = $2
		WHERE id = $3 AND status = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.SyncJobStatusRunning, startedAt, id, models.SyncJobStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *syncJobRepository) MarkCompleted(ctx context.Context, id int64, synced, updated, failed int64, completedAt time.Time, durationMS int64) error {
	query := `
		UPDATE sync_jobs
		SET status = $1,
			items_synced = $2,
			items_updated = $3,
			items_failed = $4,
			completed_at = $5,
			duration_ms = $6
		WHERE id = $7 AND status = $8
	`
	_, err := r.db.ExecContext(ctx, query, models.SyncJobStatusCompleted,
		synced, updated, failed, completedAt, durationMS, id, models.SyncJobStatusRunning)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *syncJobRepository) MarkFailed(ctx context.Context, id int64, errorMessage string, completedAt time.Time, durationMS int64) error {
	query := `
		UPDATE sync_jobs
		SET status = $1,
			error_message = $2,
			completed_at = $3,
			duration_ms = $4
		WHERE id = $5 AND status IN ($6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, models.SyncJobStatusFailed,
		errorMessage, completedAt, durationMS, id,
		models.SyncJobStatusPending, models.SyncJobStatusRunning)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *syncJobRepository) ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*models.SyncJob, error) {
	query := `
		SELECT id, account_id, job_type, status, items_synced, items_updated,
			items_failed, error_message, started_at, completed_at, duration_ms, created_at
		FROM sync_jobs
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectSyncJobs(rows)
}

// ListStuck surfaces jobs still running past the expected platform latency.
// These indicate a crashed worker; operators act on them, the engine does not
// self-heal.
func (r *syncJobRepository) ListStuck(ctx context.Context, runningLongerThan time.Duration) ([]*models.SyncJob, error) {
	cutoff := time.Now().Add(-runningLongerThan)
	query := `
		SELECT id, account_id, job_type, status, items_synced, items_updated,
			items_failed, error_message, started_at, completed_at, duration_ms, created_at
		FROM sync_jobs
		WHERE status = $1 AND started_at < $2
		ORDER BY started_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, models.SyncJobStatusRunning, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectSyncJobs(rows)
}

func scanSyncJob(row rowScanner) (*models.SyncJob, error) {
	var job models.SyncJob
	err := row.Scan(&job.ID, &job.AccountID, &job.JobType, &job.Status,
		&job.ItemsSynced, &job.ItemsUpdated, &job.ItemsFailed, &job.ErrorMessage,
		&job.StartedAt, &job.CompletedAt, &job.DurationMS, &job.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func collectSyncJobs(rows *sql.Rows) ([]*models.SyncJob, error) {
	var jobs []*models.SyncJob
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return jobs, nil
}
