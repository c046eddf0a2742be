package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/socialsync/internal/models"
)

func newMockRepo(t *testing.T) (SyncJobRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewSyncJobRepository(db), mock, func() { db.Close() }
}

func TestSyncJobCreateStartsPending(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`INSERT INTO sync_jobs`).
		WithArgs(int64(7), models.SyncJobTypeManual, models.SyncJobStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := repo.Create(context.Background(), &models.SyncJob{
		AccountID: 7,
		JobType:   models.SyncJobTypeManual,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRunningOnlyAdvancesPending(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	startedAt := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE sync_jobs`).
		WithArgs(models.SyncJobStatusRunning, startedAt, int64(42), models.SyncJobStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRunning(context.Background(), 42, startedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkCompletedGuardsOnRunning(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	completedAt := time.Date(2025, 2, 1, 12, 5, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE sync_jobs`).
		WithArgs(models.SyncJobStatusCompleted, int64(10), int64(2), int64(1),
			completedAt, int64(300000), int64(42), models.SyncJobStatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkCompleted(context.Background(), 42, 10, 2, 1, completedAt, 300000))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedGuardsOnNonTerminal(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	completedAt := time.Date(2025, 2, 1, 12, 5, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE sync_jobs`).
		WithArgs(models.SyncJobStatusFailed, "adapter timed out", completedAt, int64(300000),
			int64(42), models.SyncJobStatusPending, models.SyncJobStatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailed(context.Background(), 42, "adapter timed out", completedAt, 300000))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDMissingJobIsNil(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectQuery(`SELECT .+ FROM sync_jobs`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	job, err := repo.GetByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, job)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListStuckFiltersRunning(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	startedAt := time.Now().Add(-2 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "account_id", "job_type", "status", "items_synced", "items_updated",
		"items_failed", "error_message", "started_at", "completed_at", "duration_ms", "created_at",
	}).AddRow(42, 7, models.SyncJobTypeScheduled, models.SyncJobStatusRunning,
		0, 0, 0, "", startedAt, nil, 0, startedAt)

	mock.ExpectQuery(`SELECT .+ FROM sync_jobs`).
		WithArgs(models.SyncJobStatusRunning, sqlmock.AnyArg()).
		WillReturnRows(rows)

	jobs, err := repo.ListStuck(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.SyncJobStatusRunning, jobs[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
