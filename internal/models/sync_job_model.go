package models

import "time"

type SyncJob struct {
	ID           int64      `db:"id" json:"id"`
	AccountID    int64      `db:"account_id" json:"account_id"`
	JobType      string     `db:"job_type" json:"job_type"`
	Status       string     `db:"status" json:"status"`
	ItemsSynced  int64      `db:"items_synced" json:"items_synced"`
	ItemsUpdated int64      `db:"items_updated" json:"items_updated"`
	ItemsFailed  int64      `db:"items_failed" json:"items_failed"`
	ErrorMessage string     `db:"error_message" json:"error_message"`
	StartedAt    *time.Time `db:"started_at" json:"started_at"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at"`
	DurationMS   int64      `db:"duration_ms" json:"duration_ms"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

const (
	SyncJobTypeFull        = "full"
	SyncJobTypeIncremental = "incremental"
	SyncJobTypeManual      = "manual"
	SyncJobTypeScheduled   = "scheduled"
)

const (
	SyncJobStatusPending   = "pending"
	SyncJobStatusRunning   = "running"
	SyncJobStatusCompleted = "completed"
	SyncJobStatusFailed    = "failed"
)
