package transfer

import "time"

// JobSummary is what a manual "sync now" caller gets back.
type JobSummary struct {
	JobID        int64      `json:"job_id"`
	AccountID    int64      `json:"account_id"`
	Status       string     `json:"status"`
	ItemsSynced  int64      `json:"items_synced"`
	ItemsUpdated int64      `json:"items_updated"`
	ItemsFailed  int64      `json:"items_failed"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	DurationMS   int64      `json:"duration_ms"`
}
