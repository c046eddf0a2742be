package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/socialsync/internal/models"
)

func (q *Queue) HandleSyncAccountTask(ctx context.Context, task *asynq.Task) error {
	var payload SyncAccountPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	jobType := payload.JobType
	if jobType == "" {
		jobType = models.SyncJobTypeManual
	}

	summary, err := q.engine.SyncAccount(ctx, payload.AccountID, jobType)
	if err != nil {
		return fmt.Errorf("sync task for account %d: %w", payload.AccountID, err)
	}

	if summary.Status == models.SyncJobStatusFailed {
		// The failure is already on the SyncJob row; retrying here would
		// repeat a non-transient failure the engine chose not to retry.
		log.Printf("queued sync for account %d failed: %s", payload.AccountID, summary.ErrorMessage)
	}

	return nil
}
