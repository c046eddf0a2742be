package queue

import (
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

// EnqueueSync hands a sync request to the worker pool instead of firing an
// unobserved goroutine. The run is still recorded as a SyncJob, so queued
// syncs stay as auditable as synchronous ones.
func EnqueueSync(asynqClient *asynq.Client, payload SyncAccountPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeSyncAccount, taskPayload)

	_, err = asynqClient.Enqueue(task)
	if err != nil {
		return err
	}

	log.Printf("Sync task enqueued: %+v", payload)
	return nil
}
