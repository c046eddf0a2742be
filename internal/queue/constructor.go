package queue

import (
	"github.com/maheshrc27/socialsync/internal/sync"
)

type Queue struct {
	engine *sync.Engine
}

func NewQueue(engine *sync.Engine) *Queue {
	return &Queue{engine: engine}
}

const TaskTypeSyncAccount = "sync:account"

type SyncAccountPayload struct {
	AccountID int64  `json:"account_id"`
	JobType   string `json:"job_type"`
}
