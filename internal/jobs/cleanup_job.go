package job

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialsync/internal/repository"
)

// CleanupJob prunes rate limit windows that reset long ago. Expired windows
// are dead weight: the tracker never reuses them.
type CleanupJob struct {
	rateLimits repository.RateLimitRepository
}

func NewCleanupJob(rateLimits repository.RateLimitRepository) *CleanupJob {
	return &CleanupJob{rateLimits: rateLimits}
}

func (j *CleanupJob) PurgeExpiredWindows() {
	ctx := context.Background()

	deleted, err := j.rateLimits.DeleteExpired(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if deleted > 0 {
		log.Printf("purged %d expired rate limit window(s)", deleted)
	}
}
