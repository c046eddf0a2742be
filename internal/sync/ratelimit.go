package sync

import (
	"context"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/repository"
)

// Per-window request budgets by platform. The fallback applies to platforms
// without a published quota.
var platformRequestLimits = map[string]int64{
	models.PlatformFacebook:  200,
	models.PlatformInstagram: 200,
	models.PlatformYoutube:   1000,
}

const defaultRequestLimit int64 = 100

const rateLimitWindowDuration = time.Hour

// RateLimitTracker is a pure decision function over persisted windows: it
// answers whether a call may proceed and records calls that were made. It
// never sleeps or throttles; deferring is the orchestrator's job. Windows
// live in the store so multiple worker processes share the same budget.
type RateLimitTracker struct {
	repo repository.RateLimitRepository
	now  func() time.Time
}

func NewRateLimitTracker(repo repository.RateLimitRepository) *RateLimitTracker {
	return &RateLimitTracker{repo: repo, now: time.Now}
}

// CanProceed is true when no unexpired window exists for the triple, or the
// active window still has budget. An expired window never blocks; a fresh one
// is started by the next RecordRequest.
func (t *RateLimitTracker) CanProceed(ctx context.Context, accountID int64, platformName, endpoint string) (bool, error) {
	window, err := t.repo.GetActiveWindow(ctx, accountID, platformName, endpoint, t.now())
	if err != nil {
		return false, err
	}
	if window == nil {
		return true, nil
	}
	return window.RequestsMade < window.RequestsLimit, nil
}

func (t *RateLimitTracker) RecordRequest(ctx context.Context, accountID int64, platformName, endpoint string) error {
	now := t.now()

	window, err := t.repo.GetActiveWindow(ctx, accountID, platformName, endpoint, now)
	if err != nil {
		return err
	}

	if window == nil {
		limit, ok := platformRequestLimits[platformName]
		if !ok {
			limit = defaultRequestLimit
		}
		_, err := t.repo.CreateWindow(ctx, &models.RateLimitWindow{
			AccountID:     accountID,
			Platform:      platformName,
			Endpoint:      endpoint,
			RequestsMade:  1,
			RequestsLimit: limit,
			WindowStart:   now,
			ResetAt:       now.Add(rateLimitWindowDuration),
		})
		return err
	}

	return t.repo.IncrementRequests(ctx, window.ID)
}
