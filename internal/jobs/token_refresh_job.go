package job

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/repository"
	"github.com/maheshrc27/socialsync/internal/sync"
)

// TokenRefreshJob sweeps for tokens expiring soon and renews them ahead of
// time, so most syncs never hit the orchestrator's just-in-time refresh path.
type TokenRefreshJob struct {
	accounts repository.AccountRepository
	refresh  *sync.CredentialRefresher
}

func NewTokenRefreshJob(accounts repository.AccountRepository, refresh *sync.CredentialRefresher) *TokenRefreshJob {
	return &TokenRefreshJob{
		accounts: accounts,
		refresh:  refresh,
	}
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := j.accounts.ListExpiringTokens(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg gosync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		if acc.Platform == models.PlatformSynthetic {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.Account) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, ok := j.refresh.Refresh(ctx, acc); !ok {
				slog.Info(fmt.Sprintf("unable to refresh token for %s account %d", acc.Platform, acc.ID))
			}
		}(acc)
	}

	wg.Wait()
}
