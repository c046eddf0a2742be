package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/internal/repository"
	"github.com/maheshrc27/socialsync/internal/transfer"
)

// Engine runs one account's sync end to end: credential check, adapter
// collection, normalization/upsert, snapshotting and job bookkeeping. Every
// invocation leaves exactly one SyncJob row in a terminal state; that row is
// the auditable record operators query.
type Engine struct {
	cfg      config.Config
	accounts repository.AccountRepository
	jobs     repository.SyncJobRepository
	registry *platform.Registry
	refresh  *CredentialRefresher
	persist  *Persister
	now      func() time.Time
}

func NewEngine(
	cfg config.Config,
	accounts repository.AccountRepository,
	jobs repository.SyncJobRepository,
	registry *platform.Registry,
	refresh *CredentialRefresher,
	persist *Persister) *Engine {
	return &Engine{
		cfg:      cfg,
		accounts: accounts,
		jobs:     jobs,
		registry: registry,
		refresh:  refresh,
		persist:  persist,
		now:      time.Now,
	}
}

// SyncAccount executes one sync for the account and returns the terminal job
// summary. The returned error is non-nil only when the job row itself could
// not be created; sync failures are reported through the summary's status.
func (e *Engine) SyncAccount(ctx context.Context, accountID int64, jobType string) (summary *transfer.JobSummary, err error) {
	jobID, err := e.jobs.Create(ctx, &models.SyncJob{AccountID: accountID, JobType: jobType})
	if err != nil {
		return nil, fmt.Errorf("failed to create sync job for account %d: %w", accountID, err)
	}

	startedAt := e.now()
	if err := e.jobs.MarkRunning(ctx, jobID, startedAt); err != nil {
		slog.Info(err.Error())
	}

	// A panic below must still land the job in a terminal state.
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("unexpected failure: %v", r)
			slog.Error(msg)
			summary = e.failJob(ctx, jobID, accountID, startedAt, msg)
		}
	}()

	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil || account == nil {
		return e.failJob(ctx, jobID, accountID, startedAt,
			fmt.Sprintf("account %d could not be loaded", accountID)), nil
	}

	// A disconnected account left on the schedule is an expected steady
	// state, not an error.
	if account.Status != models.AccountStatusConnected || !account.IsActive {
		return e.completeJob(ctx, jobID, account, startedAt, PersistCounts{}, false), nil
	}

	if e.refresh.IsExpiring(account) {
		if _, ok := e.refresh.Refresh(ctx, account); !ok {
			e.markAccountStatus(ctx, account.ID, models.AccountStatusExpired)
			return e.failJob(ctx, jobID, accountID, startedAt,
				"credential renewal failed; sync aborted to avoid running with a stale credential"), nil
		}
	}

	adapter, err := e.registry.Get(account.Platform)
	if err != nil {
		return e.failJob(ctx, jobID, accountID, startedAt, err.Error()), nil
	}

	result, err := e.collect(ctx, adapter, account, jobType)
	if err != nil {
		switch platform.KindOf(err) {
		case platform.KindNotFound:
			e.markAccountStatus(ctx, account.ID, models.AccountStatusError)
		case platform.KindConfig:
			e.markAccountStatus(ctx, account.ID, models.AccountStatusExpired)
		}
		return e.failJob(ctx, jobID, accountID, startedAt, err.Error()), nil
	}

	counts := e.persist.PersistPosts(ctx, account.ID, result)

	if result.Followers != nil {
		if err := e.persist.PersistFollowers(ctx, account.ID, result.Followers); err != nil {
			slog.Info(fmt.Sprintf("failed to persist follower metrics for account %d: %v", account.ID, err))
			counts.Failed++
		}
	}

	return e.completeJob(ctx, jobID, account, startedAt, counts, true), nil
}

// collect drives the adapter with a bounded timeout and retries transient
// failures with exponential backoff. All other kinds fail fast.
func (e *Engine) collect(ctx context.Context, adapter platform.Adapter, account *models.Account, jobType string) (*platform.CollectionResult, error) {
	opts := platform.CollectOptions{Limit: e.cfg.Sync.CollectLimit}
	if jobType == models.SyncJobTypeIncremental || jobType == models.SyncJobTypeScheduled {
		opts.Since = account.LastSyncedAt
	}

	timeout := time.Duration(e.cfg.Sync.AdapterTimeout) * time.Second
	collectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var result *platform.CollectionResult
	operation := func() error {
		res, err := adapter.Collect(collectCtx, account, opts)
		if err != nil {
			if platform.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = res
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(e.cfg.Sync.MaxRetryAttempts)),
		collectCtx)

	if err := backoff.Retry(operation, policy); err != nil {
		if collectCtx.Err() != nil {
			return nil, platform.NewError(platform.KindTransient, account.Platform,
				fmt.Sprintf("collection timed out after %s", timeout), collectCtx.Err())
		}
		return nil, err
	}

	return result, nil
}

func (e *Engine) completeJob(ctx context.Context, jobID int64, account *models.Account, startedAt time.Time, counts PersistCounts, advanceCursor bool) *transfer.JobSummary {
	completedAt := e.now()
	duration := completedAt.Sub(startedAt).Milliseconds()

	if advanceCursor {
		if err := e.accounts.UpdateLastSynced(ctx, account.ID, completedAt); err != nil {
			slog.Info(err.Error())
		}
	}

	if err := e.jobs.MarkCompleted(ctx, jobID, counts.Synced, counts.Updated, counts.Failed, completedAt, duration); err != nil {
		slog.Info(err.Error())
	}

	return &transfer.JobSummary{
		JobID:        jobID,
		AccountID:    account.ID,
		Status:       models.SyncJobStatusCompleted,
		ItemsSynced:  counts.Synced,
		ItemsUpdated: counts.Updated,
		ItemsFailed:  counts.Failed,
		StartedAt:    &startedAt,
		CompletedAt:  &completedAt,
		DurationMS:   duration,
	}
}

func (e *Engine) failJob(ctx context.Context, jobID, accountID int64, startedAt time.Time, message string) *transfer.JobSummary {
	completedAt := e.now()
	duration := completedAt.Sub(startedAt).Milliseconds()

	if err := e.jobs.MarkFailed(ctx, jobID, message, completedAt, duration); err != nil {
		slog.Info(err.Error())
	}

	return &transfer.JobSummary{
		JobID:        jobID,
		AccountID:    accountID,
		Status:       models.SyncJobStatusFailed,
		ErrorMessage: message,
		StartedAt:    &startedAt,
		CompletedAt:  &completedAt,
		DurationMS:   duration,
	}
}

func (e *Engine) markAccountStatus(ctx context.Context, accountID int64, status string) {
	if err := e.accounts.UpdateStatus(ctx, accountID, status); err != nil {
		slog.Info(err.Error())
	}
}

// ListJobs exposes the job history, the only externally queryable record of
// engine activity.
func (e *Engine) ListJobs(ctx context.Context, accountID int64, limit int) ([]*models.SyncJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return e.jobs.ListByAccountID(ctx, accountID, limit)
}

// StuckJobs lists runs that never reached a terminal state within the
// expected latency, the operator-visible signature of a crashed worker.
func (e *Engine) StuckJobs(ctx context.Context, runningLongerThan time.Duration) ([]*models.SyncJob, error) {
	return e.jobs.ListStuck(ctx, runningLongerThan)
}
