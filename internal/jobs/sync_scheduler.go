package job

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	gosync "sync"

	"github.com/robfig/cron"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/repository"
	"github.com/maheshrc27/socialsync/internal/sync"
)

// SyncScheduler owns every time-driven trigger: the recurring all-accounts
// sweep, optional dedicated per-account cadences, and housekeeping. It only
// reads account sync state to decide dispatch order; the engine is the sole
// writer of last_synced_at and status.
type SyncScheduler struct {
	cfg      config.Config
	accounts repository.AccountRepository
	engine   *sync.Engine

	c *cron.Cron

	mu         gosync.Mutex
	perAccount map[int64]*cron.Cron
}

func NewSyncScheduler(cfg config.Config, accounts repository.AccountRepository, engine *sync.Engine) *SyncScheduler {
	return &SyncScheduler{
		cfg:        cfg,
		accounts:   accounts,
		engine:     engine,
		c:          cron.New(),
		perAccount: make(map[int64]*cron.Cron),
	}
}

// ScheduleRecurring registers the engine-wide sweep. Each fire dispatches all
// due accounts with bounded concurrency.
func (s *SyncScheduler) ScheduleRecurring(cronSpec, jobType string) error {
	return s.c.AddFunc(cronSpec, func() {
		s.RunDue(jobType)
	})
}

// AddHousekeeping registers an unrelated periodic task (credential sweeps,
// report exports) on its own trigger. These share only the cron mechanism
// with the sync data path.
func (s *SyncScheduler) AddHousekeeping(cronSpec string, task func()) error {
	return s.c.AddFunc(cronSpec, task)
}

func (s *SyncScheduler) Start() {
	s.c.Start()
}

func (s *SyncScheduler) Stop() {
	s.c.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.perAccount {
		c.Stop()
		delete(s.perAccount, id)
	}
}

// RunDue loads connected active accounts, oldest last_synced_at first, and
// syncs them through a fixed-size concurrency window. One account's failure
// is logged and dropped; it never aborts the batch or the trigger.
func (s *SyncScheduler) RunDue(jobType string) {
	ctx := context.Background()

	accounts, err := s.accounts.ListDue(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if len(accounts) == 0 {
		return
	}

	log.Printf("sync sweep: dispatching %d account(s)", len(accounts))

	concurrency := s.cfg.Sync.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	var wg gosync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.Account) {
			defer wg.Done()
			defer func() { <-semaphore }()
			defer func() {
				if r := recover(); r != nil {
					slog.Error(fmt.Sprintf("sync for account %d panicked: %v", acc.ID, r))
				}
			}()

			summary, err := s.engine.SyncAccount(ctx, acc.ID, jobType)
			if err != nil {
				slog.Info(fmt.Sprintf("sync for account %d not started: %v", acc.ID, err))
				return
			}
			if summary.Status == models.SyncJobStatusFailed {
				slog.Info(fmt.Sprintf("sync for account %d failed: %s", acc.ID, summary.ErrorMessage))
			}
		}(acc)
	}

	wg.Wait()
}

// ScheduleAccount registers a dedicated cadence for one account, replacing
// any previous trigger for it so an account never has two.
func (s *SyncScheduler) ScheduleAccount(accountID int64, cronSpec, jobType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.perAccount[accountID]; ok {
		existing.Stop()
		delete(s.perAccount, accountID)
	}

	c := cron.New()
	err := c.AddFunc(cronSpec, func() {
		summary, err := s.engine.SyncAccount(context.Background(), accountID, jobType)
		if err != nil {
			slog.Info(fmt.Sprintf("scheduled sync for account %d not started: %v", accountID, err))
			return
		}
		if summary.Status == models.SyncJobStatusFailed {
			slog.Info(fmt.Sprintf("scheduled sync for account %d failed: %s", accountID, summary.ErrorMessage))
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	s.perAccount[accountID] = c
	return nil
}

func (s *SyncScheduler) UnscheduleAccount(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.perAccount[accountID]; ok {
		existing.Stop()
		delete(s.perAccount, accountID)
	}
}
