package sync

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/platform"
)

type fakeAccountRepo struct {
	accounts   map[int64]*models.Account
	statuses   map[int64]string
	lastSynced map[int64]time.Time
	tokens     map[int64]string
}

func newFakeAccountRepo(accounts ...*models.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{
		accounts:   make(map[int64]*models.Account),
		statuses:   make(map[int64]string),
		lastSynced: make(map[int64]time.Time),
		tokens:     make(map[int64]string),
	}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *fakeAccountRepo) Upsert(ctx context.Context, tx *sql.Tx, a *models.Account) (int64, error) {
	r.accounts[a.ID] = a
	return a.ID, nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.accounts[id], nil
}

func (r *fakeAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range r.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) ListDue(ctx context.Context) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range r.accounts {
		if a.Status == models.AccountStatusConnected && a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) ListExpiringTokens(ctx context.Context, initialTime, finalTime time.Time) ([]*models.Account, error) {
	return nil, nil
}

func (r *fakeAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	a, ok := r.accounts[accountID]
	return ok && a.UserID == userID, nil
}

func (r *fakeAccountRepo) SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	r.tokens[id] = accessToken
	return nil
}

func (r *fakeAccountRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	r.statuses[id] = status
	return nil
}

func (r *fakeAccountRepo) UpdateLastSynced(ctx context.Context, id int64, syncedAt time.Time) error {
	r.lastSynced[id] = syncedAt
	return nil
}

func (r *fakeAccountRepo) Disconnect(ctx context.Context, id int64) error {
	r.statuses[id] = models.AccountStatusDisconnected
	return nil
}

type fakeJobRepo struct {
	nextID    int64
	jobs      map[int64]*models.SyncJob
	createErr error
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[int64]*models.SyncJob)}
}

func (r *fakeJobRepo) Create(ctx context.Context, job *models.SyncJob) (int64, error) {
	if r.createErr != nil {
		return 0, r.createErr
	}
	r.nextID++
	stored := *job
	stored.ID = r.nextID
	stored.Status = models.SyncJobStatusPending
	r.jobs[stored.ID] = &stored
	return stored.ID, nil
}

func (r *fakeJobRepo) GetByID(ctx context.Context, id int64) (*models.SyncJob, error) {
	return r.jobs[id], nil
}

func (r *fakeJobRepo) MarkRunning(ctx context.Context, id int64, startedAt time.Time) error {
	if j, ok := r.jobs[id]; ok && j.Status == models.SyncJobStatusPending {
		j.Status = models.SyncJobStatusRunning
		j.StartedAt = &startedAt
	}
	return nil
}

func (r *fakeJobRepo) MarkCompleted(ctx context.Context, id int64, synced, updated, failed int64, completedAt time.Time, durationMS int64) error {
	if j, ok := r.jobs[id]; ok && j.Status == models.SyncJobStatusRunning {
		j.Status = models.SyncJobStatusCompleted
		j.ItemsSynced = synced
		j.ItemsUpdated = updated
		j.ItemsFailed = failed
		j.CompletedAt = &completedAt
		j.DurationMS = durationMS
	}
	return nil
}

func (r *fakeJobRepo) MarkFailed(ctx context.Context, id int64, errorMessage string, completedAt time.Time, durationMS int64) error {
	if j, ok := r.jobs[id]; ok &&
		(j.Status == models.SyncJobStatusPending || j.Status == models.SyncJobStatusRunning) {
		j.Status = models.SyncJobStatusFailed
		j.ErrorMessage = errorMessage
		j.CompletedAt = &completedAt
		j.DurationMS = durationMS
	}
	return nil
}

func (r *fakeJobRepo) ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*models.SyncJob, error) {
	var out []*models.SyncJob
	for _, j := range r.jobs {
		if j.AccountID == accountID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) ListStuck(ctx context.Context, runningLongerThan time.Duration) ([]*models.SyncJob, error) {
	var out []*models.SyncJob
	for _, j := range r.jobs {
		if j.Status == models.SyncJobStatusRunning {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakePostRepo struct {
	nextID int64
	ids    map[string]int64
	failOn map[string]bool
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{ids: make(map[string]int64), failOn: make(map[string]bool)}
}

func (r *fakePostRepo) Upsert(ctx context.Context, post *models.Post) (int64, bool, error) {
	if r.failOn[post.ExternalPostID] {
		return 0, false, errors.New("insert failed")
	}
	if id, ok := r.ids[post.ExternalPostID]; ok {
		return id, false, nil
	}
	r.nextID++
	r.ids[post.ExternalPostID] = r.nextID
	return r.nextID, true, nil
}

func (r *fakePostRepo) GetByExternalID(ctx context.Context, accountID int64, externalPostID string) (*models.Post, error) {
	return nil, nil
}

func (r *fakePostRepo) ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*models.Post, error) {
	return nil, nil
}

func (r *fakePostRepo) MarkDeleted(ctx context.Context, id int64) error {
	return nil
}

type fakeEngagementRepo struct {
	currentErr   error
	current      int
	snapshots    int
	lastSnapshot *models.EngagementSnapshot
}

func (r *fakeEngagementRepo) UpsertCurrent(ctx context.Context, m *models.EngagementMetrics) error {
	if r.currentErr != nil {
		return r.currentErr
	}
	r.current++
	return nil
}

func (r *fakeEngagementRepo) GetCurrent(ctx context.Context, postID int64) (*models.EngagementMetrics, error) {
	return nil, nil
}

func (r *fakeEngagementRepo) UpsertSnapshot(ctx context.Context, s *models.EngagementSnapshot) error {
	r.snapshots++
	r.lastSnapshot = s
	return nil
}

func (r *fakeEngagementRepo) ListSnapshots(ctx context.Context, postID int64, since time.Time) ([]*models.EngagementSnapshot, error) {
	return nil, nil
}

type fakeFollowerRepo struct {
	currentErr error
	current    int
	snapshots  int
}

func (r *fakeFollowerRepo) UpsertCurrent(ctx context.Context, m *models.FollowerMetrics) error {
	if r.currentErr != nil {
		return r.currentErr
	}
	r.current++
	return nil
}

func (r *fakeFollowerRepo) GetCurrent(ctx context.Context, accountID int64) (*models.FollowerMetrics, error) {
	return nil, nil
}

func (r *fakeFollowerRepo) UpsertSnapshot(ctx context.Context, s *models.FollowerSnapshot) error {
	r.snapshots++
	return nil
}

func (r *fakeFollowerRepo) ListSnapshots(ctx context.Context, accountID int64, since time.Time) ([]*models.FollowerSnapshot, error) {
	return nil, nil
}

type fakeAdapter struct {
	platformName string
	result       *platform.CollectionResult
	errs         []error
	calls        int
	gotOpts      platform.CollectOptions
}

func (a *fakeAdapter) Platform() string {
	return a.platformName
}

func (a *fakeAdapter) Collect(ctx context.Context, account *models.Account, opts platform.CollectOptions) (*platform.CollectionResult, error) {
	a.gotOpts = opts
	idx := a.calls
	a.calls++
	if idx < len(a.errs) && a.errs[idx] != nil {
		return nil, a.errs[idx]
	}
	return a.result, nil
}

func testConfig() config.Config {
	return config.Config{
		SecretKey: "0123456789abcdef0123456789abcdef",
		Sync: config.Sync{
			Concurrency:      3,
			CollectLimit:     50,
			AdapterTimeout:   5,
			MaxRetryAttempts: 2,
		},
	}
}

func newTestEngine(accounts *fakeAccountRepo, jobs *fakeJobRepo, adapter platform.Adapter, posts *fakePostRepo, engagement *fakeEngagementRepo, followers *fakeFollowerRepo) *Engine {
	cfg := testConfig()
	graph := platform.NewGraphClient("app", "secret")
	refresh := NewCredentialRefresher(cfg, accounts, graph)
	persist := NewPersister(posts, engagement, followers)
	registry := platform.NewRegistry(adapter)
	return NewEngine(cfg, accounts, jobs, registry, refresh, persist)
}

func connectedAccount(id int64) *models.Account {
	return &models.Account{
		ID:       id,
		UserID:   1,
		Platform: models.PlatformSynthetic,
		Status:   models.AccountStatusConnected,
		IsActive: true,
	}
}

func collectionOf(posts ...string) *platform.CollectionResult {
	result := &platform.CollectionResult{
		Engagement: make(map[string]*platform.PostMetrics),
	}
	publishedAt := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range posts {
		result.Posts = append(result.Posts, &platform.NormalizedPost{
			ExternalID:  id,
			ContentType: models.ContentTypeText,
			Content:     "post " + id,
			PublishedAt: &publishedAt,
		})
		result.Engagement[id] = &platform.PostMetrics{Likes: 10, Impressions: 100}
	}
	return result
}

func TestSyncAccountPersistsBatch(t *testing.T) {
	accounts := newFakeAccountRepo(connectedAccount(7))
	jobs := newFakeJobRepo()
	posts := newFakePostRepo()
	posts.failOn["p2"] = true
	engagement := &fakeEngagementRepo{}
	followers := &fakeFollowerRepo{}

	adapter := &fakeAdapter{
		platformName: models.PlatformSynthetic,
		result:       collectionOf("p1", "p2", "p3"),
	}
	engine := newTestEngine(accounts, jobs, adapter, posts, engagement, followers)

	summary, err := engine.SyncAccount(context.Background(), 7, models.SyncJobTypeManual)
	require.NoError(t, err)

	assert.Equal(t, models.SyncJobStatusCompleted, summary.Status)
	assert.Equal(t, int64(2), summary.ItemsSynced)
	assert.Equal(t, int64(0), summary.ItemsUpdated)
	assert.Equal(t, int64(1), summary.ItemsFailed)

	// One bad post never aborts the batch; metrics land for the good ones.
	assert.Equal(t, 2, engagement.current)
	assert.Equal(t, 2, engagement.snapshots)

	job := jobs.jobs[summary.JobID]
	require.NotNil(t, job)
	assert.Equal(t, models.SyncJobStatusCompleted, job.Status)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)

	_, advanced := accounts.lastSynced[7]
	assert.True(t, advanced, "completed sync should advance last_synced_at")
}

func TestSyncAccountCountsUpdatesOnResync(t *testing.T) {
	accounts := newFakeAccountRepo(connectedAccount(7))
	jobs := newFakeJobRepo()
	posts := newFakePostRepo()
	engagement := &fakeEngagementRepo{}
	followers := &fakeFollowerRepo{}

	adapter := &fakeAdapter{
		platformName: models.PlatformSynthetic,
		result:       collectionOf("p1", "p2"),
	}
	engine := newTestEngine(accounts, jobs, adapter, posts, engagement, followers)

	first, err := engine.SyncAccount(context.Background(), 7, models.SyncJobTypeManual)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.ItemsSynced)

	second, err := engine.SyncAccount(context.Background(), 7, models.SyncJobTypeManual)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.ItemsSynced)
	assert.Equal(t, int64(2), second.ItemsUpdated)

	// Re-collecting the same external posts must not create new rows.
	assert.Len(t, posts.ids, 2)
}

func TestSyncAccountDisconnectedShortCircuits(t *testing.T) {
	acc := connectedAccount(7)
	acc.Status = models.AccountStatusDisconnected
	accounts := newFakeAccountRepo(acc)
	jobs := newFakeJobRepo()

	adapter := &fakeAdapter{platformName: models.PlatformSynthetic, result: collectionOf("p1")}
	engine := newTestEngine(accounts, jobs, adapter, newFakePostRepo(), &fakeEngagementRepo{}, &fakeFollowerRepo{})

	summary, err := engine.SyncAccount(context.Background(), 7, models.SyncJobTypeScheduled)
	require.NoError(t, err)

	assert.Equal(t, models.SyncJobStatusCompleted, summary.Status)
	assert.Zero(t, summary.ItemsSynced)
	assert.Zero(t, adapter.calls, "disconnected account must not hit the platform")

	_, advanced := accounts.lastSynced[7]
	assert.False(t, advanced, "skipped sync must not advance the cursor")
}

func TestSyncAccountMissingAccountFailsJob(t *testing.T) {
	accounts := newFakeAccountRepo()
	jobs := newFakeJobRepo()

	adapter := &fakeAdapter{platformName: models.PlatformSynthetic}
	engine := newTestEngine(accounts, jobs, adapter, newFakePostRepo(), &fakeEngagementRepo{}, &fakeFollowerRepo{})

	summary, err := engine.SyncAccount(context.Background(), 99, models.SyncJobTypeManual)
	require.NoError(t, err)

	assert.Equal(t, models.SyncJobStatusFailed, summary.Status)
	assert.Contains(t, summary.ErrorMessage, "could not be loaded")
	assert.Equal(t, models.SyncJobStatusFailed, jobs.jobs[summary.JobID].Status)
}

func TestSyncAccountJobCreateFailureIsTheOnlyError(t *testing.T) {
	accounts := newFakeAccountRepo(connectedAccount(7))
	jobs := newFakeJobRepo()
	jobs.createErr = errors.New("db down")

	adapter := &fakeAdapter{platformName: models.PlatformSynthetic}
	engine := newTestEngine(accounts, jobs, adapter, newFakePostRepo(), &fakeEngagementRepo{}, &fakeFollowerRepo{})

	summary, err := engine.SyncAccount(context.Background(), 7, models.SyncJobTypeManual)
	require.Error(t, err)
	assert.Nil(t, summary)
}

func TestSyncAccountFailedCredentialRenewalAbortsSync(t *testing.T) {
	acc := connectedAccount(7)
	acc.Platform = models.PlatformFacebook
	acc.AccessToken = "###not-a-ciphertext###"
	acc.TokenExpiresAt = nil
	accounts := newFakeAccountRepo(acc)
	jobs := newFakeJobRepo()

	adapter := &fakeAdapter{platformName: models.PlatformFacebook, result: collectionOf("p1")}
	engine := newTestEngine(accounts, jobs, adapter, newFakePostRepo(), &fakeEngagementRepo{}, &fakeFollowerRepo{})

	summary, err := engine.SyncAccount(context.Background(), 7, models.SyncJobTypeManual)
	require.NoError(t, err)

	assert.Equal(t, models.SyncJobStatusFailed, summary.Status)
	assert.Contains(t, summary.ErrorMessage, "credential renewal failed")
	assert.Zero(t, adapter.calls, "sync must not run with a stale credential")
	assert.Equal(t, models.AccountStatusExpired, accounts.statuses[7])
}

func TestSyncAccountRetriesTransientFailures(t *testing.T) {
	accounts := newFakeAccountRepo(connectedAccount(7))
	jobs := newFakeJobRepo()

	adapter := &fakeAdapter{
		platformName: models.PlatformSynthetic,
		result:       collectionOf("p1"),
		errs: []error{
			platform.NewError(platform.KindTransient, models.PlatformSynthetic, "throttled", nil),
		},
	}
	engine := newTestEngine(accounts, jobs, adapter, newFakePostRepo(), &fakeEngagementRepo{}, &fakeFollowerRepo{})

	summary, err := engine.SyncAccount(context.Background(), 7, models.SyncJobTypeManual)
	require.NoError(t, err)

	assert.Equal(t, models.SyncJobStatusCompleted, summary.Status)
	assert.Equal(t, 2, adapter.calls)
}

func TestSyncAccountPermanentErrorFailsFast(t *testing.T) {
	accounts := newFakeAccountRepo(connectedAccount(7))
	jobs := newFakeJobRepo()

	adapter := &fakeAdapter{
		platformName: models.PlatformSynthetic,
		errs: []error{
			platform.NewError(platform.KindConfig, models.PlatformSynthetic, "token revoked", nil),
		},
	}
	engine := newTestEngine(accounts, jobs, adapter, newFakePostRepo(), &fakeEngagementRepo{}, &fakeFollowerRepo{})

	summary, err := engine.SyncAccount(context.Background(), 7, models.SyncJobTypeManual)
	require.NoError(t, err)

	assert.Equal(t, models.SyncJobStatusFailed, summary.Status)
	assert.Equal(t, 1, adapter.calls, "non-transient failures must not be retried")
	assert.Equal(t, models.AccountStatusExpired, accounts.statuses[7])
}

func TestSyncAccountNotFoundMarksAccountErrored(t *testing.T) {
	accounts := newFakeAccountRepo(connectedAccount(7))
	jobs := newFakeJobRepo()

	adapter := &fakeAdapter{
		platformName: models.PlatformSynthetic,
		errs: []error{
			platform.NewError(platform.KindNotFound, models.PlatformSynthetic, "account gone", nil),
		},
	}
	engine := newTestEngine(accounts, jobs, adapter, newFakePostRepo(), &fakeEngagementRepo{}, &fakeFollowerRepo{})

	summary, err := engine.SyncAccount(context.Background(), 7, models.SyncJobTypeManual)
	require.NoError(t, err)

	assert.Equal(t, models.SyncJobStatusFailed, summary.Status)
	assert.Equal(t, models.AccountStatusError, accounts.statuses[7])
}

func TestSyncAccountIncrementalPassesCursor(t *testing.T) {
	lastSynced := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	acc := connectedAccount(7)
	acc.LastSyncedAt = &lastSynced
	accounts := newFakeAccountRepo(acc)
	jobs := newFakeJobRepo()

	adapter := &fakeAdapter{platformName: models.PlatformSynthetic, result: collectionOf("p1")}
	engine := newTestEngine(accounts, jobs, adapter, newFakePostRepo(), &fakeEngagementRepo{}, &fakeFollowerRepo{})

	_, err := engine.SyncAccount(context.Background(), 7, models.SyncJobTypeScheduled)
	require.NoError(t, err)
	require.NotNil(t, adapter.gotOpts.Since)
	assert.True(t, adapter.gotOpts.Since.Equal(lastSynced))

	// A manual sync is a full collection regardless of the cursor.
	_, err = engine.SyncAccount(context.Background(), 7, models.SyncJobTypeManual)
	require.NoError(t, err)
	assert.Nil(t, adapter.gotOpts.Since)
}

func TestSyncAccountFollowerFailureCountsAsFailed(t *testing.T) {
	accounts := newFakeAccountRepo(connectedAccount(7))
	jobs := newFakeJobRepo()
	followers := &fakeFollowerRepo{currentErr: errors.New("constraint violation")}

	result := collectionOf("p1")
	result.Followers = &platform.AccountMetrics{Followers: 1200}
	adapter := &fakeAdapter{platformName: models.PlatformSynthetic, result: result}
	engine := newTestEngine(accounts, jobs, adapter, newFakePostRepo(), &fakeEngagementRepo{}, followers)

	summary, err := engine.SyncAccount(context.Background(), 7, models.SyncJobTypeManual)
	require.NoError(t, err)

	assert.Equal(t, models.SyncJobStatusCompleted, summary.Status)
	assert.Equal(t, int64(1), summary.ItemsSynced)
	assert.Equal(t, int64(1), summary.ItemsFailed)
}

func TestListJobsClampsLimit(t *testing.T) {
	accounts := newFakeAccountRepo(connectedAccount(7))
	jobs := newFakeJobRepo()
	adapter := &fakeAdapter{platformName: models.PlatformSynthetic, result: collectionOf("p1")}
	engine := newTestEngine(accounts, jobs, adapter, newFakePostRepo(), &fakeEngagementRepo{}, &fakeFollowerRepo{})

	_, err := engine.SyncAccount(context.Background(), 7, models.SyncJobTypeManual)
	require.NoError(t, err)

	listed, err := engine.ListJobs(context.Background(), 7, -5)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
