package platform

import (
	"context"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
)

// CollectOptions bounds one collection run. Since is set from the account's
// last_synced_at for incremental jobs and left nil for full jobs.
type CollectOptions struct {
	Limit int
	Since *time.Time
}

type NormalizedPost struct {
	ExternalID  string
	ContentType string
	Content     string
	MediaURLs   []string
	Permalink   string
	PublishedAt *time.Time
	Metadata    map[string]interface{}
}

type PostMetrics struct {
	Likes          int64
	Comments       int64
	Shares         int64
	Saves          int64
	Views          int64
	Impressions    int64
	Reach          int64
	EngagementRate float64
}

type AccountMetrics struct {
	Followers    int64
	Following    int64
	PostCount    int64
	ProfileViews int64
	AccountReach int64
}

// CollectionResult carries posts and their metrics side by side. Engagement is
// keyed by the post's external ID so a post can still be persisted when its
// metrics fetch failed, and so reordered pages cannot mispair the two.
type CollectionResult struct {
	Posts      []*NormalizedPost
	Engagement map[string]*PostMetrics
	Followers  *AccountMetrics
}

// Adapter converts one account's raw API data into normalized records. The set
// of implementations is closed; dispatch goes through the Registry.
type Adapter interface {
	Platform() string
	Collect(ctx context.Context, account *models.Account, opts CollectOptions) (*CollectionResult, error)
}

// RateGate is consulted before expensive API calls. It answers, it never
// blocks; a false answer means the caller should defer the call.
type RateGate interface {
	CanProceed(ctx context.Context, accountID int64, platform, endpoint string) (bool, error)
	RecordRequest(ctx context.Context, accountID int64, platform, endpoint string) error
}

// EngagementRate normalizes engagement across platforms as
// total_engagement / denominator * 100. A zero denominator yields 0.
func EngagementRate(totalEngagement, denominator int64) float64 {
	if denominator <= 0 {
		return 0
	}
	return float64(totalEngagement) / float64(denominator) * 100
}
