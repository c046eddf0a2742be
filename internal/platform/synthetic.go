package platform

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
)

// SyntheticAdapter produces deterministic pseudo-random data for accounts
// connected without live credentials. Posts and metrics are generated from a
// seed derived from the account ID, so repeated syncs see the same posts with
// metrics that grow as the post ages. Volume is real enough to exercise
// pagination and batching.
type SyntheticAdapter struct {
	// Clock is swappable in tests; zero value means time.Now.
	Clock func() time.Time
}

func NewSyntheticAdapter() *SyntheticAdapter {
	return &SyntheticAdapter{}
}

func (a *SyntheticAdapter) Platform() string {
	return models.PlatformSynthetic
}

func (a *SyntheticAdapter) now() time.Time {
	if a.Clock != nil {
		return a.Clock()
	}
	return time.Now()
}

var syntheticContentTypes = []string{
	models.ContentTypeText,
	models.ContentTypeImage,
	models.ContentTypeVideo,
	models.ContentTypeCarousel,
	models.ContentTypeReel,
}

func (a *SyntheticAdapter) Collect(ctx context.Context, account *models.Account, opts CollectOptions) (*CollectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(KindTransient, a.Platform(), "collection cancelled", err)
	}

	now := a.now()
	anchor := now.Truncate(time.Hour)

	result := &CollectionResult{
		Engagement: make(map[string]*PostMetrics),
	}

	// One post every 6 hours counting back from the anchor. Newest first,
	// matching the live platforms' feed order.
	for i := 0; len(result.Posts) < opts.Limit; i++ {
		publishedAt := anchor.Add(-time.Duration(i*6) * time.Hour)
		if opts.Since != nil && !publishedAt.After(*opts.Since) {
			break
		}

		post, metrics := a.generatePost(account.ID, i, publishedAt, now)
		result.Posts = append(result.Posts, post)
		result.Engagement[post.ExternalID] = metrics
	}

	followerRng := rand.New(rand.NewSource(account.ID * 7919))
	base := 500 + followerRng.Int63n(50000)
	ageDays := int64(now.Sub(anchor.AddDate(0, -6, 0)).Hours() / 24)
	result.Followers = &AccountMetrics{
		Followers: base + ageDays*3,
		Following: 50 + followerRng.Int63n(900),
		PostCount: int64(len(result.Posts)),
	}

	return result, nil
}

func (a *SyntheticAdapter) generatePost(accountID int64, index int, publishedAt, now time.Time) (*NormalizedPost, *PostMetrics) {
	externalID := fmt.Sprintf("syn-%d-%d", accountID, index)

	rng := rand.New(rand.NewSource(accountID*1_000_003 + int64(index)))

	contentType := syntheticContentTypes[rng.Intn(len(syntheticContentTypes))]
	post := &NormalizedPost{
		ExternalID:  externalID,
		ContentType: contentType,
		Content:     fmt.Sprintf("Synthetic post %d for account %d", index, accountID),
		Permalink:   fmt.Sprintf("https://example.invalid/p/%s", externalID),
		PublishedAt: &publishedAt,
		Metadata: map[string]interface{}{
			"synthetic": true,
		},
	}
	if contentType != models.ContentTypeText {
		post.MediaURLs = []string{fmt.Sprintf("https://example.invalid/media/%s.jpg", externalID)}
	}

	// Counters scale with post age so re-syncs observe growth, never shrink.
	ageHours := int64(now.Sub(publishedAt).Hours())
	if ageHours < 1 {
		ageHours = 1
	}

	impressions := (10 + rng.Int63n(200)) * ageHours
	likes := impressions / (5 + rng.Int63n(15))
	comments := likes / (3 + rng.Int63n(10))
	shares := comments / 2
	saves := likes / (10 + rng.Int63n(10))
	views := int64(0)
	if contentType == models.ContentTypeVideo || contentType == models.ContentTypeReel {
		views = impressions * 2
	}

	metrics := &PostMetrics{
		Likes:       likes,
		Comments:    comments,
		Shares:      shares,
		Saves:       saves,
		Views:       views,
		Impressions: impressions,
		Reach:       impressions * 8 / 10,
	}
	metrics.EngagementRate = EngagementRate(likes+comments+shares+saves, impressions)

	return post, metrics
}
