package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/internal/repository"
)

// Persister is the normalization/upsert layer: it writes one collection
// result into the store. Per-post failures are counted, never propagated, so
// one bad record cannot abort the batch.
type Persister struct {
	posts      repository.PostRepository
	engagement repository.EngagementRepository
	followers  repository.FollowerRepository
	now        func() time.Time
}

func NewPersister(posts repository.PostRepository, engagement repository.EngagementRepository, followers repository.FollowerRepository) *Persister {
	return &Persister{
		posts:      posts,
		engagement: engagement,
		followers:  followers,
		now:        time.Now,
	}
}

type PersistCounts struct {
	Synced  int64
	Updated int64
	Failed  int64
}

func (p *Persister) PersistPosts(ctx context.Context, accountID int64, result *platform.CollectionResult) PersistCounts {
	var counts PersistCounts
	snapshotDate := p.snapshotDate()

	for _, np := range result.Posts {
		postID, created, err := p.upsertPost(ctx, accountID, np)
		if err != nil {
			slog.Info(fmt.Sprintf("failed to persist post %s for account %d: %v", np.ExternalID, accountID, err))
			counts.Failed++
			continue
		}
		if created {
			counts.Synced++
		} else {
			counts.Updated++
		}

		metrics, ok := result.Engagement[np.ExternalID]
		if !ok {
			// The post landed without metrics; the next sync can fill them in.
			continue
		}
		if err := p.persistEngagement(ctx, postID, metrics, snapshotDate); err != nil {
			slog.Info(fmt.Sprintf("failed to persist metrics for post %s: %v", np.ExternalID, err))
			counts.Failed++
		}
	}

	return counts
}

func (p *Persister) upsertPost(ctx context.Context, accountID int64, np *platform.NormalizedPost) (int64, bool, error) {
	metadata, err := json.Marshal(np.Metadata)
	if err != nil {
		return 0, false, err
	}

	id, created, err := p.posts.Upsert(ctx, &models.Post{
		AccountID:      accountID,
		ExternalPostID: np.ExternalID,
		ContentType:    np.ContentType,
		Content:        np.Content,
		MediaURLs:      np.MediaURLs,
		Permalink:      np.Permalink,
		PublishedAt:    np.PublishedAt,
		Metadata:       metadata,
	})
	if err != nil {
		return 0, false, err
	}
	return id, created, nil
}

func (p *Persister) persistEngagement(ctx context.Context, postID int64, m *platform.PostMetrics, snapshotDate time.Time) error {
	err := p.engagement.UpsertCurrent(ctx, &models.EngagementMetrics{
		PostID:         postID,
		Likes:          m.Likes,
		Comments:       m.Comments,
		Shares:         m.Shares,
		Saves:          m.Saves,
		Views:          m.Views,
		Impressions:    m.Impressions,
		Reach:          m.Reach,
		EngagementRate: m.EngagementRate,
	})
	if err != nil {
		return err
	}

	return p.engagement.UpsertSnapshot(ctx, &models.EngagementSnapshot{
		PostID:         postID,
		SnapshotDate:   snapshotDate,
		Likes:          m.Likes,
		Comments:       m.Comments,
		Shares:         m.Shares,
		Saves:          m.Saves,
		Views:          m.Views,
		Impressions:    m.Impressions,
		Reach:          m.Reach,
		EngagementRate: m.EngagementRate,
	})
}

func (p *Persister) PersistFollowers(ctx context.Context, accountID int64, m *platform.AccountMetrics) error {
	err := p.followers.UpsertCurrent(ctx, &models.FollowerMetrics{
		AccountID:    accountID,
		Followers:    m.Followers,
		Following:    m.Following,
		PostCount:    m.PostCount,
		ProfileViews: m.ProfileViews,
		AccountReach: m.AccountReach,
	})
	if err != nil {
		return err
	}

	return p.followers.UpsertSnapshot(ctx, &models.FollowerSnapshot{
		AccountID:    accountID,
		SnapshotDate: p.snapshotDate(),
		Followers:    m.Followers,
		Following:    m.Following,
		PostCount:    m.PostCount,
	})
}

// snapshotDate keys daily snapshots; reruns on the same date converge instead
// of inserting duplicates.
func (p *Persister) snapshotDate() time.Time {
	return p.now().UTC().Truncate(24 * time.Hour)
}
