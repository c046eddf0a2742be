package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/socialsync/internal/platform"
)

func TestPersistPostsWithoutMetricsStillLands(t *testing.T) {
	posts := newFakePostRepo()
	engagement := &fakeEngagementRepo{}
	persister := NewPersister(posts, engagement, &fakeFollowerRepo{})

	result := collectionOf("p1")
	delete(result.Engagement, "p1")

	counts := persister.PersistPosts(context.Background(), 7, result)

	assert.Equal(t, int64(1), counts.Synced)
	assert.Zero(t, counts.Failed)
	assert.Zero(t, engagement.current, "no metrics means no engagement write")
}

func TestPersistPostsMetricsFailureIsIsolated(t *testing.T) {
	posts := newFakePostRepo()
	engagement := &fakeEngagementRepo{currentErr: errors.New("constraint violation")}
	persister := NewPersister(posts, engagement, &fakeFollowerRepo{})

	counts := persister.PersistPosts(context.Background(), 7, collectionOf("p1", "p2"))

	// The posts themselves land; only the metrics writes count as failures.
	assert.Equal(t, int64(2), counts.Synced)
	assert.Equal(t, int64(2), counts.Failed)
	assert.Len(t, posts.ids, 2)
}

func TestPersistPostsSnapshotDateIsDayTruncated(t *testing.T) {
	posts := newFakePostRepo()
	engagement := &fakeEngagementRepo{}
	persister := NewPersister(posts, engagement, &fakeFollowerRepo{})
	persister.now = func() time.Time {
		return time.Date(2025, 2, 1, 18, 45, 12, 0, time.UTC)
	}

	counts := persister.PersistPosts(context.Background(), 7, collectionOf("p1"))
	require.Equal(t, int64(1), counts.Synced)

	require.NotNil(t, engagement.lastSnapshot)
	want := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, engagement.lastSnapshot.SnapshotDate.Equal(want))
}

func TestPersistFollowersWritesCurrentAndSnapshot(t *testing.T) {
	followers := &fakeFollowerRepo{}
	persister := NewPersister(newFakePostRepo(), &fakeEngagementRepo{}, followers)

	err := persister.PersistFollowers(context.Background(), 7, &platform.AccountMetrics{Followers: 1200, PostCount: 42})
	require.NoError(t, err)

	assert.Equal(t, 1, followers.current)
	assert.Equal(t, 1, followers.snapshots)
}

func TestPersistFollowersPropagatesError(t *testing.T) {
	followers := &fakeFollowerRepo{currentErr: errors.New("db down")}
	persister := NewPersister(newFakePostRepo(), &fakeEngagementRepo{}, followers)

	err := persister.PersistFollowers(context.Background(), 7, &platform.AccountMetrics{Followers: 1200})
	assert.Error(t, err)
	assert.Zero(t, followers.snapshots)
}
