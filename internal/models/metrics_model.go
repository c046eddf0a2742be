package models

import "time"

// EngagementMetrics is the mutable "current" counter row for one post. It is
// overwritten on every sync; history lives in EngagementSnapshot.
type EngagementMetrics struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	Likes          int64     `db:"likes" json:"likes"`
	Comments       int64     `db:"comments" json:"comments"`
	Shares         int64     `db:"shares" json:"shares"`
	Saves          int64     `db:"saves" json:"saves"`
	Views          int64     `db:"views" json:"views"`
	Impressions    int64     `db:"impressions" json:"impressions"`
	Reach          int64     `db:"reach" json:"reach"`
	EngagementRate float64   `db:"engagement_rate" json:"engagement_rate"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// EngagementSnapshot is one immutable row per (post, calendar date).
type EngagementSnapshot struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	SnapshotDate   time.Time `db:"snapshot_date" json:"snapshot_date"`
	Likes          int64     `db:"likes" json:"likes"`
	Comments       int64     `db:"comments" json:"comments"`
	Shares         int64     `db:"shares" json:"shares"`
	Saves          int64     `db:"saves" json:"saves"`
	Views          int64     `db:"views" json:"views"`
	Impressions    int64     `db:"impressions" json:"impressions"`
	Reach          int64     `db:"reach" json:"reach"`
	EngagementRate float64   `db:"engagement_rate" json:"engagement_rate"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type FollowerMetrics struct {
	ID             int64     `db:"id" json:"id"`
	AccountID      int64     `db:"account_id" json:"account_id"`
	Followers      int64     `db:"followers" json:"followers"`
	Following      int64     `db:"following" json:"following"`
	PostCount      int64     `db:"post_count" json:"post_count"`
	ProfileViews   int64     `db:"profile_views" json:"profile_views"`
	AccountReach   int64     `db:"account_reach" json:"account_reach"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type FollowerSnapshot struct {
	ID           int64     `db:"id" json:"id"`
	AccountID    int64     `db:"account_id" json:"account_id"`
	SnapshotDate time.Time `db:"snapshot_date" json:"snapshot_date"`
	Followers    int64     `db:"followers" json:"followers"`
	Following    int64     `db:"following" json:"following"`
	PostCount    int64     `db:"post_count" json:"post_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
