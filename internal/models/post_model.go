package models

import "time"

type Post struct {
	ID             int64      `db:"id" json:"id"`
	AccountID      int64      `db:"account_id" json:"account_id"`
	ExternalPostID string     `db:"external_post_id" json:"external_post_id"`
	ContentType    string     `db:"content_type" json:"content_type"`
	Content        string     `db:"content" json:"content"`
	MediaURLs      []string   `db:"media_urls" json:"media_urls"`
	Permalink      string     `db:"permalink" json:"permalink"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at"`
	IsDeleted      bool       `db:"is_deleted" json:"is_deleted"`
	Metadata       []byte     `db:"metadata" json:"metadata"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	ContentTypeText     = "text"
	ContentTypeImage    = "image"
	ContentTypeVideo    = "video"
	ContentTypeCarousel = "carousel"
	ContentTypeStory    = "story"
	ContentTypeReel     = "reel"
	ContentTypeOther    = "other"
)
