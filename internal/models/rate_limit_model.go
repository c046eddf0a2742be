package models

import "time"

// RateLimitWindow counts requests for one (account, platform, endpoint) inside
// a time-boxed window. Once ResetAt passes, a fresh window is created rather
// than the counter being reused.
type RateLimitWindow struct {
	ID            int64     `db:"id" json:"id"`
	AccountID     int64     `db:"account_id" json:"account_id"`
	Platform      string    `db:"platform" json:"platform"`
	Endpoint      string    `db:"endpoint" json:"endpoint"`
	RequestsMade  int64     `db:"requests_made" json:"requests_made"`
	RequestsLimit int64     `db:"requests_limit" json:"requests_limit"`
	WindowStart   time.Time `db:"window_start" json:"window_start"`
	ResetAt       time.Time `db:"reset_at" json:"reset_at"`
}
