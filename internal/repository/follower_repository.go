package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
)

type FollowerRepository interface {
	UpsertCurrent(ctx context.Context, m *models.FollowerMetrics) error
	GetCurrent(ctx context.Context, accountID int64) (*models.FollowerMetrics, error)
	UpsertSnapshot(ctx context.Context, s *models.FollowerSnapshot) error
	ListSnapshots(ctx context.Context, accountID int64, since time.Time) ([]*models.FollowerSnapshot, error)
}

type followerRepository struct {
	db *sql.DB
}

func NewFollowerRepository(db *sql.DB) FollowerRepository {
	return &followerRepository{db: db}
}

func (r *followerRepository) UpsertCurrent(ctx context.Context, m *models.FollowerMetrics) error {
	query := `
		INSERT INTO follower_metrics (account_id, followers, following, post_count,
			profile_views, account_reach)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id) DO UPDATE
		SET followers = EXCLUDED.followers,
			following = EXCLUDED.following,
			post_count = EXCLUDED.post_count,
			profile_views = EXCLUDED.profile_views,
			account_reach = EXCLUDED.account_reach,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, m.AccountID, m.Followers, m.Following,
		m.PostCount, m.ProfileViews, m.AccountReach)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *followerRepository) GetCurrent(ctx context.Context, accountID int64) (*models.FollowerMetrics, error) {
	query := `
		SELECT id, account_id, followers, following, post_count, profile_views,
			account_reach, updated_at
		FROM follower_metrics
		WHERE account_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, accountID)

	var m models.FollowerMetrics
	err := row.Scan(&m.ID, &m.AccountID, &m.Followers, &m.Following, &m.PostCount,
		&m.ProfileViews, &m.AccountReach, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &m, nil
}

func (r *followerRepository) UpsertSnapshot(ctx context.Context, s *models.FollowerSnapshot) error {
	query := `
		INSERT INTO follower_snapshots (account_id, snapshot_date, followers,
			following, post_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, snapshot_date) DO UPDATE
		SET followers = EXCLUDED.followers,
			following = EXCLUDED.following,
			post_count = EXCLUDED.post_count
	`
	_, err := r.db.ExecContext(ctx, query, s.AccountID, s.SnapshotDate,
		s.Followers, s.Following, s.PostCount)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *followerRepository) ListSnapshots(ctx context.Context, accountID int64, since time.Time) ([]*models.FollowerSnapshot, error) {
	query := `
		SELECT id, account_id, snapshot_date, followers, following, post_count, created_at
		FROM follower_snapshots
		WHERE account_id = $1 AND snapshot_date >= $2
		ORDER BY snapshot_date ASC
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, since)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.FollowerSnapshot
	for rows.Next() {
		var s models.FollowerSnapshot
		err := rows.Scan(&s.ID, &s.AccountID, &s.SnapshotDate, &s.Followers,
			&s.Following, &s.PostCount, &s.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		snapshots = append(snapshots, &s)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return snapshots, nil
}
