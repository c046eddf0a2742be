package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
)

type EngagementRepository interface {
	UpsertCurrent(ctx context.Context, m *models.EngagementMetrics) error
	GetCurrent(ctx context.Context, postID int64) (*models.EngagementMetrics, error)
	// UpsertSnapshot converges to one row per (post_id, snapshot_date), so a
	// rerun on the same day overwrites that day's values instead of adding a
	// second row.
	UpsertSnapshot(ctx context.Context, s *models.EngagementSnapshot) error
	ListSnapshots(ctx context.Context, postID int64, since time.Time) ([]*models.EngagementSnapshot, error)
}

type engagementRepository struct {
	db *sql.DB
}

func NewEngagementRepository(db *sql.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) UpsertCurrent(ctx context.Context, m *models.EngagementMetrics) error {
	query := `
		INSERT INTO engagement_metrics (post_id, likes, comments, shares, saves,
			views, impressions, reach, engagement_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (post_id) DO UPDATE
		SET likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			saves = EXCLUDED.saves,
			views = EXCLUDED.views,
			impressions = EXCLUDED.impressions,
			reach = EXCLUDED.reach,
			engagement_rate = EXCLUDED.engagement_rate,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, m.PostID, m.Likes, m.Comments, m.Shares,
		m.Saves, m.Views, m.Impressions, m.Reach, m.EngagementRate)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *engagementRepository) GetCurrent(ctx context.Context, postID int64) (*models.EngagementMetrics, error) {
	query := `
		SELECT id, post_id, likes, comments, shares, saves, views, impressions,
			reach, engagement_rate, updated_at
		FROM engagement_metrics
		WHERE post_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, postID)

	var m models.EngagementMetrics
	err := row.Scan(&m.ID, &m.PostID, &m.Likes, &m.Comments, &m.Shares, &m.Saves,
		&m.Views, &m.Impressions, &m.Reach, &m.EngagementRate, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &m, nil
}

func (r *engagementRepository) UpsertSnapshot(ctx context.Context, s *models.EngagementSnapshot) error {
	query := `
		INSERT INTO engagement_snapshots (post_id, snapshot_date, likes, comments,
			shares, saves, views, impressions, reach, engagement_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (post_id, snapshot_date) DO UPDATE
		SET likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			saves = EXCLUDED.saves,
			views = EXCLUDED.views,
			impressions = EXCLUDED.impressions,
			reach = EXCLUDED.reach,
			engagement_rate = EXCLUDED.engagement_rate
	`
	_, err := r.db.ExecContext(ctx, query, s.PostID, s.SnapshotDate, s.Likes,
		s.Comments, s.Shares, s.Saves, s.Views, s.Impressions, s.Reach, s.EngagementRate)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *engagementRepository) ListSnapshots(ctx context.Context, postID int64, since time.Time) ([]*models.EngagementSnapshot, error) {
	query := `
		SELECT id, post_id, snapshot_date, likes, comments, shares, saves, views,
			impressions, reach, engagement_rate, created_at
		FROM engagement_snapshots
		WHERE post_id = $1 AND snapshot_date >= $2
		ORDER BY snapshot_date ASC
	`
	rows, err := r.db.QueryContext(ctx, query, postID, since)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.EngagementSnapshot
	for rows.Next() {
		var s models.EngagementSnapshot
		err := rows.Scan(&s.ID, &s.PostID, &s.SnapshotDate, &s.Likes, &s.Comments,
			&s.Shares, &s.Saves, &s.Views, &s.Impressions, &s.Reach,
			&s.EngagementRate, &s.CreatedAt)
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
