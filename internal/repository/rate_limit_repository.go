package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
)

type RateLimitRepository interface {
	GetActiveWindow(ctx context.Context, accountID int64, platform, endpoint string, now time.Time) (*models.RateLimitWindow, error)
	CreateWindow(ctx context.Context, w *models.RateLimitWindow) (int64, error)
	IncrementRequests(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

type rateLimitRepository struct {
	db *sql.DB
}

func NewRateLimitRepository(db *sql.DB) RateLimitRepository {
	return &rateLimitRepository{db: db}
}

func (r *rateLimitRepository) GetActiveWindow(ctx context.Context, accountID int64, platform, endpoint string, now time.Time) (*models.RateLimitWindow, error) {
	query := `
		SELECT id, account_id, platform, endpoint, requests_made, requests_limit,
			window_start, reset_at
		FROM rate_limit_windows
		WHERE account_id = $1 AND platform = $2 AND endpoint = $3 AND reset_at > $4
		ORDER BY window_start DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, accountID, platform, endpoint, now)

	var w models.RateLimitWindow
	err := row.Scan(&w.ID, &w.AccountID, &w.Platform, &w.Endpoint, &w.RequestsMade,
		&w.RequestsLimit, &w.WindowStart, &w.ResetAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &w, nil
}

func (r *rateLimitRepository) CreateWindow(ctx context.Context, w *models.RateLimitWindow) (int64, error) {
	query := `
		INSERT INTO rate_limit_windows (account_id, platform, endpoint,
			requests_made, requests_limit, window_start, reset_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, w.AccountID, w.Platform, w.Endpoint,
		w.RequestsMade, w.RequestsLimit, w.WindowStart, w.ResetAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

// IncrementRequests is capped at the window limit so requests_made can never
// pass requests_limit even under concurrent writers.
func (r *rateLimitRepository) IncrementRequests(ctx context.Context, id int64) error {
	query := `
		UPDATE rate_limit_windows
		SET requests_made = requests_made + 1
		WHERE id = $1 AND requests_made < requests_limit
	`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *rateLimitRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM rate_limit_windows WHERE reset_at < $1`
	result, err := r.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return affected, nil
}
