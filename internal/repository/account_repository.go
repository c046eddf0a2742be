package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
)

type AccountRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, a *models.Account) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Account, error)
	ListDue(ctx context.Context) ([]*models.Account, error)
	ListExpiringTokens(ctx context.Context, initialTime, finalTime time.Time) ([]*models.Account, error)
	CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error)
	SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	UpdateLastSynced(ctx context.Context, id int64, syncedAt time.Time) error
	Disconnect(ctx context.Context, id int64) error
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, user_id, platform, account_id, account_name, account_username,
	profile_picture_url, access_token, refresh_token, token_expires_at, status,
	is_active, last_synced_at, created_at, updated_at`

// Upsert keeps at most one active row per (user_id, platform, account_id).
// Re-connecting an already connected identity refreshes its tokens in place.
func (r *accountRepository) Upsert(ctx context.Context, tx *sql.Tx, a *models.Account) (int64, error) {
	var err error
	var id int64

	var upsertQuery = `
		INSERT INTO accounts(
			user_id,
			platform,
			account_id,
			account_name,
			account_username,
			profile_picture_url,
			access_token,
			refresh_token,
			token_expires_at,
			status,
			is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'connected', TRUE)
		ON CONFLICT (user_id, platform, account_id) DO UPDATE
		SET account_name = EXCLUDED.account_name,
			account_username = EXCLUDED.account_username,
			profile_picture_url = EXCLUDED.profile_picture_url,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			status = 'connected',
			is_active = TRUE,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	if tx != nil {
		err = tx.QueryRowContext(ctx, upsertQuery,
			a.UserID, a.Platform, a.AccountID, a.AccountName, a.AccountUsername,
			a.ProfilePicture, a.AccessToken, a.RefreshToken, a.TokenExpiresAt,
		).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, upsertQuery,
			a.UserID, a.Platform, a.AccountID, a.AccountName, a.AccountUsername,
			a.ProfilePicture, a.AccessToken, a.RefreshToken, a.TokenExpiresAt,
		).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	a, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return a, nil
}

func (r *accountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 AND is_active = TRUE`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// ListDue returns connected, active accounts ordered by oldest last_synced_at
// first so that starved accounts are dispatched before recently synced ones.
func (r *accountRepository) ListDue(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE status = $1 AND is_active = TRUE
		ORDER BY last_synced_at ASC NULLS FIRST`
	rows, err := r.db.QueryContext(ctx, query, models.AccountStatusConnected)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func (r *accountRepository) ListExpiringTokens(ctx context.Context, initialTime, finalTime time.Time) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE is_active = TRUE
		AND ((token_expires_at BETWEEN $1 AND $2) OR (token_expires_at < $1))`
	rows, err := r.db.QueryContext(ctx, query, initialTime, finalTime)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func (r *accountRepository) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	query := `SELECT 1 FROM accounts WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *accountRepository) SetToken(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET
			access_token = COALESCE(NULLIF($2, ''), access_token),
			refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
			token_expires_at = $4,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, accessToken, refreshToken, expiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE accounts SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) UpdateLastSynced(ctx context.Context, id int64, syncedAt time.Time) error {
	query := `UPDATE accounts SET last_synced_at = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, syncedAt, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Disconnect is a soft state change. Rows are never deleted so that historical
// sync jobs keep a valid account reference.
func (r *accountRepository) Disconnect(ctx context.Context, id int64) error {
	query := `
		UPDATE accounts
		SET status = $1, is_active = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, models.AccountStatusDisconnected, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Platform, &a.AccountID, &a.AccountName,
		&a.AccountUsername, &a.ProfilePicture, &a.AccessToken, &a.RefreshToken,
		&a.TokenExpiresAt, &a.Status, &a.IsActive, &a.LastSyncedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAccounts(rows *sql.Rows) ([]*models.Account, error) {
	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return accounts, nil
}
