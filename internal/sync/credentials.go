package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/internal/repository"
	"github.com/maheshrc27/socialsync/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// A credential this close to expiry is renewed before the adapter runs.
const expirySafetyMargin = 5 * time.Minute

// CredentialRefresher renews platform tokens just before they lapse. Refresh
// reports failure through its bool, not an error: the caller decides whether
// a failed renewal is fatal for the run.
type CredentialRefresher struct {
	cfg      config.Config
	accounts repository.AccountRepository
	graph    *platform.GraphClient
	now      func() time.Time
}

func NewCredentialRefresher(cfg config.Config, accounts repository.AccountRepository, graph *platform.GraphClient) *CredentialRefresher {
	return &CredentialRefresher{
		cfg:      cfg,
		accounts: accounts,
		graph:    graph,
		now:      time.Now,
	}
}

// IsExpiring is conservative: an unknown expiry counts as expiring.
func (r *CredentialRefresher) IsExpiring(account *models.Account) bool {
	if account.Platform == models.PlatformSynthetic {
		return false
	}
	if account.TokenExpiresAt == nil {
		return true
	}
	return account.TokenExpiresAt.Before(r.now().Add(expirySafetyMargin))
}

// Refresh exchanges the account's refresh credential for a new access
// credential, persists it and returns the new encrypted token. A false return
// means the credential could not be renewed; the reason is logged.
func (r *CredentialRefresher) Refresh(ctx context.Context, account *models.Account) (string, bool) {
	var newToken, newRefresh string
	var expiresAt time.Time
	var err error

	switch account.Platform {
	case models.PlatformFacebook, models.PlatformInstagram:
		newToken, expiresAt, err = r.refreshGraphToken(ctx, account)
		newRefresh = newToken
	case models.PlatformYoutube:
		newToken, newRefresh, expiresAt, err = r.refreshGoogleToken(ctx, account)
	default:
		slog.Info(fmt.Sprintf("no credential refresh for platform %s", account.Platform))
		return "", false
	}

	if err != nil {
		slog.Info(fmt.Sprintf("credential refresh failed for account %d: %v", account.ID, err))
		return "", false
	}

	if err := r.accounts.SetToken(ctx, account.ID, newToken, newRefresh, expiresAt); err != nil {
		slog.Info(err.Error())
		return "", false
	}

	account.AccessToken = newToken
	if newRefresh != "" {
		account.RefreshToken = newRefresh
	}
	account.TokenExpiresAt = &expiresAt

	return newToken, true
}

// Graph long-lived tokens renew by re-exchange of the current token.
func (r *CredentialRefresher) refreshGraphToken(ctx context.Context, account *models.Account) (string, time.Time, error) {
	current, err := utils.Decrypt(account.AccessToken, []byte(r.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}

	refreshed, expiresAt, err := r.graph.RefreshLongLivedToken(ctx, current)
	if err != nil {
		return "", time.Time{}, err
	}

	encrypted, err := utils.Encrypt([]byte(refreshed), []byte(r.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}

	return encrypted, expiresAt, nil
}

func (r *CredentialRefresher) refreshGoogleToken(ctx context.Context, account *models.Account) (string, string, time.Time, error) {
	if account.RefreshToken == "" {
		return "", "", time.Time{}, fmt.Errorf("account %d has no refresh token", account.ID)
	}

	refreshToken, err := utils.Decrypt(account.RefreshToken, []byte(r.cfg.SecretKey))
	if err != nil {
		return "", "", time.Time{}, err
	}

	conf := &oauth2.Config{
		ClientID:     r.cfg.GoogleClientID,
		ClientSecret: r.cfg.GoogleClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.readonly"},
		Endpoint:     google.Endpoint,
	}

	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := tokenSource.Token()
	if err != nil {
		return "", "", time.Time{}, err
	}

	encryptedAccess, err := utils.Encrypt([]byte(token.AccessToken), []byte(r.cfg.SecretKey))
	if err != nil {
		return "", "", time.Time{}, err
	}

	encryptedRefresh := ""
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		encryptedRefresh, err = utils.Encrypt([]byte(token.RefreshToken), []byte(r.cfg.SecretKey))
		if err != nil {
			return "", "", time.Time{}, err
		}
	}

	return encryptedAccess, encryptedRefresh, token.Expiry, nil
}
