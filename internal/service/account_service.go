package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/internal/repository"
	"github.com/maheshrc27/socialsync/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	FACEBOOK_AUTH_URL = "https://www.facebook.com/v21.0/dialog/oauth"
	GOOGLE_AUTH_URL   = "https://accounts.google.com/o/oauth2/v2/auth"
)

type AccountService interface {
	GetAuthURL(ctx context.Context, platformName, tokenString string) string
	FacebookCallback(ctx context.Context, code string, userID int64) error
	GoogleCallback(ctx context.Context, code string, userID int64) error
	ConnectSynthetic(ctx context.Context, userID int64) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.Account, error)
	Disconnect(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	cfg   config.Config
	a     repository.AccountRepository
	graph *platform.GraphClient
}

func NewAccountService(cfg config.Config, a repository.AccountRepository, graph *platform.GraphClient) AccountService {
	return &accountService{
		cfg:   cfg,
		a:     a,
		graph: graph,
	}
}

func (s *accountService) GetAuthURL(ctx context.Context, platformName, tokenString string) string {
	switch platformName {
	case models.PlatformFacebook, models.PlatformInstagram:
		params := url.Values{}
		params.Add("client_id", s.cfg.FacebookAppID)
		params.Add("scope", "pages_show_list,pages_read_engagement,read_insights,"+
			"instagram_basic,instagram_manage_insights")
		params.Add("response_type", "code")
		params.Add("redirect_uri", s.cfg.FacebookRedirectURI)
		params.Add("state", tokenString)

		return fmt.Sprintf("%s?%s", FACEBOOK_AUTH_URL, params.Encode())

	case models.PlatformYoutube:
		params := url.Values{}
		params.Add("client_id", s.cfg.GoogleClientID)
		params.Add("redirect_uri", s.cfg.GoogleRedirectURI)
		params.Add("response_type", "code")
		params.Add("scope", "https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/youtube.readonly")
		params.Add("state", tokenString)
		params.Add("access_type", "offline")

		return fmt.Sprintf("%s?%s", GOOGLE_AUTH_URL, params.Encode())

	default:
		return ""
	}
}

// FacebookCallback finishes the Graph connect flow: exchange the code for a
// user token, make it long-lived, then discover the page sub-resources the
// token can reach. Each page becomes a facebook Account; a page with a linked
// Instagram business account additionally becomes an instagram Account.
func (s *accountService) FacebookCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	if userID == 0 {
		err := errors.New("user not found")
		slog.Info(err.Error())
		return err
	}

	userToken, err := s.exchangeFacebookCode(ctx, code)
	if err != nil {
		return err
	}

	longLived, expiresAt, err := s.graph.ExchangeLongLivedToken(ctx, userToken)
	if err != nil {
		return err
	}

	pages, err := s.graph.ListPages(ctx, longLived)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return errors.New("no pages reachable from the connected profile")
	}

	for _, page := range pages {
		encryptedPageToken, err := utils.Encrypt([]byte(page.AccessToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}

		_, err = s.a.Upsert(ctx, nil, &models.Account{
			UserID:         userID,
			Platform:       models.PlatformFacebook,
			AccountID:      page.ID,
			AccountName:    page.Name,
			AccessToken:    encryptedPageToken,
			RefreshToken:   encryptedPageToken,
			TokenExpiresAt: &expiresAt,
		})
		if err != nil {
			return err
		}

		if err := s.connectLinkedInstagram(ctx, userID, page, encryptedPageToken, expiresAt); err != nil {
			slog.Info(fmt.Sprintf("no instagram account linked to page %s: %v", page.ID, err))
		}
	}

	return nil
}

func (s *accountService) exchangeFacebookCode(ctx context.Context, code string) (string, error) {
	params := url.Values{}
	params.Set("client_id", s.cfg.FacebookAppID)
	params.Set("client_secret", s.cfg.FacebookAppSecret)
	params.Set("redirect_uri", s.cfg.FacebookRedirectURI)
	params.Set("code", code)

	var result struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := s.graph.Get(ctx, "oauth/access_token", params, "graph", &result); err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", errors.New("no access token returned from code exchange")
	}
	return result.AccessToken, nil
}

func (s *accountService) connectLinkedInstagram(ctx context.Context, userID int64, page platform.GraphPage, encryptedToken string, expiresAt time.Time) error {
	pageToken, err := utils.Decrypt(encryptedToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("access_token", pageToken)
	params.Set("fields", "instagram_business_account{id,username,name,profile_picture_url}")

	var result struct {
		InstagramBusinessAccount struct {
			ID             string `json:"id"`
			Username       string `json:"username"`
			Name           string `json:"name"`
			ProfilePicture string `json:"profile_picture_url"`
		} `json:"instagram_business_account"`
	}
	if err := s.graph.Get(ctx, page.ID, params, models.PlatformInstagram, &result); err != nil {
		return err
	}
	if result.InstagramBusinessAccount.ID == "" {
		return errors.New("page has no instagram business account")
	}

	ig := result.InstagramBusinessAccount
	_, err = s.a.Upsert(ctx, nil, &models.Account{
		UserID:          userID,
		Platform:        models.PlatformInstagram,
		AccountID:       ig.ID,
		AccountName:     ig.Name,
		AccountUsername: ig.Username,
		ProfilePicture:  ig.ProfilePicture,
		AccessToken:     encryptedToken,
		RefreshToken:    encryptedToken,
		TokenExpiresAt:  &expiresAt,
	})
	return err
}

// GoogleCallback exchanges the OAuth code, resolves the caller's channel and
// stores the grant. The refresh token is what later keeps the connection
// alive; without one the account would go stale within the hour.
func (s *accountService) GoogleCallback(ctx context.Context, code string, userID int64) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	oauth2Config := &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		RedirectURL:  s.cfg.GoogleRedirectURI,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.profile", "https://www.googleapis.com/auth/youtube.readonly"},
		Endpoint:     google.Endpoint,
	}

	if oauth2Config.ClientID == "" || oauth2Config.ClientSecret == "" || oauth2Config.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return err
	}

	token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	if token.RefreshToken == "" {
		err := errors.New("refresh token is empty")
		slog.Info(err.Error())
		return err
	}

	service, err := youtube.NewService(ctx, option.WithTokenSource(oauth2Config.TokenSource(ctx, token)))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	resp, err := service.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if len(resp.Items) == 0 {
		return errors.New("no channel associated with the connected account")
	}
	channel := resp.Items[0]

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	encryptedRefreshToken, err := utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	account := &models.Account{
		UserID:         userID,
		Platform:       models.PlatformYoutube,
		AccountID:      channel.Id,
		AccountName:    channel.Snippet.Title,
		AccessToken:    encryptedAccessToken,
		RefreshToken:   encryptedRefreshToken,
		TokenExpiresAt: &token.Expiry,
	}
	if channel.Snippet.Thumbnails != nil && channel.Snippet.Thumbnails.Default != nil {
		account.ProfilePicture = channel.Snippet.Thumbnails.Default.Url
	}

	_, err = s.a.Upsert(ctx, nil, account)
	return err
}

// ConnectSynthetic registers a credential-free account served by the
// synthetic adapter. Development and test environments use this in place of
// live platform credentials.
func (s *accountService) ConnectSynthetic(ctx context.Context, userID int64) (int64, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return 0, err
	}

	return s.a.Upsert(ctx, nil, &models.Account{
		UserID:      userID,
		Platform:    models.PlatformSynthetic,
		AccountID:   fmt.Sprintf("synthetic-%d", userID),
		AccountName: "Synthetic Account",
	})
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.Account, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.a.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting connected accounts")
	}

	return accounts, nil
}

func (s *accountService) Disconnect(ctx context.Context, userID, accountID int64) error {
	if userID == 0 || accountID == 0 {
		err := errors.New("AccountID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.a.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("account doesn't belong to this user")
		slog.Info(err.Error())
		return err
	}

	return s.a.Disconnect(ctx, accountID)
}
