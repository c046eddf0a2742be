package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/maheshrc27/socialsync/internal/transfer"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v21.0"

// GraphClient is the HTTP client shared by the Facebook and Instagram
// adapters. Both platforms sit behind the same Graph API surface and the same
// token semantics (short-lived user token exchanged for a long-lived one, page
// sub-resources discovered from the user-level token).
type GraphClient struct {
	BaseURL    string
	AppID      string
	AppSecret  string
	HTTPClient *http.Client
}

func NewGraphClient(appID, appSecret string) *GraphClient {
	return &GraphClient{
		BaseURL:    defaultGraphBaseURL,
		AppID:      appID,
		AppSecret:  appSecret,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type graphPaging struct {
	Cursors struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors"`
	Next string `json:"next"`
}

type GraphPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
	Category    string `json:"category"`
}

// Get issues one Graph API GET and decodes the JSON body into out. Non-200
// responses are translated through the Graph error envelope into the adapter
// error taxonomy.
func (c *GraphClient) Get(ctx context.Context, path string, params url.Values, platformName string, out interface{}) error {
	reqURL := fmt.Sprintf("%s/%s?%s", c.BaseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return NewError(KindUnknown, platformName, "error creating request", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return NewError(KindTransient, platformName, "graph request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewError(KindTransient, platformName, "error reading response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return c.classifyError(resp.StatusCode, body, platformName)
	}

	if err := json.Unmarshal(body, out); err != nil {
		slog.Info(err.Error())
		return NewError(KindUnknown, platformName, "error parsing graph response", err)
	}
	return nil
}

func (c *GraphClient) classifyError(statusCode int, body []byte, platformName string) error {
	var envelope transfer.GraphErrorResponse
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		if statusCode >= 500 {
			return NewError(KindTransient, platformName,
				fmt.Sprintf("graph API returned status %d", statusCode), nil)
		}
		return NewError(KindUnknown, platformName,
			fmt.Sprintf("unexpected status %d: %s", statusCode, body), nil)
	}

	ge := envelope.Error
	msg := fmt.Sprintf("%s (code %d, subcode %d)", ge.Message, ge.Code, ge.ErrorSubcode)

	switch {
	case ge.IsTransient, ge.Code == 4, ge.Code == 17, ge.Code == 32, ge.Code == 613:
		// Throttling family: application, user and page level limits.
		return NewError(KindTransient, platformName, msg, nil)
	case ge.Code == 190:
		return NewError(KindConfig, platformName, "access token invalid or expired: "+msg, nil)
	case ge.Code == 10, ge.Code >= 200 && ge.Code <= 299:
		return NewError(KindPermission, platformName,
			"stored credential lacks a required permission: "+msg, nil)
	case ge.Code == 100 && (ge.ErrorSubcode == 33 || ge.ErrorSubcode == 803):
		return NewError(KindNotFound, platformName, "graph object no longer exists: "+msg, nil)
	default:
		return NewError(KindUnknown, platformName, msg, nil)
	}
}

// ExchangeLongLivedToken trades a short-lived user token for a long-lived one.
// Page adapters call this once at connect time before any sub-resource lookup.
func (c *GraphClient) ExchangeLongLivedToken(ctx context.Context, shortLivedToken string) (string, time.Time, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", c.AppID)
	params.Set("client_secret", c.AppSecret)
	params.Set("fb_exchange_token", shortLivedToken)

	var result struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.Get(ctx, "oauth/access_token", params, "graph", &result); err != nil {
		return "", time.Time{}, err
	}

	expiresIn := result.ExpiresIn
	if expiresIn == 0 {
		// Long-lived page tokens come back without expiry; treat as ~60 days.
		expiresIn = 60 * 24 * 3600
	}

	return result.AccessToken, time.Now().Add(time.Duration(expiresIn) * time.Second), nil
}

// ListPages discovers the pages reachable from a user-level token, each with
// its own page access token.
func (c *GraphClient) ListPages(ctx context.Context, userToken string) ([]GraphPage, error) {
	params := url.Values{}
	params.Set("access_token", userToken)
	params.Set("fields", "id,name,access_token,category")

	var result struct {
		Data   []GraphPage `json:"data"`
		Paging graphPaging `json:"paging"`
	}
	if err := c.Get(ctx, "me/accounts", params, "graph", &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// RefreshLongLivedToken re-exchanges a still-valid long-lived token for a new
// one, extending its expiry.
func (c *GraphClient) RefreshLongLivedToken(ctx context.Context, longLivedToken string) (string, time.Time, error) {
	return c.ExchangeLongLivedToken(ctx, longLivedToken)
}
