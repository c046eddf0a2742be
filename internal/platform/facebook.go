package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/transfer"
	"github.com/maheshrc27/socialsync/pkg/utils"
)

const graphTimeLayout = "2006-01-02T15:04:05-0700"

const facebookPageSize = 25

// FacebookAdapter collects page posts and page-level metrics through the
// Graph API. The account's stored credential is the page access token
// obtained at connect time (user token exchanged long-lived, page discovered
// via /me/accounts).
type FacebookAdapter struct {
	cfg   config.Config
	graph *GraphClient
	gate  RateGate
}

func NewFacebookAdapter(cfg config.Config, graph *GraphClient, gate RateGate) *FacebookAdapter {
	return &FacebookAdapter{cfg: cfg, graph: graph, gate: gate}
}

func (a *FacebookAdapter) Platform() string {
	return models.PlatformFacebook
}

func (a *FacebookAdapter) Collect(ctx context.Context, account *models.Account, opts CollectOptions) (*CollectionResult, error) {
	accessToken, err := utils.Decrypt(account.AccessToken, []byte(a.cfg.SecretKey))
	if err != nil || accessToken == "" {
		return nil, NewError(KindConfig, a.Platform(), "missing or undecryptable page access token", err)
	}

	ok, err := a.gate.CanProceed(ctx, account.ID, a.Platform(), "posts")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewError(KindTransient, a.Platform(), "rate limit window exhausted, deferring collection", nil)
	}

	result := &CollectionResult{
		Engagement: make(map[string]*PostMetrics),
	}

	after := ""
	for len(result.Posts) < opts.Limit {
		page, paging, err := a.fetchPostsPage(ctx, account, accessToken, opts, after)
		if err != nil {
			return nil, err
		}

		for _, raw := range page {
			if len(result.Posts) >= opts.Limit {
				break
			}

			post, metrics := a.normalizePost(raw)
			if opts.Since != nil && post.PublishedAt != nil && !post.PublishedAt.After(*opts.Since) {
				continue
			}

			result.Posts = append(result.Posts, post)
			if metrics != nil {
				result.Engagement[post.ExternalID] = metrics
			}
		}

		if paging.Cursors.After == "" || paging.Next == "" || len(page) == 0 {
			break
		}
		after = paging.Cursors.After
	}

	// Page-level metrics are best effort; losing them must not lose the posts.
	followers, err := a.fetchPageMetrics(ctx, account, accessToken)
	if err != nil {
		slog.Info(fmt.Sprintf("facebook page metrics unavailable for account %d: %v", account.ID, err))
	} else {
		result.Followers = followers
	}

	return result, nil
}

type facebookPostWithInsights struct {
	transfer.FacebookPost
	Insights struct {
		Data []transfer.InstagramInsightValue `json:"data"`
	} `json:"insights"`
}

func (a *FacebookAdapter) fetchPostsPage(ctx context.Context, account *models.Account, token string, opts CollectOptions, after string) ([]facebookPostWithInsights, graphPaging, error) {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "id,message,created_time,permalink_url,status_type,"+
		"attachments{media_type,media{image{src}}},"+
		"likes.summary(true),comments.summary(true),shares,"+
		"insights.metric(post_impressions,post_impressions_unique)")
	params.Set("limit", strconv.Itoa(facebookPageSize))
	if opts.Since != nil {
		params.Set("since", strconv.FormatInt(opts.Since.Unix(), 10))
	}
	if after != "" {
		params.Set("after", after)
	}

	var result struct {
		Data   []facebookPostWithInsights `json:"data"`
		Paging graphPaging                `json:"paging"`
	}
	err := a.graph.Get(ctx, account.AccountID+"/posts", params, a.Platform(), &result)
	if err != nil {
		return nil, graphPaging{}, err
	}

	if err := a.gate.RecordRequest(ctx, account.ID, a.Platform(), "posts"); err != nil {
		slog.Info(err.Error())
	}

	return result.Data, result.Paging, nil
}

func (a *FacebookAdapter) normalizePost(raw facebookPostWithInsights) (*NormalizedPost, *PostMetrics) {
	post := &NormalizedPost{
		ExternalID:  raw.ID,
		Content:     raw.Message,
		ContentType: models.ContentTypeText,
		Permalink:   raw.PermalinkURL,
		Metadata: map[string]interface{}{
			"status_type": raw.StatusType,
		},
	}

	if ts, err := time.Parse(graphTimeLayout, raw.CreatedTime); err == nil {
		post.PublishedAt = &ts
	}

	for _, att := range raw.Attachments.Data {
		switch att.MediaType {
		case "photo":
			post.ContentType = models.ContentTypeImage
		case "video":
			post.ContentType = models.ContentTypeVideo
		case "album":
			post.ContentType = models.ContentTypeCarousel
		}
		if src := att.Media.Image.Src; src != "" {
			post.MediaURLs = append(post.MediaURLs, src)
		}
	}

	metrics := &PostMetrics{
		Likes:    raw.Likes.Summary.TotalCount,
		Comments: raw.Comments.Summary.TotalCount,
		Shares:   raw.Shares.Count,
	}
	for _, insight := range raw.Insights.Data {
		if len(insight.Values) == 0 {
			continue
		}
		switch insight.Name {
		case "post_impressions":
			metrics.Impressions = insight.Values[0].Value
		case "post_impressions_unique":
			metrics.Reach = insight.Values[0].Value
		}
	}

	total := metrics.Likes + metrics.Comments + metrics.Shares
	metrics.EngagementRate = EngagementRate(total, metrics.Impressions)

	return post, metrics
}

func (a *FacebookAdapter) fetchPageMetrics(ctx context.Context, account *models.Account, token string) (*AccountMetrics, error) {
	ok, err := a.gate.CanProceed(ctx, account.ID, a.Platform(), "page")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewError(KindTransient, a.Platform(), "rate limit window exhausted for page metrics", nil)
	}

	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "id,name,followers_count,fan_count")

	var info transfer.FacebookPageInfo
	if err := a.graph.Get(ctx, account.AccountID, params, a.Platform(), &info); err != nil {
		return nil, err
	}

	if err := a.gate.RecordRequest(ctx, account.ID, a.Platform(), "page"); err != nil {
		slog.Info(err.Error())
	}

	return &AccountMetrics{
		Followers: info.FollowersCount,
	}, nil
}
