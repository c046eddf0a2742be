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

const instagramPageSize = 25

// InstagramAdapter collects media and account metrics for an Instagram
// business account. It shares the Graph client and token semantics with the
// Facebook adapter; the stored credential is the long-lived token tied to the
// IG user discovered behind the connected page.
type InstagramAdapter struct {
	cfg   config.Config
	graph *GraphClient
	gate  RateGate
}

func NewInstagramAdapter(cfg config.Config, graph *GraphClient, gate RateGate) *InstagramAdapter {
	return &InstagramAdapter{cfg: cfg, graph: graph, gate: gate}
}

func (a *InstagramAdapter) Platform() string {
	return models.PlatformInstagram
}

func (a *InstagramAdapter) Collect(ctx context.Context, account *models.Account, opts CollectOptions) (*CollectionResult, error) {
	accessToken, err := utils.Decrypt(account.AccessToken, []byte(a.cfg.SecretKey))
	if err != nil || accessToken == "" {
		return nil, NewError(KindConfig, a.Platform(), "missing or undecryptable access token", err)
	}

	ok, err := a.gate.CanProceed(ctx, account.ID, a.Platform(), "media")
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
		page, paging, err := a.fetchMediaPage(ctx, account, accessToken, opts, after)
		if err != nil {
			return nil, err
		}

		reachedSince := false
		for _, raw := range page {
			if len(result.Posts) >= opts.Limit {
				break
			}

			post, metrics := a.normalizeMedia(raw)
			if opts.Since != nil && post.PublishedAt != nil && !post.PublishedAt.After(*opts.Since) {
				// Media comes back newest first; the first stale item means
				// the rest of the feed is stale too.
				reachedSince = true
				break
			}

			result.Posts = append(result.Posts, post)
			if metrics != nil {
				result.Engagement[post.ExternalID] = metrics
			}
		}

		if reachedSince || paging.Cursors.After == "" || paging.Next == "" || len(page) == 0 {
			break
		}
		after = paging.Cursors.After
	}

	followers, err := a.fetchAccountMetrics(ctx, account, accessToken)
	if err != nil {
		slog.Info(fmt.Sprintf("instagram account metrics unavailable for account %d: %v", account.ID, err))
	} else {
		result.Followers = followers
	}

	return result, nil
}

type instagramMediaWithInsights struct {
	transfer.InstagramMedia
	Insights struct {
		Data []transfer.InstagramInsightValue `json:"data"`
	} `json:"insights"`
}

func (a *InstagramAdapter) fetchMediaPage(ctx context.Context, account *models.Account, token string, opts CollectOptions, after string) ([]instagramMediaWithInsights, graphPaging, error) {
	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "id,caption,media_type,media_product_type,media_url,"+
		"thumbnail_url,permalink,timestamp,like_count,comments_count,"+
		"insights.metric(impressions,reach,saved,video_views)")
	params.Set("limit", strconv.Itoa(instagramPageSize))
	if after != "" {
		params.Set("after", after)
	}

	var result struct {
		Data   []instagramMediaWithInsights `json:"data"`
		Paging graphPaging                  `json:"paging"`
	}
	err := a.graph.Get(ctx, account.AccountID+"/media", params, a.Platform(), &result)
	if err != nil {
		return nil, graphPaging{}, err
	}

	if err := a.gate.RecordRequest(ctx, account.ID, a.Platform(), "media"); err != nil {
		slog.Info(err.Error())
	}

	return result.Data, result.Paging, nil
}

func (a *InstagramAdapter) normalizeMedia(raw instagramMediaWithInsights) (*NormalizedPost, *PostMetrics) {
	post := &NormalizedPost{
		ExternalID:  raw.ID,
		Content:     raw.Caption,
		ContentType: instagramContentType(raw.MediaType, raw.MediaProduct),
		Permalink:   raw.Permalink,
		Metadata: map[string]interface{}{
			"media_type":         raw.MediaType,
			"media_product_type": raw.MediaProduct,
		},
	}

	if raw.MediaURL != "" {
		post.MediaURLs = append(post.MediaURLs, raw.MediaURL)
	} else if raw.ThumbnailURL != "" {
		post.MediaURLs = append(post.MediaURLs, raw.ThumbnailURL)
	}

	if ts, err := time.Parse(graphTimeLayout, raw.Timestamp); err == nil {
		post.PublishedAt = &ts
	}

	metrics := &PostMetrics{
		Likes:    raw.LikeCount,
		Comments: raw.CommentsCount,
	}
	for _, insight := range raw.Insights.Data {
		if len(insight.Values) == 0 {
			continue
		}
		switch insight.Name {
		case "impressions":
			metrics.Impressions = insight.Values[0].Value
		case "reach":
			metrics.Reach = insight.Values[0].Value
		case "saved":
			metrics.Saves = insight.Values[0].Value
		case "video_views":
			metrics.Views = insight.Values[0].Value
		}
	}

	total := metrics.Likes + metrics.Comments + metrics.Saves
	denominator := metrics.Impressions
	if denominator == 0 {
		denominator = metrics.Views
	}
	metrics.EngagementRate = EngagementRate(total, denominator)

	return post, metrics
}

func instagramContentType(mediaType, mediaProduct string) string {
	if mediaProduct == "REELS" {
		return models.ContentTypeReel
	}
	if mediaProduct == "STORY" {
		return models.ContentTypeStory
	}
	switch mediaType {
	case "IMAGE":
		return models.ContentTypeImage
	case "VIDEO":
		return models.ContentTypeVideo
	case "CAROUSEL_ALBUM":
		return models.ContentTypeCarousel
	default:
		return models.ContentTypeOther
	}
}

func (a *InstagramAdapter) fetchAccountMetrics(ctx context.Context, account *models.Account, token string) (*AccountMetrics, error) {
	ok, err := a.gate.CanProceed(ctx, account.ID, a.Platform(), "account")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewError(KindTransient, a.Platform(), "rate limit window exhausted for account metrics", nil)
	}

	params := url.Values{}
	params.Set("access_token", token)
	params.Set("fields", "id,username,name,profile_picture_url,followers_count,follows_count,media_count")

	var info transfer.InstagramAccountInfo
	if err := a.graph.Get(ctx, account.AccountID, params, a.Platform(), &info); err != nil {
		return nil, err
	}

	if err := a.gate.RecordRequest(ctx, account.ID, a.Platform(), "account"); err != nil {
		slog.Info(err.Error())
	}

	return &AccountMetrics{
		Followers: info.FollowersCount,
		Following: info.FollowsCount,
		PostCount: info.MediaCount,
	}, nil
}
