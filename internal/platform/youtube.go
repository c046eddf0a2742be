package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const youtubePageSize = 50

// YoutubeAdapter collects channel uploads and channel statistics through the
// YouTube Data API. It authenticates with the account's OAuth token when a
// refresh token is stored, and falls back to the shared API key for channels
// connected read-only.
type YoutubeAdapter struct {
	cfg  config.Config
	gate RateGate
}

func NewYoutubeAdapter(cfg config.Config, gate RateGate) *YoutubeAdapter {
	return &YoutubeAdapter{cfg: cfg, gate: gate}
}

func (a *YoutubeAdapter) Platform() string {
	return models.PlatformYoutube
}

func (a *YoutubeAdapter) Collect(ctx context.Context, account *models.Account, opts CollectOptions) (*CollectionResult, error) {
	ok, err := a.gate.CanProceed(ctx, account.ID, a.Platform(), "videos")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewError(KindTransient, a.Platform(), "rate limit window exhausted, deferring collection", nil)
	}

	service, usingOAuth, err := a.newService(ctx, account)
	if err != nil {
		return nil, err
	}

	channel, err := a.fetchChannel(ctx, service, account, usingOAuth)
	if err != nil {
		return nil, err
	}

	result := &CollectionResult{
		Engagement: make(map[string]*PostMetrics),
	}

	if channel.Statistics != nil {
		result.Followers = &AccountMetrics{
			Followers: int64(channel.Statistics.SubscriberCount),
			PostCount: int64(channel.Statistics.VideoCount),
		}
	}

	uploadsPlaylist := ""
	if channel.ContentDetails != nil && channel.ContentDetails.RelatedPlaylists != nil {
		uploadsPlaylist = channel.ContentDetails.RelatedPlaylists.Uploads
	}
	if uploadsPlaylist == "" {
		return nil, NewError(KindNotFound, a.Platform(), "channel has no uploads playlist", nil)
	}

	videoIDs, err := a.listUploadIDs(ctx, service, account, uploadsPlaylist, opts)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(videoIDs); start += youtubePageSize {
		end := start + youtubePageSize
		if end > len(videoIDs) {
			end = len(videoIDs)
		}

		call := service.Videos.List([]string{"snippet", "statistics"}).
			Id(videoIDs[start:end]...).Context(ctx)
		resp, err := call.Do()
		if err != nil {
			return nil, a.classifyError(err)
		}
		if err := a.gate.RecordRequest(ctx, account.ID, a.Platform(), "videos"); err != nil {
			slog.Info(err.Error())
		}

		for _, video := range resp.Items {
			post, metrics := a.normalizeVideo(video)
			result.Posts = append(result.Posts, post)
			result.Engagement[post.ExternalID] = metrics
		}
	}

	return result, nil
}

func (a *YoutubeAdapter) newService(ctx context.Context, account *models.Account) (*youtube.Service, bool, error) {
	// Credential shape decides auth: a stored refresh token means a per-user
	// OAuth grant, otherwise the shared API key serves public channel reads.
	if account.RefreshToken != "" {
		refreshToken, err := utils.Decrypt(account.RefreshToken, []byte(a.cfg.SecretKey))
		if err != nil {
			return nil, false, NewError(KindConfig, a.Platform(), "undecryptable refresh token", err)
		}

		conf := &oauth2.Config{
			ClientID:     a.cfg.GoogleClientID,
			ClientSecret: a.cfg.GoogleClientSecret,
			Scopes:       []string{"https://www.googleapis.com/auth/youtube.readonly"},
			Endpoint:     google.Endpoint,
		}
		tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

		service, err := youtube.NewService(ctx, option.WithTokenSource(tokenSource))
		if err != nil {
			return nil, false, a.classifyError(err)
		}
		return service, true, nil
	}

	if a.cfg.YoutubeAPIKey == "" {
		return nil, false, NewError(KindConfig, a.Platform(),
			"no OAuth refresh token stored and no API key configured", nil)
	}

	service, err := youtube.NewService(ctx, option.WithAPIKey(a.cfg.YoutubeAPIKey))
	if err != nil {
		return nil, false, a.classifyError(err)
	}
	return service, false, nil
}

func (a *YoutubeAdapter) fetchChannel(ctx context.Context, service *youtube.Service, account *models.Account, usingOAuth bool) (*youtube.Channel, error) {
	call := service.Channels.List([]string{"snippet", "statistics", "contentDetails"}).Context(ctx)
	if usingOAuth {
		call = call.Mine(true)
	} else {
		call = call.Id(account.AccountID)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, a.classifyError(err)
	}
	if err := a.gate.RecordRequest(ctx, account.ID, a.Platform(), "videos"); err != nil {
		slog.Info(err.Error())
	}

	if len(resp.Items) == 0 {
		return nil, NewError(KindNotFound, a.Platform(),
			fmt.Sprintf("channel %s no longer exists", account.AccountID), nil)
	}
	return resp.Items[0], nil
}

func (a *YoutubeAdapter) listUploadIDs(ctx context.Context, service *youtube.Service, account *models.Account, playlistID string, opts CollectOptions) ([]string, error) {
	var videoIDs []string
	pageToken := ""

	for len(videoIDs) < opts.Limit {
		call := service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(youtubePageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, a.classifyError(err)
		}
		if err := a.gate.RecordRequest(ctx, account.ID, a.Platform(), "videos"); err != nil {
			slog.Info(err.Error())
		}

		reachedSince := false
		for _, item := range resp.Items {
			if len(videoIDs) >= opts.Limit {
				break
			}
			if opts.Since != nil {
				published, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
				// Uploads come back newest first; the first stale upload ends
				// the incremental walk.
				if err == nil && !published.After(*opts.Since) {
					reachedSince = true
					break
				}
			}
			videoIDs = append(videoIDs, item.ContentDetails.VideoId)
		}

		if reachedSince || resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return videoIDs, nil
}

func (a *YoutubeAdapter) normalizeVideo(video *youtube.Video) (*NormalizedPost, *PostMetrics) {
	post := &NormalizedPost{
		ExternalID:  video.Id,
		ContentType: models.ContentTypeVideo,
		Permalink:   "https://www.youtube.com/watch?v=" + video.Id,
		Metadata:    map[string]interface{}{},
	}

	if video.Snippet != nil {
		post.Content = video.Snippet.Title
		if video.Snippet.Description != "" {
			post.Metadata["description"] = video.Snippet.Description
		}
		if video.Snippet.Thumbnails != nil && video.Snippet.Thumbnails.High != nil {
			post.MediaURLs = append(post.MediaURLs, video.Snippet.Thumbnails.High.Url)
		}
		if ts, err := time.Parse(time.RFC3339, video.Snippet.PublishedAt); err == nil {
			post.PublishedAt = &ts
		}
	}

	metrics := &PostMetrics{}
	if video.Statistics != nil {
		metrics.Likes = int64(video.Statistics.LikeCount)
		metrics.Comments = int64(video.Statistics.CommentCount)
		metrics.Views = int64(video.Statistics.ViewCount)
	}
	metrics.EngagementRate = EngagementRate(metrics.Likes+metrics.Comments, metrics.Views)

	return post, metrics
}

func (a *YoutubeAdapter) classifyError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return NewError(KindTransient, a.Platform(), "youtube request failed", err)
	}

	switch {
	case apiErr.Code == 403 && hasReason(apiErr, "quotaExceeded", "rateLimitExceeded", "userRateLimitExceeded"):
		return NewError(KindTransient, a.Platform(), "youtube quota exhausted: "+apiErr.Message, nil)
	case apiErr.Code == 403:
		return NewError(KindPermission, a.Platform(),
			"stored credential lacks youtube.readonly access: "+apiErr.Message, nil)
	case apiErr.Code == 401:
		return NewError(KindConfig, a.Platform(), "youtube credential rejected: "+apiErr.Message, nil)
	case apiErr.Code == 404:
		return NewError(KindNotFound, a.Platform(), "youtube resource not found: "+apiErr.Message, nil)
	case apiErr.Code >= 500:
		return NewError(KindTransient, a.Platform(), apiErr.Message, nil)
	default:
		return NewError(KindUnknown, a.Platform(), apiErr.Message, nil)
	}
}

func hasReason(apiErr *googleapi.Error, reasons ...string) bool {
	for _, item := range apiErr.Errors {
		for _, reason := range reasons {
			if strings.EqualFold(item.Reason, reason) {
				return true
			}
		}
	}
	return false
}
