package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/repository"
)

// ReportService renders engagement history to CSV and uploads it to R2.
type ReportService struct {
	config     cfg.Config
	posts      repository.PostRepository
	engagement repository.EngagementRepository
	followers  repository.FollowerRepository
}

func NewReportService(c cfg.Config, posts repository.PostRepository, engagement repository.EngagementRepository, followers repository.FollowerRepository) *ReportService {
	return &ReportService{
		config:     c,
		posts:      posts,
		engagement: engagement,
		followers:  followers,
	}
}

func (r *ReportService) r2Client() (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r.config.R2.AccessKey, r.config.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.config.R2.AccountID))
	}), nil
}

// ExportAccountEngagement writes one CSV per account per day: one row per
// post with its current counters, plus a trailing follower summary. Returns
// the object key.
func (r *ReportService) ExportAccountEngagement(ctx context.Context, account *models.Account) (string, error) {
	posts, err := r.posts.ListByAccountID(ctx, account.ID, 500)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"external_post_id", "content_type", "published_at",
		"likes", "comments", "shares", "saves", "views", "impressions", "reach", "engagement_rate"}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, post := range posts {
		metrics, err := r.engagement.GetCurrent(ctx, post.ID)
		if err != nil {
			slog.Info(err.Error())
			continue
		}
		if metrics == nil {
			metrics = &models.EngagementMetrics{}
		}

		publishedAt := ""
		if post.PublishedAt != nil {
			publishedAt = post.PublishedAt.Format(time.RFC3339)
		}

		row := []string{
			post.ExternalPostID,
			post.ContentType,
			publishedAt,
			strconv.FormatInt(metrics.Likes, 10),
			strconv.FormatInt(metrics.Comments, 10),
			strconv.FormatInt(metrics.Shares, 10),
			strconv.FormatInt(metrics.Saves, 10),
			strconv.FormatInt(metrics.Views, 10),
			strconv.FormatInt(metrics.Impressions, 10),
			strconv.FormatInt(metrics.Reach, 10),
			strconv.FormatFloat(metrics.EngagementRate, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	if followers, err := r.followers.GetCurrent(ctx, account.ID); err == nil && followers != nil {
		_ = w.Write([]string{})
		_ = w.Write([]string{"followers", strconv.FormatInt(followers.Followers, 10)})
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	key := fmt.Sprintf("reports/%d/%s/engagement-%s.csv",
		account.UserID, account.Platform, time.Now().UTC().Format("2006-01-02"))

	if err := r.upload(ctx, key, buf.Bytes()); err != nil {
		return "", err
	}

	return key, nil
}

func (r *ReportService) upload(ctx context.Context, key string, body []byte) error {
	client, err := r.r2Client()
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.config.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	}

	_, err = client.PutObject(ctx, input)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}
