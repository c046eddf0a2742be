package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/lib/pq"
	"github.com/maheshrc27/socialsync/internal/models"
)

type PostRepository interface {
	// Upsert persists a post by its (account_id, external_post_id) key and
	// reports whether a new row was created. Re-collecting the same external
	// post updates fields in place, never duplicates the row.
	Upsert(ctx context.Context, post *models.Post) (id int64, created bool, err error)
	GetByExternalID(ctx context.Context, accountID int64, externalPostID string) (*models.Post, error)
	ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*models.Post, error)
	MarkDeleted(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Upsert(ctx context.Context, post *models.Post) (int64, bool, error) {
	query := `
		INSERT INTO posts (account_id, external_post_id, content_type, content,
			media_urls, permalink, published_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id, external_post_id) DO UPDATE
		SET content_type = EXCLUDED.content_type,
			content = EXCLUDED.content,
			media_urls = EXCLUDED.media_urls,
			permalink = EXCLUDED.permalink,
			published_at = EXCLUDED.published_at,
			metadata = EXCLUDED.metadata,
			is_deleted = FALSE,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, (xmax = 0) AS inserted
	`

	metadata := post.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}

	var id int64
	var inserted bool
	err := r.db.QueryRowContext(ctx, query,
		post.AccountID, post.ExternalPostID, post.ContentType, post.Content,
		pq.Array(post.MediaURLs), post.Permalink, post.PublishedAt, metadata,
	).Scan(&id, &inserted)
	if err != nil {
		slog.Info(err.Error())
		return 0, false, err
	}

	return id, inserted, nil
}

func (r *postRepository) GetByExternalID(ctx context.Context, accountID int64, externalPostID string) (*models.Post, error) {
	query := `
		SELECT id, account_id, external_post_id, content_type, content, media_urls,
			permalink, published_at, is_deleted, metadata, created_at, updated_at
		FROM posts
		WHERE account_id = $1 AND external_post_id = $2
	`
	row := r.db.QueryRowContext(ctx, query, accountID, externalPostID)

	var post models.Post
	err := row.Scan(&post.ID, &post.AccountID, &post.ExternalPostID, &post.ContentType,
		&post.Content, pq.Array(&post.MediaURLs), &post.Permalink, &post.PublishedAt,
		&post.IsDeleted, &post.Metadata, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &post, nil
}

func (r *postRepository) ListByAccountID(ctx context.Context, accountID int64, limit int) ([]*models.Post, error) {
	query := `
		SELECT id, account_id, external_post_id, content_type, content, media_urls,
			permalink, published_at, is_deleted, metadata, created_at, updated_at
		FROM posts
		WHERE account_id = $1 AND is_deleted = FALSE
		ORDER BY published_at DESC NULLS LAST
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		err := rows.Scan(&post.ID, &post.AccountID, &post.ExternalPostID, &post.ContentType,
			&post.Content, pq.Array(&post.MediaURLs), &post.Permalink, &post.PublishedAt,
			&post.IsDeleted, &post.Metadata, &post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, &post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) MarkDeleted(ctx context.Context, id int64) error {
	query := `UPDATE posts SET is_deleted = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
