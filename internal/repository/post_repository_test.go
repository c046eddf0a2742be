package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/socialsync/internal/models"
)

func TestPostUpsertReportsCreated(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	publishedAt := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	post := &models.Post{
		AccountID:      7,
		ExternalPostID: "ext-1",
		ContentType:    models.ContentTypeImage,
		Content:        "hello",
		MediaURLs:      []string{"https://cdn.example/img.jpg"},
		PublishedAt:    &publishedAt,
	}

	mock.ExpectQuery(`INSERT INTO posts .+ ON CONFLICT \(account_id, external_post_id\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow(11, true))

	id, created, err := repo.Upsert(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.True(t, created)

	// The same external post resolves to the same row on a re-sync.
	mock.ExpectQuery(`INSERT INTO posts .+ ON CONFLICT \(account_id, external_post_id\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow(11, false))

	id, created, err = repo.Upsert(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.False(t, created)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostUpsertDefaultsEmptyMetadata(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectQuery(`INSERT INTO posts`).
		WithArgs(int64(7), "ext-1", models.ContentTypeText, "", sqlmock.AnyArg(), "", nil, []byte("{}")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow(1, true))

	_, _, err = repo.Upsert(context.Background(), &models.Post{
		AccountID:      7,
		ExternalPostID: "ext-1",
		ContentType:    models.ContentTypeText,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByExternalIDMissingRowIsNil(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM posts`).
		WithArgs(int64(7), "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	post, err := repo.GetByExternalID(context.Background(), 7, "missing")
	require.NoError(t, err)
	assert.Nil(t, post)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDeleted(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)

	mock.ExpectExec(`UPDATE posts SET is_deleted = TRUE`).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDeleted(context.Background(), 11))
	require.NoError(t, mock.ExpectationsWereMet())
}
