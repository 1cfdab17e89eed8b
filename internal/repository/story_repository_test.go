package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storyninja-api/internal/discussion"
	"github.com/noah-isme/storyninja-api/internal/models"
)

var storyRowColumns = []string{"id", "title", "description", "author_id", "author_name", "cover_image", "cover_public_id", "pdf_url",
	"pdf_public_id", "page_count", "status", "is_published", "read_count", "like_count", "complete_count", "likes", "created_at",
	"updated_at", "comments"}

func storyRow(status models.StoryStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(storyRowColumns).AddRow("s1", "Ninja", "", "a1", "Author", "", "", "", "", 12, string(status),
		status == models.StoryPublished, 0, 0, 0, "{}", now, now, []byte("[]"))
}

func TestStoryPublishCreditsAuthorOnce(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, author_id FROM stories WHERE id = $1 FOR UPDATE")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "author_id"}).AddRow("waiting_revision", "a1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE stories SET status = $2, is_published = $3")).
		WithArgs("s1", models.StoryPublished, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET stories_uploaded = stories_uploaded + 1")).
		WithArgs("a1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE st.id = $1")).WithArgs("s1").WillReturnRows(storyRow(models.StoryPublished))

	story, published, err := repo.UpdateStatus(context.Background(), "s1", nil, models.StoryPublished)
	require.NoError(t, err)
	assert.True(t, published)
	assert.True(t, story.IsPublished)
	assert.Equal(t, models.StoryPublished, story.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoryRepublishDoesNotCreditAgain(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, author_id FROM stories WHERE id = $1 FOR UPDATE")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "author_id"}).AddRow("published", "a1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE stories SET status = $2, is_published = $3")).
		WithArgs("s1", models.StoryPublished, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE st.id = $1")).WithArgs("s1").WillReturnRows(storyRow(models.StoryPublished))

	_, published, err := repo.UpdateStatus(context.Background(), "s1", nil, models.StoryPublished)
	require.NoError(t, err)
	assert.False(t, published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoryUnpublishClearsFlag(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "author_id"}).AddRow("published", "a1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE stories SET status = $2, is_published = $3")).
		WithArgs("s1", models.StoryDraft, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE st.id = $1")).WithArgs("s1").WillReturnRows(storyRow(models.StoryDraft))

	story, published, err := repo.UpdateStatus(context.Background(), "s1", nil, models.StoryDraft)
	require.NoError(t, err)
	assert.False(t, published)
	assert.False(t, story.IsPublished)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoryConditionalStatusChecksUnderLock(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, author_id FROM stories WHERE id = $1 FOR UPDATE")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "author_id"}).AddRow("published", "a1"))
	mock.ExpectRollback()

	draft := models.StoryDraft
	story, published, err := repo.UpdateStatus(context.Background(), "s1", &draft, models.StoryWaitingRevision)
	assert.ErrorIs(t, err, ErrStatusChanged)
	assert.Nil(t, story)
	assert.False(t, published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutateDiscussionKeepsLikeCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, author_id, status, likes, like_count, comments FROM stories WHERE id = $1 FOR UPDATE")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "status", "likes", "like_count", "comments"}).
			AddRow("s1", "a1", "published", "{u2}", 1, []byte("[]")))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE stories SET likes = $2, like_count = $3, comments = $4 WHERE id = $1")).
		WithArgs("s1", sqlmock.AnyArg(), 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	story, err := repo.MutateDiscussion(context.Background(), "s1", func(s *models.Story) error {
		s.Likes, _ = discussion.ToggleLike(s.Likes, "u1")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, story.LikeCount)
	assert.ElementsMatch(t, []string{"u1", "u2"}, []string(story.Likes))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMutateDiscussionRollsBackOnMutatorError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "status", "likes", "like_count", "comments"}).
			AddRow("s1", "a1", "published", "{}", 0, []byte("[]")))
	mock.ExpectRollback()

	_, err := repo.MutateDiscussion(context.Background(), "s1", func(*models.Story) error {
		return discussion.ErrCommentNotFound
	})
	assert.ErrorIs(t, err, discussion.ErrCommentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, author_id, cover_public_id, pdf_public_id FROM stories WHERE id = $1 FOR UPDATE")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "cover_public_id", "pdf_public_id"}).AddRow("s1", "a1", "covers/a.png", "pdfs/a.pdf"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM book_assignments WHERE story_id = $1")).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reading_progress WHERE story_id = $1")).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM stories WHERE id = $1")).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	story, err := repo.Delete(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "covers/a.png", story.CoverPublicID)
	assert.Equal(t, "pdfs/a.pdf", story.PDFPublicID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPublishedStories(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStoryRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND st.status = 'published' AND (LOWER(st.title) LIKE $1 OR LOWER(st.description) LIKE $1) ORDER BY st.created_at DESC, st.id LIMIT 20 OFFSET 0")).
		WithArgs("%ninja%").
		WillReturnRows(sqlmock.NewRows(storyRowColumns[:18]).AddRow("s1", "Ninja", "", "a1", "Author", "", "", "", "", 12, "published", true, 3, 1, 0, "{u1}", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM stories st")).
		WithArgs("%ninja%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	stories, total, err := repo.List(context.Background(), models.StoryFilter{PublishedOnly: true, Search: "Ninja"})
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, 1, total)
	assert.Nil(t, stories[0].Comments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
