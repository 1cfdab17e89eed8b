package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/storyninja-api/internal/models"
)

const storyColumns = `st.id, st.title, st.description, st.author_id, COALESCE(u.name, '') AS author_name, st.cover_image, st.cover_public_id,
st.pdf_url, st.pdf_public_id, st.page_count, st.status, st.is_published, st.read_count, st.like_count, st.complete_count,
st.likes, st.created_at, st.updated_at`

const storyJoins = `FROM stories st LEFT JOIN users u ON u.id = st.author_id`

// StoryRepository provides database access for stories and their discussion.
type StoryRepository struct {
	db *sqlx.DB
}

// NewStoryRepository constructs the repository.
func NewStoryRepository(db *sqlx.DB) *StoryRepository {
	return &StoryRepository{db: db}
}

// List returns stories without their discussion payload.
func (r *StoryRepository) List(ctx context.Context, filter models.StoryFilter) ([]models.Story, int, error) {
	baseQuery := storyJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.PublishedOnly {
		conditions = append(conditions, "st.status = 'published'")
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("st.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.AuthorID != "" {
		conditions = append(conditions, fmt.Sprintf("st.author_id = $%d", len(args)+1))
		args = append(args, filter.AuthorID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(st.title) LIKE $%d OR LOWER(st.description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, likePattern(filter.Search))
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]bool{
		"created_at":     true,
		"title":          true,
		"read_count":     true,
		"like_count":     true,
		"complete_count": true,
	}
	sortBy := filter.SortBy
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	_, pageSize, offset := paginate(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY st.%s %s, st.id LIMIT %d OFFSET %d", storyColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var stories []models.Story
	if err := r.db.SelectContext(ctx, &stories, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list stories: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count stories: %w", err)
	}
	return stories, total, nil
}

// FindByID returns the story with its discussion or sql.ErrNoRows.
func (r *StoryRepository) FindByID(ctx context.Context, id string) (*models.Story, error) {
	query := `SELECT ` + storyColumns + `, st.comments ` + storyJoins + ` WHERE st.id = $1`
	var story models.Story
	if err := r.db.GetContext(ctx, &story, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find story: %w", err)
	}
	return &story, nil
}

// Create inserts a story with an empty discussion.
func (r *StoryRepository) Create(ctx context.Context, story *models.Story) error {
	if story.ID == "" {
		story.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	story.CreatedAt = now
	story.UpdatedAt = now
	if story.Likes == nil {
		story.Likes = []string{}
	}
	if story.Comments == nil {
		story.Comments = models.Comments{}
	}
	story.IsPublished = story.Status == models.StoryPublished

	const query = `INSERT INTO stories (id, title, description, author_id, cover_image, cover_public_id, pdf_url, pdf_public_id, page_count, status, is_published, likes, comments, created_at, updated_at)
VALUES (:id, :title, :description, :author_id, :cover_image, :cover_public_id, :pdf_url, :pdf_public_id, :page_count, :status, :is_published, :likes, :comments, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, story); err != nil {
		return fmt.Errorf("create story: %w", err)
	}
	return nil
}

// Update writes story metadata. Status, counters and discussion are untouched.
func (r *StoryRepository) Update(ctx context.Context, story *models.Story) error {
	story.UpdatedAt = time.Now().UTC()
	const query = `UPDATE stories SET title = :title, description = :description, cover_image = :cover_image, cover_public_id = :cover_public_id,
pdf_url = :pdf_url, pdf_public_id = :pdf_public_id, page_count = :page_count, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, story); err != nil {
		return fmt.Errorf("update story: %w", err)
	}
	return nil
}

// IncrementReadCount records one more read.
func (r *StoryRepository) IncrementReadCount(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE stories SET read_count = read_count + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment read count: %w", err)
	}
	return nil
}

// CountByAuthor returns how many stories the user wrote.
func (r *StoryRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM stories WHERE author_id = $1`, authorID); err != nil {
		return 0, fmt.Errorf("count author stories: %w", err)
	}
	return count, nil
}

// UpdateStatus moves the story to status. Entering published from any other
// status credits the author's stories_uploaded in the same transaction; the
// second result reports whether that happened.
//
// When expected is set the change only applies if the locked row is still in
// that status; otherwise ErrStatusChanged is returned and nothing is written.
func (r *StoryRepository) UpdateStatus(ctx context.Context, id string, expected *models.StoryStatus, status models.StoryStatus) (*models.Story, bool, error) {
	var published bool
	err := withTx(ctx, r.db, "update story status", func(tx *sqlx.Tx) error {
		var current struct {
			Status   models.StoryStatus `db:"status"`
			AuthorID string             `db:"author_id"`
		}
		if err := tx.GetContext(ctx, &current, `SELECT status, author_id FROM stories WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock story: %w", err)
		}
		if expected != nil && current.Status != *expected {
			return ErrStatusChanged
		}

		const update = `UPDATE stories SET status = $2, is_published = $3, updated_at = $4 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, update, id, status, status == models.StoryPublished, time.Now().UTC()); err != nil {
			return fmt.Errorf("update story status: %w", err)
		}

		if status == models.StoryPublished && current.Status != models.StoryPublished {
			const credit = `UPDATE users SET stories_uploaded = stories_uploaded + 1, updated_at = $2 WHERE id = $1`
			if _, err := tx.ExecContext(ctx, credit, current.AuthorID, time.Now().UTC()); err != nil {
				return fmt.Errorf("credit author: %w", err)
			}
			published = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	story, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return story, published, nil
}

// Delete removes the story and its assignments and progress, returning the
// deleted row so stored objects can be cleaned up.
func (r *StoryRepository) Delete(ctx context.Context, id string) (*models.Story, error) {
	var story models.Story
	err := withTx(ctx, r.db, "delete story", func(tx *sqlx.Tx) error {
		const lock = `SELECT id, author_id, cover_public_id, pdf_public_id FROM stories WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &story, lock, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock story: %w", err)
		}
		for _, q := range []string{
			`DELETE FROM book_assignments WHERE story_id = $1`,
			`DELETE FROM reading_progress WHERE story_id = $1`,
			`DELETE FROM stories WHERE id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("delete story: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// MutateDiscussion locks the story row, lets fn edit Likes and Comments, and
// saves the result with like_count kept equal to len(Likes).
func (r *StoryRepository) MutateDiscussion(ctx context.Context, id string, fn func(story *models.Story) error) (*models.Story, error) {
	var story models.Story
	err := withTx(ctx, r.db, "mutate discussion", func(tx *sqlx.Tx) error {
		const lock = `SELECT id, author_id, status, likes, like_count, comments FROM stories WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &story, lock, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock story discussion: %w", err)
		}

		if err := fn(&story); err != nil {
			return err
		}
		if story.Likes == nil {
			story.Likes = []string{}
		}
		story.LikeCount = len(story.Likes)

		const save = `UPDATE stories SET likes = $2, like_count = $3, comments = $4 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, save, id, story.Likes, story.LikeCount, story.Comments); err != nil {
			return fmt.Errorf("save discussion: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &story, nil
}
