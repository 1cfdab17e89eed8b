package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/storyninja-api/internal/models"
)

const progressColumns = `id, user_id, story_id, current_page, total_pages, progress, completed, completed_at, updated_at`

// ProgressRepository provides database access for reading progress.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Get returns the caller's progress on a story or sql.ErrNoRows.
func (r *ProgressRepository) Get(ctx context.Context, userID, storyID string) (*models.ReadingProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM reading_progress WHERE user_id = $1 AND story_id = $2`
	var progress models.ReadingProgress
	if err := r.db.GetContext(ctx, &progress, query, userID, storyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find progress: %w", err)
	}
	return &progress, nil
}

// ListForUser returns the user's progress rows for the given stories.
func (r *ProgressRepository) ListForUser(ctx context.Context, userID string, storyIDs []string) ([]models.ReadingProgress, error) {
	if len(storyIDs) == 0 {
		return []models.ReadingProgress{}, nil
	}
	query := `SELECT ` + progressColumns + ` FROM reading_progress WHERE user_id = $1 AND story_id = ANY($2)`
	var rows []models.ReadingProgress
	if err := r.db.SelectContext(ctx, &rows, query, userID, pq.Array(storyIDs)); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return rows, nil
}

// Save records page position. When progress reaches 100 the row is marked
// completed once; that first completion also bumps the story's complete_count
// and is reported through the boolean result.
func (r *ProgressRepository) Save(ctx context.Context, progress *models.ReadingProgress) (bool, error) {
	var newlyCompleted bool
	err := withTx(ctx, r.db, "save progress", func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		const upsert = `INSERT INTO reading_progress (id, user_id, story_id, current_page, total_pages, progress, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, story_id) DO UPDATE SET current_page = EXCLUDED.current_page, total_pages = EXCLUDED.total_pages,
progress = EXCLUDED.progress, updated_at = EXCLUDED.updated_at`
		if _, err := tx.ExecContext(ctx, upsert, uuid.NewString(), progress.UserID, progress.StoryID,
			progress.CurrentPage, progress.TotalPages, progress.Progress, now); err != nil {
			return fmt.Errorf("upsert progress: %w", err)
		}

		if progress.Progress >= 100 {
			const complete = `UPDATE reading_progress SET completed = TRUE, completed_at = $3
WHERE user_id = $1 AND story_id = $2 AND completed = FALSE`
			res, err := tx.ExecContext(ctx, complete, progress.UserID, progress.StoryID, now)
			if err != nil {
				return fmt.Errorf("complete progress: %w", err)
			}
			rows, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("complete progress: %w", err)
			}
			if rows == 1 {
				newlyCompleted = true
				if _, err := tx.ExecContext(ctx, `UPDATE stories SET complete_count = complete_count + 1 WHERE id = $1`, progress.StoryID); err != nil {
					return fmt.Errorf("increment complete count: %w", err)
				}
			}
		}

		query := `SELECT ` + progressColumns + ` FROM reading_progress WHERE user_id = $1 AND story_id = $2`
		if err := tx.GetContext(ctx, progress, query, progress.UserID, progress.StoryID); err != nil {
			return fmt.Errorf("reload progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return newlyCompleted, nil
}
