package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/storyninja-api/internal/models"
)

const quizColumns = `q.id, q.teacher_id, q.story_id, st.title AS story_title, q.title, q.description, q.questions, q.created_at, q.updated_at`

const quizJoins = `FROM quizzes q LEFT JOIN stories st ON st.id = q.story_id`

// QuizRepository provides database access for quizzes and attempts.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository constructs the repository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// ListByTeacher returns the teacher's quizzes, newest first.
func (r *QuizRepository) ListByTeacher(ctx context.Context, teacherID string, page, size int) ([]models.Quiz, int, error) {
	_, pageSize, offset := paginate(page, size)
	query := fmt.Sprintf(`SELECT %s %s WHERE q.teacher_id = $1 ORDER BY q.created_at DESC LIMIT %d OFFSET %d`, quizColumns, quizJoins, pageSize, offset)

	var quizzes []models.Quiz
	if err := r.db.SelectContext(ctx, &quizzes, query, teacherID); err != nil {
		return nil, 0, fmt.Errorf("list quizzes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM quizzes WHERE teacher_id = $1`, teacherID); err != nil {
		return nil, 0, fmt.Errorf("count quizzes: %w", err)
	}
	return quizzes, total, nil
}

// FindByID returns the quiz or sql.ErrNoRows.
func (r *QuizRepository) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	query := `SELECT ` + quizColumns + ` ` + quizJoins + ` WHERE q.id = $1`
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find quiz: %w", err)
	}
	return &quiz, nil
}

// Create inserts a quiz.
func (r *QuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	quiz.CreatedAt = now
	quiz.UpdatedAt = now

	const query = `INSERT INTO quizzes (id, teacher_id, story_id, title, description, questions, created_at, updated_at)
VALUES (:id, :teacher_id, :story_id, :title, :description, :questions, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, quiz); err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

// Update overwrites the quiz content.
func (r *QuizRepository) Update(ctx context.Context, quiz *models.Quiz) error {
	quiz.UpdatedAt = time.Now().UTC()
	const query = `UPDATE quizzes SET story_id = :story_id, title = :title, description = :description, questions = :questions,
updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, quiz); err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return nil
}

// Delete removes the quiz and, through the foreign key, its attempts.
func (r *QuizRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}

// CreateAttempt stores a scored answer sheet. A perfect attempt also claims
// the reader's reward slot for the quiz; the result reports whether this
// attempt won it, which happens at most once per reader and quiz.
func (r *QuizRepository) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) (bool, error) {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	attempt.CreatedAt = time.Now().UTC()

	var rewarded bool
	err := withTx(ctx, r.db, "create quiz attempt", func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO quiz_attempts (id, quiz_id, user_id, answers, score, total, created_at)
VALUES (:id, :quiz_id, :user_id, :answers, :score, :total, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, attempt); err != nil {
			return fmt.Errorf("create quiz attempt: %w", err)
		}
		if !attempt.Perfect() {
			return nil
		}

		const claim = `INSERT INTO quiz_rewards (quiz_id, user_id, attempt_id, created_at)
VALUES ($1, $2, $3, $4) ON CONFLICT (quiz_id, user_id) DO NOTHING`
		res, err := tx.ExecContext(ctx, claim, attempt.QuizID, attempt.UserID, attempt.ID, attempt.CreatedAt)
		if err != nil {
			return fmt.Errorf("claim quiz reward: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("claim quiz reward: %w", err)
		}
		rewarded = n == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return rewarded, nil
}
