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

const assignmentColumns = `ba.id, ba.teacher_id, ba.class_id, ba.student_id, ba.story_id, ba.created_at,
st.title AS story_title, c.class_name, su.name AS student_name`

const assignmentJoins = `FROM book_assignments ba
JOIN stories st ON st.id = ba.story_id
JOIN classes c ON c.id = ba.class_id
LEFT JOIN users su ON su.id = ba.student_id`

const assignedStoryColumns = `st.id AS "story.id", st.title AS "story.title", st.description AS "story.description",
st.author_id AS "story.author_id", COALESCE(au.name, '') AS "story.author_name", st.cover_image AS "story.cover_image",
st.cover_public_id AS "story.cover_public_id", st.pdf_url AS "story.pdf_url", st.pdf_public_id AS "story.pdf_public_id",
st.page_count AS "story.page_count", st.status AS "story.status", st.is_published AS "story.is_published",
st.read_count AS "story.read_count", st.like_count AS "story.like_count", st.complete_count AS "story.complete_count",
st.likes AS "story.likes", st.created_at AS "story.created_at", st.updated_at AS "story.updated_at"`

// AssignmentRepository provides database access for book assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts an assignment. A repeated (class, story, student) returns ErrDuplicate.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.BookAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO book_assignments (id, teacher_id, class_id, student_id, story_id, created_at)
VALUES (:id, :teacher_id, :class_id, :student_id, :story_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return wrapWrite("create assignment", err)
	}
	return nil
}

// FindByID returns the assignment or sql.ErrNoRows.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.BookAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` ` + assignmentJoins + ` WHERE ba.id = $1`
	var assignment models.BookAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// ListByTeacher returns every assignment the teacher created, newest first.
func (r *AssignmentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.BookAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` ` + assignmentJoins + ` WHERE ba.teacher_id = $1 ORDER BY ba.created_at DESC`
	var assignments []models.BookAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return assignments, nil
}

// Delete removes the assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM book_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListForReader returns the published stories assigned to userID, either directly
// or through a class the user belongs to. A story assigned both ways appears
// once, as the direct assignment.
func (r *AssignmentRepository) ListForReader(ctx context.Context, userID string) ([]models.AssignedBook, error) {
	query := `SELECT * FROM (
SELECT DISTINCT ON (ba.story_id) ba.id AS assignment_id, ba.class_id, c.class_name,
(ba.student_id IS NOT NULL) AS direct, ba.created_at AS assigned_at, ` + assignedStoryColumns + `
FROM book_assignments ba
JOIN classes c ON c.id = ba.class_id
JOIN stories st ON st.id = ba.story_id
LEFT JOIN users au ON au.id = st.author_id
WHERE st.status = 'published'
AND (ba.student_id = $1 OR (ba.student_id IS NULL AND ba.class_id IN (SELECT class_id FROM class_memberships WHERE user_id = $1)))
ORDER BY ba.story_id, direct DESC, ba.created_at DESC
) assigned ORDER BY assigned_at DESC`

	var books []models.AssignedBook
	if err := r.db.SelectContext(ctx, &books, query, userID); err != nil {
		return nil, fmt.Errorf("list assigned books: %w", err)
	}
	return books, nil
}
