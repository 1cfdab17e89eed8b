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

const gradeColumns = `g.id, g.school_id, g.grade_number, g.name, g.created_at, g.updated_at, s.name AS school_name,
(SELECT COUNT(*) FROM classes c WHERE c.grade_id = g.id) AS class_count`

// GradeRepository provides database access for grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// List returns grades, optionally restricted to one school.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error) {
	baseQuery := `FROM grades g JOIN schools s ON s.id = g.school_id WHERE 1=1`
	var args []interface{}
	if filter.SchoolID != "" {
		baseQuery += " AND g.school_id = $1"
		args = append(args, filter.SchoolID)
	}

	_, pageSize, offset := paginate(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY s.name ASC, g.grade_number ASC LIMIT %d OFFSET %d", gradeColumns, baseQuery, pageSize, offset)

	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list grades: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count grades: %w", err)
	}
	return grades, total, nil
}

// FindByID returns a grade with its school name or sql.ErrNoRows.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades g JOIN schools s ON s.id = g.school_id WHERE g.id = $1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find grade: %w", err)
	}
	return &grade, nil
}

// ExistsByNumber reports whether the school already has gradeNumber, ignoring excludeID.
func (r *GradeRepository) ExistsByNumber(ctx context.Context, schoolID string, gradeNumber int, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM grades WHERE school_id = $1 AND grade_number = $2`
	args := []interface{}{schoolID, gradeNumber}
	if excludeID != "" {
		query += ` AND id <> $3`
		args = append(args, excludeID)
	}
	query += `)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check grade number: %w", err)
	}
	return exists, nil
}

// Create inserts a grade.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, school_id, grade_number, name, created_at, updated_at) VALUES (:id, :school_id, :grade_number, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return wrapWrite("create grade", err)
	}
	return nil
}

// Update modifies a grade.
func (r *GradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	grade.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grades SET school_id = :school_id, grade_number = :grade_number, name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return wrapWrite("update grade", err)
	}
	return nil
}

// CountClasses returns how many classes reference the grade.
func (r *GradeRepository) CountClasses(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM classes WHERE grade_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count grade classes: %w", err)
	}
	return count, nil
}

// Delete removes the grade only while no class references it. It returns
// false when classes block the delete.
func (r *GradeRepository) Delete(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM grades g WHERE g.id = $1 AND NOT EXISTS (SELECT 1 FROM classes c WHERE c.grade_id = g.id)`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete grade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete grade rows: %w", err)
	}
	return n > 0, nil
}
