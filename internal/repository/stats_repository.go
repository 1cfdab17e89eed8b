package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/storyninja-api/internal/models"
)

// StatsRepository aggregates reading activity for teacher dashboards.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// A progress row counts for a class when the reader is a student member and
// the story is assigned to the class or directly to that student within it.
const classProgressScope = `FROM reading_progress rp
JOIN class_memberships sm ON sm.user_id = rp.user_id AND sm.class_id = c.id AND sm.member_role = 'student'
WHERE EXISTS (SELECT 1 FROM book_assignments ba WHERE ba.class_id = c.id AND ba.story_id = rp.story_id
AND (ba.student_id IS NULL OR ba.student_id = rp.user_id))`

// ClassStatsForTeacher returns one row per class the teacher belongs to.
func (r *StatsRepository) ClassStatsForTeacher(ctx context.Context, teacherID string) ([]models.ClassStats, error) {
	query := `SELECT c.id AS class_id, c.class_name, g.name AS grade_name,
(SELECT COUNT(*) FROM class_memberships m WHERE m.class_id = c.id AND m.member_role = 'student') AS students,
(SELECT COUNT(*) FROM book_assignments ba WHERE ba.class_id = c.id) AS assignments,
(SELECT COUNT(*) ` + classProgressScope + ` AND rp.completed) AS completions,
COALESCE((SELECT AVG(rp.progress)::float8 ` + classProgressScope + `), 0) AS average_progress
FROM class_memberships tm
JOIN classes c ON c.id = tm.class_id
JOIN grades g ON g.id = c.grade_id
WHERE tm.user_id = $1 AND tm.member_role = 'teacher'
ORDER BY g.grade_number ASC, c.class_name ASC`

	var stats []models.ClassStats
	if err := r.db.SelectContext(ctx, &stats, query, teacherID); err != nil {
		return nil, fmt.Errorf("class stats: %w", err)
	}
	return stats, nil
}
