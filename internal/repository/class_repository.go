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
	"github.com/lib/pq"

	"github.com/noah-isme/storyninja-api/internal/models"
)

const classColumns = `c.id, c.grade_id, c.class_name, c.created_at, c.updated_at,
g.name AS grade_name, g.grade_number, g.school_id, s.name AS school_name,
(SELECT COUNT(*) FROM class_memberships m WHERE m.class_id = c.id AND m.member_role = 'teacher') AS teacher_count,
(SELECT COUNT(*) FROM class_memberships m WHERE m.class_id = c.id AND m.member_role = 'student') AS student_count`

const classJoins = `FROM classes c JOIN grades g ON g.id = c.grade_id JOIN schools s ON s.id = g.school_id`

const memberColumns = `u.id, m.class_id, u.name, u.email, u.username, u.profile_picture, m.member_role, u.ninja_gold, u.ninja_level`

// ClassRepository provides database access for classes and memberships.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new instance of ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes with grade and school names and member counts.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	baseQuery := classJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.GradeID != "" {
		conditions = append(conditions, fmt.Sprintf("c.grade_id = $%d", len(args)+1))
		args = append(args, filter.GradeID)
	}
	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("g.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.class_name) LIKE $%d", len(args)+1))
		args = append(args, likePattern(filter.Search))
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	_, pageSize, offset := paginate(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY s.name ASC, g.grade_number ASC, c.class_name ASC LIMIT %d OFFSET %d", classColumns, baseQuery, pageSize, offset)

	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a class or sql.ErrNoRows.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` ` + classJoins + ` WHERE c.id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// FindByIDs returns the classes matching ids.
func (r *ClassRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Class, error) {
	if len(ids) == 0 {
		return []models.Class{}, nil
	}
	query := `SELECT ` + classColumns + ` ` + classJoins + ` WHERE c.id::text = ANY($1)`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find classes by ids: %w", err)
	}
	return classes, nil
}

// Members lists users in the class, teachers first.
func (r *ClassRepository) Members(ctx context.Context, classID string) ([]models.ClassMember, error) {
	query := `SELECT ` + memberColumns + ` FROM class_memberships m JOIN users u ON u.id = m.user_id
WHERE m.class_id = $1 ORDER BY m.member_role DESC, u.name ASC`
	var members []models.ClassMember
	if err := r.db.SelectContext(ctx, &members, query, classID); err != nil {
		return nil, fmt.Errorf("list class members: %w", err)
	}
	return members, nil
}

// ExistsByName reports whether the grade already has a class named name, ignoring excludeID.
func (r *ClassRepository) ExistsByName(ctx context.Context, gradeID, name, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM classes WHERE grade_id = $1 AND LOWER(class_name) = LOWER($2)`
	args := []interface{}{gradeID, strings.TrimSpace(name)}
	if excludeID != "" {
		query += ` AND id <> $3`
		args = append(args, excludeID)
	}
	query += `)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check class name: %w", err)
	}
	return exists, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, grade_id, class_name, created_at, updated_at) VALUES (:id, :grade_id, :class_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return wrapWrite("create class", err)
	}
	return nil
}

// Update modifies a class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET grade_id = :grade_id, class_name = :class_name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return wrapWrite("update class", err)
	}
	return nil
}

// Delete removes the class together with its memberships and book assignments.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, "delete class", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM class_memberships WHERE class_id = $1`, id); err != nil {
			return fmt.Errorf("delete class memberships: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM book_assignments WHERE class_id = $1`, id); err != nil {
			return fmt.Errorf("delete class assignments: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete class: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// ReplaceMembers makes userIDs the complete set of members holding role in the
// class. Members of that role missing from userIDs lose the class; new ids gain it.
func (r *ClassRepository) ReplaceMembers(ctx context.Context, classID string, role models.MemberRole, userIDs []string) error {
	return withTx(ctx, r.db, "replace class members", func(tx *sqlx.Tx) error {
		const removeQuery = `DELETE FROM class_memberships WHERE class_id = $1 AND member_role = $2 AND NOT (user_id::text = ANY($3))`
		if _, err := tx.ExecContext(ctx, removeQuery, classID, role, pq.Array(userIDs)); err != nil {
			return fmt.Errorf("remove class members: %w", err)
		}
		now := time.Now().UTC()
		const addQuery = `INSERT INTO class_memberships (user_id, class_id, member_role, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, class_id) DO UPDATE SET member_role = EXCLUDED.member_role`
		for _, userID := range userIDs {
			if _, err := tx.ExecContext(ctx, addQuery, userID, classID, role, now); err != nil {
				return fmt.Errorf("add class member: %w", err)
			}
		}
		return nil
	})
}

// IsMember reports whether userID holds role in classID.
func (r *ClassRepository) IsMember(ctx context.Context, classID, userID string, role models.MemberRole) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM class_memberships WHERE class_id = $1 AND user_id = $2 AND member_role = $3)`
	if err := r.db.GetContext(ctx, &exists, query, classID, userID, role); err != nil {
		return false, fmt.Errorf("check class membership: %w", err)
	}
	return exists, nil
}

// ListForMember returns the classes a user belongs to in the given role.
func (r *ClassRepository) ListForMember(ctx context.Context, userID string, role models.MemberRole) ([]models.Class, error) {
	query := `SELECT ` + classColumns + ` ` + classJoins + `
JOIN class_memberships cm ON cm.class_id = c.id
WHERE cm.user_id = $1 AND cm.member_role = $2
ORDER BY g.grade_number ASC, c.class_name ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, userID, role); err != nil {
		return nil, fmt.Errorf("list member classes: %w", err)
	}
	return classes, nil
}

// StudentsForTeacher lists students across the teacher's classes, optionally narrowed to one class.
func (r *ClassRepository) StudentsForTeacher(ctx context.Context, teacherID, classID string) ([]models.ClassMember, error) {
	query := `SELECT ` + memberColumns + ` FROM class_memberships m
JOIN users u ON u.id = m.user_id
JOIN class_memberships t ON t.class_id = m.class_id AND t.user_id = $1 AND t.member_role = 'teacher'
WHERE m.member_role = 'student'`
	args := []interface{}{teacherID}
	if classID != "" {
		query += ` AND m.class_id = $2`
		args = append(args, classID)
	}
	query += ` ORDER BY u.name ASC`

	var students []models.ClassMember
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list teacher students: %w", err)
	}
	return students, nil
}
