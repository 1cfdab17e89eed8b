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

	"github.com/noah-isme/storyninja-api/internal/discussion"
	"github.com/noah-isme/storyninja-api/internal/models"
)

const userColumns = `u.id, u.email, u.password_hash, u.name, u.username, u.profile_picture, u.role, u.active, u.verified, u.school_id,
u.ninja_gold, u.ninja_level, u.stories_uploaded, u.created_at, u.updated_at,
ARRAY(SELECT cm.class_id::text FROM class_memberships cm WHERE cm.user_id = u.id ORDER BY cm.created_at, cm.class_id) AS assigned_classes`

// UserRepository provides database access for user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address, compared case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindByIDs returns the users matching ids. Missing ids are simply absent from the result.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id::text = ANY($1)`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find users by ids: %w", err)
	}
	return users, nil
}

// ExistsByEmail reports whether another account already uses email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	if err := r.db.GetContext(ctx, &exists, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return exists, nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SetVerified marks the account's email as confirmed.
func (r *UserRepository) SetVerified(ctx context.Context, id string) error {
	const query = `UPDATE users SET verified = TRUE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("verify user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users u WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("u.role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("u.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("u.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.email) LIKE $%d OR LOWER(u.name) LIKE $%d OR LOWER(u.username) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, likePattern(filter.Search))
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"email":      true,
		"name":       true,
		"created_at": true,
		"ninja_gold": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	_, pageSize, offset := paginate(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY u.%s %s LIMIT %d OFFSET %d", userColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.NinjaLevel == 0 {
		user.NinjaLevel = models.LevelForGold(user.NinjaGold)
	}

	const query = `INSERT INTO users (id, email, password_hash, name, username, profile_picture, role, active, verified, school_id, ninja_gold, ninja_level, stories_uploaded, created_at, updated_at)
VALUES (:id, :email, :password_hash, :name, :username, :profile_picture, :role, :active, :verified, :school_id, :ninja_gold, :ninja_level, :stories_uploaded, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return wrapWrite("create user", err)
	}
	return nil
}

// Update updates mutable profile and access fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET name = :name, username = :username, profile_picture = :profile_picture, role = :role, active = :active,
verified = :verified, school_id = :school_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// AddGold credits amount and recomputes the level, returning the new totals.
func (r *UserRepository) AddGold(ctx context.Context, id string, amount int) (int, int, error) {
	const query = `UPDATE users SET ninja_gold = ninja_gold + $2, ninja_level = ((ninja_gold + $2) / $3) + 1, updated_at = $4
WHERE id = $1 RETURNING ninja_gold, ninja_level`
	var gold, level int
	if err := r.db.QueryRowxContext(ctx, query, id, amount, models.GoldPerLevel, time.Now().UTC()).Scan(&gold, &level); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, err
		}
		return 0, 0, fmt.Errorf("add gold: %w", err)
	}
	return gold, level, nil
}

// ReplaceClasses sets the user's memberships to exactly classIDs.
func (r *UserRepository) ReplaceClasses(ctx context.Context, userID string, role models.MemberRole, classIDs []string) error {
	return withTx(ctx, r.db, "replace user classes", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM class_memberships WHERE user_id = $1 AND NOT (class_id::text = ANY($2))`, userID, pq.Array(classIDs)); err != nil {
			return fmt.Errorf("remove user classes: %w", err)
		}
		now := time.Now().UTC()
		for _, classID := range classIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO class_memberships (user_id, class_id, member_role, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, class_id) DO UPDATE SET member_role = EXCLUDED.member_role`, userID, classID, role, now); err != nil {
				return fmt.Errorf("add user class: %w", err)
			}
		}
		return nil
	})
}

// Delete hard-deletes the user and every back-reference to it in one transaction.
// The user's likes are pulled from stories, comments and replies.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, "delete user", func(tx *sqlx.Tx) error {
		cleanup := []struct {
			name  string
			query string
		}{
			{"memberships", `DELETE FROM class_memberships WHERE user_id = $1`},
			{"session", `DELETE FROM user_sessions WHERE user_id = $1`},
			{"progress", `DELETE FROM reading_progress WHERE user_id = $1`},
			{"attempts", `DELETE FROM quiz_attempts WHERE user_id = $1`},
			{"assignments", `DELETE FROM book_assignments WHERE student_id = $1 OR teacher_id = $1`},
			{"story likes", `UPDATE stories SET likes = array_remove(likes, $1::text), like_count = cardinality(array_remove(likes, $1::text)) WHERE $1::text = ANY(likes)`},
		}
		for _, step := range cleanup {
			if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
				return fmt.Errorf("delete user %s: %w", step.name, err)
			}
		}

		var stories []models.Story
		if err := tx.SelectContext(ctx, &stories, `SELECT id, comments FROM stories WHERE comments::text LIKE $1 FOR UPDATE`, "%"+id+"%"); err != nil {
			return fmt.Errorf("load commented stories: %w", err)
		}
		for _, story := range stories {
			pulled, changed := discussion.PullUser(story.Comments, id)
			if !changed {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE stories SET comments = $2 WHERE id = $1`, story.ID, models.Comments(pulled)); err != nil {
				return fmt.Errorf("pull user from comments: %w", err)
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}
