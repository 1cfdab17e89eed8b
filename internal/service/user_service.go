package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/repository"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	ReplaceClasses(ctx context.Context, userID string, role models.MemberRole, classIDs []string) error
	Delete(ctx context.Context, id string) error
}

type classBatchReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Class, error)
}

type authoredStoryCounter interface {
	CountByAuthor(ctx context.Context, authorID string) (int, error)
}

type verificationMailer interface {
	Send(ctx context.Context, user *models.User) error
}

// UserDeps groups the collaborators of UserService.
type UserDeps struct {
	Users        userRepository
	Schools      schoolReader
	Classes      classBatchReader
	Stories      authoredStoryCounter
	Verification verificationMailer
	Audit        auditRecorder
}

// UserService handles user management workflows.
type UserService struct {
	deps      UserDeps
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(deps UserDeps, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{deps: deps, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.deps.Users.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list users")
	}
	return users, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user with their assigned classes.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.deps.Users.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "User not found", "failed to load user")
	}
	return user, nil
}

// Create provisions an account. Unverified accounts are sent a verification mail.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest, actorID string, meta dto.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid create user payload")
	}

	exists, err := s.deps.Users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, internalError(err, "failed to check email uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Email already exists")
	}
	if err := s.checkSchool(ctx, req.SchoolID); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}
	passwordHash := string(hash)

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	user := &models.User{
		Email:          req.Email,
		PasswordHash:   &passwordHash,
		Name:           strings.TrimSpace(req.Name),
		Username:       strings.TrimSpace(req.Username),
		ProfilePicture: req.ProfilePicture,
		Role:           req.Role,
		Active:         active,
		Verified:       req.Verified,
		SchoolID:       emptyToNil(req.SchoolID),
		NinjaLevel:     1,
	}
	if err := s.deps.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Email already exists")
		}
		return nil, internalError(err, "failed to create user")
	}

	if !user.Verified && s.deps.Verification != nil {
		if err := s.deps.Verification.Send(ctx, user); err != nil {
			s.logger.Warn("failed to send verification mail", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	s.audit(ctx, actorID, models.AuditActionCreate, user.ID, nil, auditUser(user), meta)
	return s.Get(ctx, user.ID)
}

// Update applies the non-nil fields of req. A role change carries the user's
// memberships over to the new member role, or drops them for admins.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest, actorID string, meta dto.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid update user payload")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := auditUser(user)
	previousRole := user.Role

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Username != nil {
		user.Username = strings.TrimSpace(*req.Username)
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Verified != nil {
		user.Verified = *req.Verified
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = *req.ProfilePicture
	}
	if req.SchoolID != nil {
		if err := s.checkSchool(ctx, req.SchoolID); err != nil {
			return nil, err
		}
		user.SchoolID = emptyToNil(req.SchoolID)
	}

	if err := s.deps.Users.Update(ctx, user); err != nil {
		return nil, internalError(err, "failed to update user")
	}

	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, internalError(err, "failed to hash password")
		}
		if err := s.deps.Users.UpdatePassword(ctx, user.ID, string(hash), time.Now().UTC()); err != nil {
			return nil, internalError(err, "failed to update password")
		}
	}

	if user.Role != previousRole && len(user.AssignedClasses) > 0 {
		memberRole, ok := models.MemberRoleFor(user.Role)
		classIDs := []string(user.AssignedClasses)
		if !ok {
			classIDs = []string{}
		}
		if err := s.deps.Users.ReplaceClasses(ctx, user.ID, memberRole, classIDs); err != nil {
			return nil, internalError(err, "failed to update memberships")
		}
	}

	s.audit(ctx, actorID, models.AuditActionUpdate, user.ID, before, auditUser(user), meta)
	return s.Get(ctx, user.ID)
}

// Delete hard-deletes a user and their back-references. Users who authored
// stories cannot be deleted.
func (s *UserService) Delete(ctx context.Context, id, actorID string, meta dto.RequestMeta) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if id == actorID {
		return appErrors.Clone(appErrors.ErrValidation, "You cannot delete your own account")
	}

	authored, err := s.deps.Stories.CountByAuthor(ctx, id)
	if err != nil {
		return internalError(err, "failed to count authored stories")
	}
	if authored > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "User has authored stories")
	}

	if err := s.deps.Users.Delete(ctx, id); err != nil {
		return lookupError(err, "User not found", "failed to delete user")
	}
	s.audit(ctx, actorID, models.AuditActionDelete, id, auditUser(user), nil, meta)
	return nil
}

// ReplaceClasses sets the user's class memberships. Admins cannot belong to classes.
func (s *UserService) ReplaceClasses(ctx context.Context, id string, req dto.UserClassesRequest, actorID string, meta dto.RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class list")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	memberRole, ok := models.MemberRoleFor(user.Role)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Admins cannot be assigned to classes")
	}

	classIDs := dedupe(req.ClassIDs)
	classes, err := s.deps.Classes.FindByIDs(ctx, classIDs)
	if err != nil {
		return nil, internalError(err, "failed to load classes")
	}
	if len(classes) != len(classIDs) {
		known := make(map[string]struct{}, len(classes))
		for _, c := range classes {
			known[c.ID] = struct{}{}
		}
		for _, classID := range classIDs {
			if _, ok := known[classID]; !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("class %s does not exist", classID))
			}
		}
	}

	if err := s.deps.Users.ReplaceClasses(ctx, id, memberRole, classIDs); err != nil {
		return nil, internalError(err, "failed to replace user classes")
	}
	s.audit(ctx, actorID, models.AuditActionMembership, id, map[string]interface{}{"classIds": user.AssignedClasses}, map[string]interface{}{"classIds": classIDs}, meta)
	return s.Get(ctx, id)
}

func (s *UserService) checkSchool(ctx context.Context, schoolID *string) error {
	if schoolID == nil || *schoolID == "" || s.deps.Schools == nil {
		return nil
	}
	if _, err := s.deps.Schools.FindByID(ctx, *schoolID); err != nil {
		return lookupError(err, "School not found", "failed to load school")
	}
	return nil
}

func (s *UserService) audit(ctx context.Context, actorID, action, userID string, oldValues, newValues interface{}, meta dto.RequestMeta) {
	if s.deps.Audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "users",
		ResourceID: &userID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.deps.Audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record user audit log", zap.String("action", action), zap.Error(err))
	}
}

func auditUser(user *models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":       user.ID,
		"email":    user.Email,
		"role":     user.Role,
		"active":   user.Active,
		"verified": user.Verified,
	}
}

func emptyToNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}
