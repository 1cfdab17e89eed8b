package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/repository"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Members(ctx context.Context, classID string) ([]models.ClassMember, error)
	ExistsByName(ctx context.Context, gradeID, name, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
	ReplaceMembers(ctx context.Context, classID string, role models.MemberRole, userIDs []string) error
	IsMember(ctx context.Context, classID, userID string, role models.MemberRole) (bool, error)
	ListForMember(ctx context.Context, userID string, role models.MemberRole) ([]models.Class, error)
	StudentsForTeacher(ctx context.Context, teacherID, classID string) ([]models.ClassMember, error)
}

type gradeReader interface {
	FindByID(ctx context.Context, id string) (*models.Grade, error)
}

type userBatchReader interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

const classNameTaken = "Class name already exists in this grade"

// ClassService manages classes and their memberships.
type ClassService struct {
	classes   classRepository
	grades    gradeReader
	users     userBatchReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the service.
func NewClassService(classes classRepository, grades gradeReader, users userBatchReader, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{classes: classes, grades: grades, users: users, validator: validate, logger: logger}
}

// List returns classes with grade, school and member counts.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.classes.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list classes")
	}
	return classes, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a class with its teachers and students.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Class not found", "failed to load class")
	}
	members, err := s.classes.Members(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load class members")
	}

	detail := &models.ClassDetail{Class: *class, Teachers: []models.ClassMember{}, Students: []models.ClassMember{}}
	for _, member := range members {
		if member.MemberRole == models.MemberTeacher {
			detail.Teachers = append(detail.Teachers, member)
		} else {
			detail.Students = append(detail.Students, member)
		}
	}
	return detail, nil
}

// Create adds a class to an existing grade.
func (s *ClassService) Create(ctx context.Context, req dto.ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}
	if _, err := s.grades.FindByID(ctx, req.GradeID); err != nil {
		return nil, lookupError(err, "Grade not found", "failed to load grade")
	}
	if err := s.ensureNameFree(ctx, req.GradeID, req.ClassName, ""); err != nil {
		return nil, err
	}

	class := &models.Class{GradeID: req.GradeID, ClassName: strings.TrimSpace(req.ClassName)}
	if err := s.classes.Create(ctx, class); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, classNameTaken)
		}
		return nil, internalError(err, "failed to create class")
	}
	return s.reload(ctx, class)
}

// Update renames a class or moves it to another grade.
func (s *ClassService) Update(ctx context.Context, id string, req dto.ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Class not found", "failed to load class")
	}
	if _, err := s.grades.FindByID(ctx, req.GradeID); err != nil {
		return nil, lookupError(err, "Grade not found", "failed to load grade")
	}
	if err := s.ensureNameFree(ctx, req.GradeID, req.ClassName, id); err != nil {
		return nil, err
	}

	class.GradeID = req.GradeID
	class.ClassName = strings.TrimSpace(req.ClassName)
	if err := s.classes.Update(ctx, class); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, classNameTaken)
		}
		return nil, internalError(err, "failed to update class")
	}
	return s.reload(ctx, class)
}

// Delete removes the class, its memberships and its book assignments.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if err := s.classes.Delete(ctx, id); err != nil {
		return lookupError(err, "Class not found", "failed to delete class")
	}
	return nil
}

// ReplaceTeachers makes teacherIDs the class's complete teacher list.
func (s *ClassService) ReplaceTeachers(ctx context.Context, id string, req dto.ClassTeachersRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher list")
	}
	return s.replaceMembers(ctx, id, models.RoleTeacher, req.TeacherIDs)
}

// ReplaceStudents makes studentIDs the class's complete student list.
func (s *ClassService) ReplaceStudents(ctx context.Context, id string, req dto.ClassStudentsRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student list")
	}
	return s.replaceMembers(ctx, id, models.RoleStudent, req.StudentIDs)
}

// ForTeacher returns the classes a teacher belongs to. It never returns nil.
func (s *ClassService) ForTeacher(ctx context.Context, teacherID string) ([]models.Class, error) {
	classes, err := s.classes.ListForMember(ctx, teacherID, models.MemberTeacher)
	if err != nil {
		return nil, internalError(err, "failed to list teacher classes")
	}
	if classes == nil {
		classes = []models.Class{}
	}
	return classes, nil
}

// StudentsForTeacher lists students across the teacher's classes. A classID
// that is not one of the teacher's is forbidden.
func (s *ClassService) StudentsForTeacher(ctx context.Context, teacherID, classID string) ([]models.ClassMember, error) {
	if classID != "" {
		member, err := s.classes.IsMember(ctx, classID, teacherID, models.MemberTeacher)
		if err != nil {
			return nil, internalError(err, "failed to check class membership")
		}
		if !member {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "You are not a teacher of this class")
		}
	}
	students, err := s.classes.StudentsForTeacher(ctx, teacherID, classID)
	if err != nil {
		return nil, internalError(err, "failed to list students")
	}
	if students == nil {
		students = []models.ClassMember{}
	}
	return students, nil
}

func (s *ClassService) replaceMembers(ctx context.Context, id string, role models.UserRole, ids []string) (*models.ClassDetail, error) {
	if _, err := s.classes.FindByID(ctx, id); err != nil {
		return nil, lookupError(err, "Class not found", "failed to load class")
	}

	unique := dedupe(ids)
	users, err := s.users.FindByIDs(ctx, unique)
	if err != nil {
		return nil, internalError(err, "failed to load users")
	}
	found := make(map[string]models.UserRole, len(users))
	for _, u := range users {
		found[u.ID] = u.Role
	}
	for _, userID := range unique {
		actual, ok := found[userID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("user %s does not exist", userID))
		}
		if actual != role {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("user %s is not a %s", userID, role))
		}
	}

	memberRole, _ := models.MemberRoleFor(role)
	if err := s.classes.ReplaceMembers(ctx, id, memberRole, unique); err != nil {
		return nil, internalError(err, "failed to replace class members")
	}
	return s.Get(ctx, id)
}

func (s *ClassService) ensureNameFree(ctx context.Context, gradeID, name, excludeID string) error {
	exists, err := s.classes.ExistsByName(ctx, gradeID, name, excludeID)
	if err != nil {
		return internalError(err, "failed to check class name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, classNameTaken)
	}
	return nil
}

func (s *ClassService) reload(ctx context.Context, class *models.Class) (*models.Class, error) {
	fresh, err := s.classes.FindByID(ctx, class.ID)
	if err != nil {
		s.logger.Warn("class reload failed", zap.String("class_id", class.ID), zap.Error(err))
		return class, nil
	}
	return fresh, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
