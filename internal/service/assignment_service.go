package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/repository"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.BookAssignment) error
	FindByID(ctx context.Context, id string) (*models.BookAssignment, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.BookAssignment, error)
	Delete(ctx context.Context, id string) error
}

type storyReader interface {
	FindByID(ctx context.Context, id string) (*models.Story, error)
}

type classMembership interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	IsMember(ctx context.Context, classID, userID string, role models.MemberRole) (bool, error)
}

// AssignmentService lets teachers assign published stories to their classes.
type AssignmentService struct {
	assignments assignmentRepository
	stories     storyReader
	classes     classMembership
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs the service. cache may be nil.
func NewAssignmentService(assignments assignmentRepository, stories storyReader, classes classMembership, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{assignments: assignments, stories: stories, classes: classes, cache: cache, validator: validate, logger: logger}
}

// Create assigns a story to a class, or to one student in it.
func (s *AssignmentService) Create(ctx context.Context, teacherID string, req dto.AssignBookRequest) (*models.BookAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}

	story, err := s.stories.FindByID(ctx, req.StoryID)
	if err != nil {
		return nil, lookupError(err, "Story not found", "failed to load story")
	}
	if story.Status != models.StoryPublished {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Only published stories can be assigned")
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		return nil, lookupError(err, "Class not found", "failed to load class")
	}
	teaches, err := s.classes.IsMember(ctx, req.ClassID, teacherID, models.MemberTeacher)
	if err != nil {
		return nil, internalError(err, "failed to check class membership")
	}
	if !teaches {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "You are not a teacher of this class")
	}

	if req.StudentID != nil {
		enrolled, err := s.classes.IsMember(ctx, req.ClassID, *req.StudentID, models.MemberStudent)
		if err != nil {
			return nil, internalError(err, "failed to check class membership")
		}
		if !enrolled {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Student is not a member of this class")
		}
	}

	assignment := &models.BookAssignment{
		TeacherID:  teacherID,
		ClassID:    req.ClassID,
		StudentID:  req.StudentID,
		StoryID:    req.StoryID,
		StoryTitle: story.Title,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Book is already assigned")
		}
		return nil, internalError(err, "failed to create assignment")
	}

	s.cache.Invalidate(ctx, teacherStatsCachePrefix+teacherID)
	if created, err := s.assignments.FindByID(ctx, assignment.ID); err == nil {
		return created, nil
	}
	return assignment, nil
}

// List returns the teacher's assignments.
func (s *AssignmentService) List(ctx context.Context, teacherID string) ([]models.BookAssignment, error) {
	assignments, err := s.assignments.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, internalError(err, "failed to list assignments")
	}
	if assignments == nil {
		assignments = []models.BookAssignment{}
	}
	return assignments, nil
}

// Delete removes an assignment owned by teacherID.
func (s *AssignmentService) Delete(ctx context.Context, teacherID, id string) error {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "Assignment not found", "failed to load assignment")
	}
	if assignment.TeacherID != teacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "Only the assigning teacher can remove this assignment")
	}
	if err := s.assignments.Delete(ctx, id); err != nil {
		return lookupError(err, "Assignment not found", "failed to delete assignment")
	}
	s.cache.Invalidate(ctx, teacherStatsCachePrefix+teacherID)
	return nil
}
