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

type gradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error)
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	ExistsByNumber(ctx context.Context, schoolID string, gradeNumber int, excludeID string) (bool, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id string) (bool, error)
}

type schoolReader interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

// GradeService manages grades within schools.
type GradeService struct {
	grades    gradeRepository
	schools   schoolReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs the service.
func NewGradeService(grades gradeRepository, schools schoolReader, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradeService{grades: grades, schools: schools, validator: validate, logger: logger}
}

// List returns grades, optionally for one school.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, *models.Pagination, error) {
	grades, total, err := s.grades.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list grades")
	}
	return grades, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a grade together with its school.
func (s *GradeService) Get(ctx context.Context, id string) (*models.GradeDetail, error) {
	grade, err := s.grades.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Grade not found", "failed to load grade")
	}
	detail := &models.GradeDetail{Grade: *grade}
	school, err := s.schools.FindByID(ctx, grade.SchoolID)
	if err != nil {
		s.logger.Warn("grade school lookup failed", zap.String("grade_id", id), zap.Error(err))
	} else {
		detail.School = school
	}
	return detail, nil
}

// Create adds a grade. The school must exist and the grade number must be free within it.
func (s *GradeService) Create(ctx context.Context, req dto.GradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid grade payload")
	}
	school, err := s.schools.FindByID(ctx, req.SchoolID)
	if err != nil {
		return nil, lookupError(err, "School not found", "failed to load school")
	}
	if err := s.ensureNumberFree(ctx, req.SchoolID, req.GradeNumber, ""); err != nil {
		return nil, err
	}

	grade := &models.Grade{SchoolID: school.ID, GradeNumber: req.GradeNumber, Name: strings.TrimSpace(req.Name), SchoolName: school.Name}
	if err := s.grades.Create(ctx, grade); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, gradeTaken(req.GradeNumber)
		}
		return nil, internalError(err, "failed to create grade")
	}
	return grade, nil
}

// Update edits a grade under the same checks as Create.
func (s *GradeService) Update(ctx context.Context, id string, req dto.GradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid grade payload")
	}
	grade, err := s.grades.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Grade not found", "failed to load grade")
	}
	school, err := s.schools.FindByID(ctx, req.SchoolID)
	if err != nil {
		return nil, lookupError(err, "School not found", "failed to load school")
	}
	if err := s.ensureNumberFree(ctx, req.SchoolID, req.GradeNumber, id); err != nil {
		return nil, err
	}

	grade.SchoolID = school.ID
	grade.SchoolName = school.Name
	grade.GradeNumber = req.GradeNumber
	grade.Name = strings.TrimSpace(req.Name)
	if err := s.grades.Update(ctx, grade); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, gradeTaken(req.GradeNumber)
		}
		return nil, internalError(err, "failed to update grade")
	}
	return grade, nil
}

// Delete removes a grade that has no classes. The check and the delete are one statement.
func (s *GradeService) Delete(ctx context.Context, id string) error {
	if _, err := s.grades.FindByID(ctx, id); err != nil {
		return lookupError(err, "Grade not found", "failed to load grade")
	}
	deleted, err := s.grades.Delete(ctx, id)
	if err != nil {
		return internalError(err, "failed to delete grade")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrConflict, "Cannot delete grade with associated classes")
	}
	return nil
}

func (s *GradeService) ensureNumberFree(ctx context.Context, schoolID string, number int, excludeID string) error {
	exists, err := s.grades.ExistsByNumber(ctx, schoolID, number, excludeID)
	if err != nil {
		return internalError(err, "failed to check grade number")
	}
	if exists {
		return gradeTaken(number)
	}
	return nil
}

func gradeTaken(number int) error {
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("Grade %d already exists for this school", number))
}
