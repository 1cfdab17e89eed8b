package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/repository"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

type schoolRepository interface {
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	CountGrades(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

const schoolNameTaken = "School name already exists"

// SchoolService manages schools.
type SchoolService struct {
	repo      schoolRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs the service.
func NewSchoolService(repo schoolRepository, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SchoolService{repo: repo, validator: validate, logger: logger}
}

// List returns schools with pagination metadata.
func (s *SchoolService) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, *models.Pagination, error) {
	schools, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list schools")
	}
	return schools, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one school.
func (s *SchoolService) Get(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "School not found", "failed to load school")
	}
	return school, nil
}

// Create adds a school with a case-insensitively unique name.
func (s *SchoolService) Create(ctx context.Context, req dto.SchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid school payload")
	}
	if err := s.ensureNameFree(ctx, req.Name, ""); err != nil {
		return nil, err
	}

	school := &models.School{Name: strings.TrimSpace(req.Name), Address: strings.TrimSpace(req.Address)}
	if err := s.repo.Create(ctx, school); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, schoolNameTaken)
		}
		return nil, internalError(err, "failed to create school")
	}
	return school, nil
}

// Update renames or re-addresses a school.
func (s *SchoolService) Update(ctx context.Context, id string, req dto.SchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid school payload")
	}
	school, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, req.Name, id); err != nil {
		return nil, err
	}

	school.Name = strings.TrimSpace(req.Name)
	school.Address = strings.TrimSpace(req.Address)
	if err := s.repo.Update(ctx, school); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, schoolNameTaken)
		}
		return nil, internalError(err, "failed to update school")
	}
	return school, nil
}

// Delete removes a school that no grade references.
func (s *SchoolService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountGrades(ctx, id)
	if err != nil {
		return internalError(err, "failed to count grades")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "School still has grades")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "School not found", "failed to delete school")
	}
	return nil
}

func (s *SchoolService) ensureNameFree(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return internalError(err, "failed to check school name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, schoolNameTaken)
	}
	return nil
}
