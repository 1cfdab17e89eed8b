package handler

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/repository"
)

type schoolStore struct {
	schools map[string]*models.School
}

func (s *schoolStore) FindByID(_ context.Context, id string) (*models.School, error) {
	school, ok := s.schools[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *school
	return &copied, nil
}

type gradeStore struct {
	mu     sync.Mutex
	grades map[string]*models.Grade
}

func newGradeStore() *gradeStore {
	return &gradeStore{grades: map[string]*models.Grade{}}
}

func (s *gradeStore) List(_ context.Context, _ models.GradeFilter) ([]models.Grade, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Grade, 0, len(s.grades))
	for _, g := range s.grades {
		out = append(out, *g)
	}
	return out, len(out), nil
}

func (s *gradeStore) FindByID(_ context.Context, id string) (*models.Grade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grades[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *g
	return &copied, nil
}

func (s *gradeStore) ExistsByNumber(_ context.Context, schoolID string, number int, excludeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.grades {
		if g.SchoolID == schoolID && g.GradeNumber == number && g.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *gradeStore) Create(_ context.Context, grade *models.Grade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.grades {
		if g.SchoolID == grade.SchoolID && g.GradeNumber == grade.GradeNumber {
			return repository.ErrDuplicate
		}
	}
	grade.ID = uuid.NewString()
	copied := *grade
	s.grades[grade.ID] = &copied
	return nil
}

func (s *gradeStore) Update(_ context.Context, grade *models.Grade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *grade
	s.grades[grade.ID] = &copied
	return nil
}

func (s *gradeStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grades[id].ClassCount > 0 {
		return false, nil
	}
	delete(s.grades, id)
	return true, nil
}

// classStore only answers membership listings; the admin paths are covered
// by the service tests.
type classStore struct {
	byMember map[string][]models.Class
}

func (s *classStore) List(context.Context, models.ClassFilter) ([]models.Class, int, error) {
	return nil, 0, nil
}

func (s *classStore) FindByID(context.Context, string) (*models.Class, error) {
	return nil, sql.ErrNoRows
}

func (s *classStore) Members(context.Context, string) ([]models.ClassMember, error) {
	return nil, nil
}

func (s *classStore) ExistsByName(context.Context, string, string, string) (bool, error) {
	return false, nil
}

func (s *classStore) Create(context.Context, *models.Class) error { return nil }

func (s *classStore) Update(context.Context, *models.Class) error { return nil }

func (s *classStore) Delete(context.Context, string) error { return nil }

func (s *classStore) ReplaceMembers(context.Context, string, models.MemberRole, []string) error {
	return nil
}

func (s *classStore) IsMember(_ context.Context, classID, userID string, _ models.MemberRole) (bool, error) {
	for _, class := range s.byMember[userID] {
		if class.ID == classID {
			return true, nil
		}
	}
	return false, nil
}

func (s *classStore) ListForMember(_ context.Context, userID string, _ models.MemberRole) ([]models.Class, error) {
	return s.byMember[userID], nil
}

func (s *classStore) StudentsForTeacher(context.Context, string, string) ([]models.ClassMember, error) {
	return nil, nil
}
