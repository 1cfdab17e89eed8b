package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
	"github.com/noah-isme/storyninja-api/pkg/export"
)

type statsRepository interface {
	ClassStatsForTeacher(ctx context.Context, teacherID string) ([]models.ClassStats, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

var statsHeaders = []string{"Class", "Grade", "Students", "Assignments", "Completions", "Average Progress"}

// StatsService aggregates reading activity across a teacher's classes.
type StatsService struct {
	stats    statsRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewStatsService constructs the service. cache may be nil.
func NewStatsService(stats statsRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{stats: stats, cache: cache, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// Teacher returns per-class aggregates and totals, cached per teacher.
func (s *StatsService) Teacher(ctx context.Context, teacherID string) (*models.TeacherStats, error) {
	key := teacherStatsCachePrefix + teacherID
	var cached models.TeacherStats
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	classes, err := s.stats.ClassStatsForTeacher(ctx, teacherID)
	if err != nil {
		return nil, internalError(err, "failed to load teacher stats")
	}
	if classes == nil {
		classes = []models.ClassStats{}
	}

	result := &models.TeacherStats{TeacherID: teacherID, Classes: classes, GeneratedAt: s.now().UTC()}
	for _, c := range classes {
		result.TotalStudents += c.Students
		result.TotalAssignments += c.Assignments
		result.TotalCompletions += c.Completions
	}
	s.cache.Set(ctx, key, result, s.cacheTTL)
	return result, nil
}

// Export renders the teacher's stats as csv or pdf.
func (s *StatsService) Export(ctx context.Context, teacherID, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	stats, err := s.Teacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Title: "Class reading statistics", Headers: statsHeaders}
	for _, c := range stats.Classes {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Class":            c.ClassName,
			"Grade":            c.GradeName,
			"Students":         strconv.Itoa(c.Students),
			"Assignments":      strconv.Itoa(c.Assignments),
			"Completions":      strconv.Itoa(c.Completions),
			"Average Progress": fmt.Sprintf("%.1f%%", c.AverageProgress),
		})
	}

	renderer := export.RendererFor(format)
	data, err := renderer.Render(dataset)
	if err != nil {
		return nil, internalError(err, "failed to render stats export")
	}
	filename := fmt.Sprintf("class-stats-%s.%s", stats.GeneratedAt.Format("20060102"), renderer.Extension())
	return &ExportFile{Filename: filename, ContentType: renderer.ContentType(), Data: data}, nil
}
