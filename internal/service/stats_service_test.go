package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

type fakeStatsRepo struct {
	rows  []models.ClassStats
	err   error
	calls int
}

func (f *fakeStatsRepo) ClassStatsForTeacher(ctx context.Context, teacherID string) ([]models.ClassStats, error) {
	f.calls++
	return f.rows, f.err
}

// memoryCache stores JSON payloads the way the Redis repository does.
type memoryCache struct {
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func TestTeacherStatsTotalsAndCache(t *testing.T) {
	repo := &fakeStatsRepo{rows: []models.ClassStats{
		{ClassName: "Owls", Students: 10, Assignments: 2, Completions: 5, AverageProgress: 40},
		{ClassName: "Hawks", Students: 8, Assignments: 1, Completions: 3, AverageProgress: 75.5},
	}}
	cache := NewCacheService(newMemoryCache(), nil, time.Minute, nil, true)
	svc := NewStatsService(repo, cache, time.Minute, nil)
	ctx := context.Background()

	stats, err := svc.Teacher(ctx, "teacher")
	require.NoError(t, err)
	assert.Equal(t, 18, stats.TotalStudents)
	assert.Equal(t, 3, stats.TotalAssignments)
	assert.Equal(t, 8, stats.TotalCompletions)

	_, err = svc.Teacher(ctx, "teacher")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	cache.Invalidate(ctx, teacherStatsCachePrefix)
	_, err = svc.Teacher(ctx, "teacher")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestTeacherStatsEmpty(t *testing.T) {
	svc := NewStatsService(&fakeStatsRepo{}, nil, 0, nil)
	stats, err := svc.Teacher(context.Background(), "teacher")
	require.NoError(t, err)
	assert.NotNil(t, stats.Classes)
	assert.Empty(t, stats.Classes)
}

func TestStatsExportCSV(t *testing.T) {
	repo := &fakeStatsRepo{rows: []models.ClassStats{{ClassName: "Owls", GradeName: "Grade 3", Students: 10, AverageProgress: 42.3}}}
	svc := NewStatsService(repo, nil, 0, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC) }

	file, err := svc.Export(context.Background(), "teacher", "csv")
	require.NoError(t, err)
	assert.Equal(t, "class-stats-20260304.csv", file.Filename)
	assert.Contains(t, file.ContentType, "text/csv")
	body := string(file.Data)
	assert.Contains(t, body, "Class,Grade,Students")
	assert.Contains(t, body, "Owls,Grade 3,10,0,0,42.3%")

	pdf, err := svc.Export(context.Background(), "teacher", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, strings.HasPrefix(string(pdf.Data), "%PDF"))

	_, err = svc.Export(context.Background(), "teacher", "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestStatsSurfaceRepositoryFailure(t *testing.T) {
	svc := NewStatsService(&fakeStatsRepo{err: errors.New("boom")}, nil, 0, nil)
	_, err := svc.Teacher(context.Background(), "teacher")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
