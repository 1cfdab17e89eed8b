package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

type assignedBookLister interface {
	ListForReader(ctx context.Context, userID string) ([]models.AssignedBook, error)
}

type progressRepository interface {
	Get(ctx context.Context, userID, storyID string) (*models.ReadingProgress, error)
	ListForUser(ctx context.Context, userID string, storyIDs []string) ([]models.ReadingProgress, error)
	Save(ctx context.Context, progress *models.ReadingProgress) (bool, error)
}

type rewardDispatcher interface {
	Dispatch(jobType, userID, sourceID string)
}

// ReadingService serves a reader's assigned books and records their progress.
type ReadingService struct {
	assignments assignedBookLister
	progress    progressRepository
	stories     storyReader
	rewards     rewardDispatcher
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewReadingService constructs the service. rewards and cache may be nil.
func NewReadingService(assignments assignedBookLister, progress progressRepository, stories storyReader, rewards rewardDispatcher, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ReadingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReadingService{assignments: assignments, progress: progress, stories: stories, rewards: rewards, cache: cache, validator: validate, logger: logger}
}

// AssignedBooks returns the caller's assigned stories with their progress attached.
func (s *ReadingService) AssignedBooks(ctx context.Context, userID string) ([]models.AssignedBook, error) {
	books, err := s.assignments.ListForReader(ctx, userID)
	if err != nil {
		return nil, internalError(err, "failed to list assigned books")
	}
	if len(books) == 0 {
		return []models.AssignedBook{}, nil
	}

	storyIDs := make([]string, len(books))
	for i := range books {
		storyIDs[i] = books[i].Story.ID
	}
	rows, err := s.progress.ListForUser(ctx, userID, storyIDs)
	if err != nil {
		return nil, internalError(err, "failed to load reading progress")
	}
	byStory := make(map[string]*models.ReadingProgress, len(rows))
	for i := range rows {
		byStory[rows[i].StoryID] = &rows[i]
	}
	for i := range books {
		books[i].Progress = byStory[books[i].Story.ID]
	}
	return books, nil
}

// Progress returns the caller's progress on a story. A story never opened
// reports an unsaved zero record.
func (s *ReadingService) Progress(ctx context.Context, reader *models.JWTClaims, storyID string) (*models.ReadingProgress, error) {
	if _, err := s.visibleStory(ctx, reader, storyID); err != nil {
		return nil, err
	}
	progress, err := s.progress.Get(ctx, reader.UserID, storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.ReadingProgress{UserID: reader.UserID, StoryID: storyID}, nil
	}
	if err != nil {
		return nil, internalError(err, "failed to load reading progress")
	}
	return progress, nil
}

// SaveProgress records the current page on a published story. The first
// completion of a story queues the reading reward.
func (s *ReadingService) SaveProgress(ctx context.Context, reader *models.JWTClaims, req dto.ProgressRequest) (*models.ReadingProgress, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid progress payload")
	}
	story, err := s.visibleStory(ctx, reader, req.StoryID)
	if err != nil {
		return nil, err
	}
	if story.Status != models.StoryPublished {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Reading progress is only tracked for published stories")
	}

	current := req.CurrentPage
	if current > req.TotalPages {
		current = req.TotalPages
	}
	progress := &models.ReadingProgress{
		UserID:      reader.UserID,
		StoryID:     req.StoryID,
		CurrentPage: current,
		TotalPages:  req.TotalPages,
		Progress:    models.PercentComplete(current, req.TotalPages),
	}
	completed, err := s.progress.Save(ctx, progress)
	if err != nil {
		return nil, internalError(err, "failed to save reading progress")
	}

	if completed {
		s.logger.Info("story completed", zap.String("user_id", reader.UserID), zap.String("story_id", req.StoryID))
		if s.rewards != nil {
			s.rewards.Dispatch(RewardReadingCompleted, reader.UserID, req.StoryID)
		}
		s.cache.Invalidate(ctx, teacherStatsCachePrefix)
	}
	return progress, nil
}

func (s *ReadingService) visibleStory(ctx context.Context, reader *models.JWTClaims, storyID string) (*models.Story, error) {
	story, err := s.stories.FindByID(ctx, storyID)
	if err != nil {
		return nil, lookupError(err, "Story not found", "failed to load story")
	}
	if !storyVisible(reader, story) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Story not found")
	}
	return story, nil
}
