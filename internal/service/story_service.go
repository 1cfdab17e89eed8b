package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/repository"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

type storyRepository interface {
	List(ctx context.Context, filter models.StoryFilter) ([]models.Story, int, error)
	FindByID(ctx context.Context, id string) (*models.Story, error)
	Create(ctx context.Context, story *models.Story) error
	Update(ctx context.Context, story *models.Story) error
	IncrementReadCount(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, expected *models.StoryStatus, status models.StoryStatus) (*models.Story, bool, error)
	Delete(ctx context.Context, id string) (*models.Story, error)
}

type objectRemover interface {
	Delete(ctx context.Context, publicID string) error
}

type storyPage struct {
	Stories    []models.Story     `json:"stories"`
	Pagination *models.Pagination `json:"pagination"`
}

// StoryService covers story authoring, moderation and public reading.
type StoryService struct {
	stories   storyRepository
	objects   objectRemover
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStoryService constructs the service. cache and objects may be nil.
func NewStoryService(stories storyRepository, objects objectRemover, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *StoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StoryService{stories: stories, objects: objects, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// ListPublished returns published stories, served from cache when possible.
// Pages are dropped on moderation and edits only, so counters on a cached
// page can trail the live story until the cache TTL expires.
func (s *StoryService) ListPublished(ctx context.Context, filter models.StoryFilter) ([]models.Story, *models.Pagination, error) {
	filter.PublishedOnly = true
	filter.Status = nil
	key := fmt.Sprintf("%sq=%s:p=%d:s=%d:o=%s:%s", storyListCachePrefix, strings.ToLower(strings.TrimSpace(filter.Search)),
		filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)

	var cached storyPage
	if s.cache.Get(ctx, key, &cached) {
		return cached.Stories, cached.Pagination, nil
	}

	stories, total, err := s.stories.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list stories")
	}
	page := storyPage{Stories: stories, Pagination: newPagination(filter.Page, filter.PageSize, total)}
	s.cache.Set(ctx, key, page, s.cacheTTL)
	return page.Stories, page.Pagination, nil
}

// List returns stories in any status for moderation.
func (s *StoryService) List(ctx context.Context, filter models.StoryFilter) ([]models.Story, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
	}
	stories, total, err := s.stories.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list stories")
	}
	return stories, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a story and counts the read. Unpublished stories are visible
// only to their author and admins.
func (s *StoryService) Get(ctx context.Context, id string, viewer *models.JWTClaims) (*models.Story, error) {
	story, err := s.stories.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Story not found", "failed to load story")
	}
	if !storyVisible(viewer, story) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Story not found")
	}

	if err := s.stories.IncrementReadCount(ctx, id); err != nil {
		s.logger.Warn("failed to count story read", zap.String("story_id", id), zap.Error(err))
	} else {
		story.ReadCount++
	}
	return story, nil
}

// Create stores a new story by authorID as a draft, or waiting for review when submitted.
func (s *StoryService) Create(ctx context.Context, authorID string, req dto.CreateStoryRequest) (*models.Story, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid story payload")
	}

	status := models.StoryDraft
	if req.Submit {
		status = models.StoryWaitingRevision
	}
	story := &models.Story{
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		AuthorID:      authorID,
		CoverImage:    req.CoverImage,
		CoverPublicID: req.CoverPublicID,
		PDFURL:        req.PDFURL,
		PDFPublicID:   req.PDFPublicID,
		PageCount:     req.PageCount,
		Status:        status,
	}
	if err := s.stories.Create(ctx, story); err != nil {
		return nil, internalError(err, "failed to create story")
	}
	return story, nil
}

// Update edits metadata. Only the author or an admin may do so.
func (s *StoryService) Update(ctx context.Context, id string, actor *models.JWTClaims, req dto.UpdateStoryRequest) (*models.Story, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid story payload")
	}
	story, err := s.stories.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Story not found", "failed to load story")
	}
	if !canManageStory(actor, story) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only the author can edit this story")
	}

	if req.Title != nil {
		story.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		story.Description = strings.TrimSpace(*req.Description)
	}
	if req.CoverImage != nil {
		story.CoverImage = *req.CoverImage
	}
	if req.CoverPublicID != nil {
		story.CoverPublicID = *req.CoverPublicID
	}
	if req.PDFURL != nil {
		story.PDFURL = *req.PDFURL
	}
	if req.PDFPublicID != nil {
		story.PDFPublicID = *req.PDFPublicID
	}
	if req.PageCount != nil {
		story.PageCount = *req.PageCount
	}

	if err := s.stories.Update(ctx, story); err != nil {
		return nil, internalError(err, "failed to update story")
	}
	if story.Status == models.StoryPublished {
		s.cache.Invalidate(ctx, storyListCachePrefix)
	}
	return story, nil
}

// Submit moves the author's draft to waiting_revision.
func (s *StoryService) Submit(ctx context.Context, id string, actor *models.JWTClaims) (*models.Story, error) {
	story, err := s.stories.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Story not found", "failed to load story")
	}
	if actor == nil || story.AuthorID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only the author can submit this story")
	}
	if story.Status != models.StoryDraft {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Only draft stories can be submitted")
	}

	draft := models.StoryDraft
	updated, _, err := s.stories.UpdateStatus(ctx, id, &draft, models.StoryWaitingRevision)
	if errors.Is(err, repository.ErrStatusChanged) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "Story status changed, reload and try again")
	}
	if err != nil {
		return nil, lookupError(err, "Story not found", "failed to submit story")
	}
	return updated, nil
}

// SetStatus is the admin moderation transition. Publishing credits the author
// once per entry into published.
func (s *StoryService) SetStatus(ctx context.Context, id string, req dto.StoryStatusRequest) (*models.Story, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid status payload")
	}

	story, published, err := s.stories.UpdateStatus(ctx, id, nil, req.Status)
	if err != nil {
		return nil, lookupError(err, "Story not found", "failed to update story status")
	}
	if published {
		s.logger.Info("story published", zap.String("story_id", id), zap.String("author_id", story.AuthorID))
	}
	s.cache.Invalidate(ctx, storyListCachePrefix)
	return story, nil
}

// Delete removes the story with its assignments and progress, then its stored
// files on a best-effort basis.
func (s *StoryService) Delete(ctx context.Context, id string) error {
	story, err := s.stories.Delete(ctx, id)
	if err != nil {
		return lookupError(err, "Story not found", "failed to delete story")
	}
	if s.objects != nil {
		for _, publicID := range []string{story.CoverPublicID, story.PDFPublicID} {
			if publicID == "" {
				continue
			}
			if err := s.objects.Delete(ctx, publicID); err != nil {
				s.logger.Warn("failed to delete story object", zap.String("story_id", id), zap.String("public_id", publicID), zap.Error(err))
			}
		}
	}
	s.cache.Invalidate(ctx, storyListCachePrefix)
	return nil
}

// storyVisible reports whether viewer may see story at all. Unpublished
// stories answer as missing to everyone but the author and admins.
func storyVisible(viewer *models.JWTClaims, story *models.Story) bool {
	return story.Status == models.StoryPublished || canManageStory(viewer, story)
}

func canManageStory(actor *models.JWTClaims, story *models.Story) bool {
	if actor == nil {
		return false
	}
	return actor.Role == models.RoleAdmin || actor.UserID == story.AuthorID
}
