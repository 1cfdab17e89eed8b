package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/internal/discussion"
	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

type discussionStore interface {
	MutateDiscussion(ctx context.Context, id string, fn func(story *models.Story) error) (*models.Story, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// DiscussionService applies like, comment and reply mutations to a story.
// Every mutation runs under a row lock so concurrent toggles serialize.
type DiscussionService struct {
	stories   discussionStore
	users     userReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewDiscussionService constructs the service.
func NewDiscussionService(stories discussionStore, users userReader, validate *validator.Validate, logger *zap.Logger) *DiscussionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DiscussionService{stories: stories, users: users, validator: validate, logger: logger, now: time.Now}
}

// ToggleStoryLike likes or unlikes the story for the actor.
func (s *DiscussionService) ToggleStoryLike(ctx context.Context, storyID string, actor *models.JWTClaims) (*dto.LikeResponse, error) {
	var liked bool
	story, err := s.mutate(ctx, storyID, actor, func(story *models.Story) error {
		story.Likes, liked = discussion.ToggleLike(story.Likes, actor.UserID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto.LikeResponse{Liked: liked, LikeCount: len(story.Likes)}, nil
}

// AddComment appends a comment authored by the actor.
func (s *DiscussionService) AddComment(ctx context.Context, storyID string, actor *models.JWTClaims, req dto.DiscussionTextRequest) (*models.Comment, error) {
	text, err := s.text(req)
	if err != nil {
		return nil, err
	}
	name, picture := s.display(ctx, actor)
	comment := models.Comment{
		ID:          uuid.NewString(),
		UserID:      actor.UserID,
		UserName:    name,
		UserPicture: picture,
		Text:        text,
		Likes:       []string{},
		Replies:     []models.Reply{},
		CreatedAt:   s.now().UTC(),
	}
	if _, err := s.mutate(ctx, storyID, actor, func(story *models.Story) error {
		story.Comments = discussion.AppendComment(story.Comments, comment)
		return nil
	}); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment and its replies. Author or admin only.
func (s *DiscussionService) DeleteComment(ctx context.Context, storyID, commentID string, actor *models.JWTClaims) error {
	_, err := s.mutate(ctx, storyID, actor, func(story *models.Story) error {
		idx := discussion.FindComment(story.Comments, commentID)
		if idx < 0 {
			return discussion.ErrCommentNotFound
		}
		if !discussion.CanDelete(actor.UserID, actor.Role, story.Comments[idx].UserID) {
			return appErrors.Clone(appErrors.ErrForbidden, "Only the author can delete this comment")
		}
		comments, err := discussion.RemoveComment(story.Comments, commentID)
		if err != nil {
			return err
		}
		story.Comments = comments
		return nil
	})
	return err
}

// ToggleCommentLike likes or unlikes a comment.
func (s *DiscussionService) ToggleCommentLike(ctx context.Context, storyID, commentID string, actor *models.JWTClaims) (*dto.LikeResponse, error) {
	var resp dto.LikeResponse
	_, err := s.mutate(ctx, storyID, actor, func(story *models.Story) error {
		comments, liked, err := discussion.ToggleCommentLike(story.Comments, commentID, actor.UserID)
		if err != nil {
			return err
		}
		story.Comments = comments
		resp = dto.LikeResponse{Liked: liked, LikeCount: len(comments[discussion.FindComment(comments, commentID)].Likes)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddReply appends a reply under a comment and returns it with the actor's display fields.
func (s *DiscussionService) AddReply(ctx context.Context, storyID, commentID string, actor *models.JWTClaims, req dto.DiscussionTextRequest) (*models.Reply, error) {
	text, err := s.text(req)
	if err != nil {
		return nil, err
	}
	name, picture := s.display(ctx, actor)
	reply := models.Reply{
		ID:          uuid.NewString(),
		UserID:      actor.UserID,
		UserName:    name,
		UserPicture: picture,
		Text:        text,
		Likes:       []string{},
		CreatedAt:   s.now().UTC(),
	}
	if _, err := s.mutate(ctx, storyID, actor, func(story *models.Story) error {
		comments, err := discussion.AppendReply(story.Comments, commentID, reply)
		if err != nil {
			return err
		}
		story.Comments = comments
		return nil
	}); err != nil {
		return nil, err
	}
	return &reply, nil
}

// DeleteReply removes a reply. Author or admin only.
func (s *DiscussionService) DeleteReply(ctx context.Context, storyID, commentID, replyID string, actor *models.JWTClaims) error {
	_, err := s.mutate(ctx, storyID, actor, func(story *models.Story) error {
		ci, ri := discussion.FindReply(story.Comments, commentID, replyID)
		if ci < 0 {
			return discussion.ErrCommentNotFound
		}
		if ri < 0 {
			return discussion.ErrReplyNotFound
		}
		if !discussion.CanDelete(actor.UserID, actor.Role, story.Comments[ci].Replies[ri].UserID) {
			return appErrors.Clone(appErrors.ErrForbidden, "Only the author can delete this reply")
		}
		comments, err := discussion.RemoveReply(story.Comments, commentID, replyID)
		if err != nil {
			return err
		}
		story.Comments = comments
		return nil
	})
	return err
}

// ToggleReplyLike likes or unlikes a reply.
func (s *DiscussionService) ToggleReplyLike(ctx context.Context, storyID, commentID, replyID string, actor *models.JWTClaims) (*dto.LikeResponse, error) {
	var resp dto.LikeResponse
	_, err := s.mutate(ctx, storyID, actor, func(story *models.Story) error {
		comments, liked, err := discussion.ToggleReplyLike(story.Comments, commentID, replyID, actor.UserID)
		if err != nil {
			return err
		}
		story.Comments = comments
		ci, ri := discussion.FindReply(comments, commentID, replyID)
		resp = dto.LikeResponse{Liked: liked, LikeCount: len(comments[ci].Replies[ri].Likes)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// mutate runs fn under the story lock. Visibility is checked against the
// locked row so a story unpublished concurrently is not written to.
func (s *DiscussionService) mutate(ctx context.Context, storyID string, actor *models.JWTClaims, fn func(*models.Story) error) (*models.Story, error) {
	story, err := s.stories.MutateDiscussion(ctx, storyID, func(story *models.Story) error {
		if !storyVisible(actor, story) {
			return appErrors.Clone(appErrors.ErrNotFound, "Story not found")
		}
		return fn(story)
	})
	if err == nil {
		return story, nil
	}

	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return nil, appErr
	case errors.Is(err, discussion.ErrCommentNotFound):
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Comment not found")
	case errors.Is(err, discussion.ErrReplyNotFound):
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Reply not found")
	}
	return nil, lookupError(err, "Story not found", "failed to update discussion")
}

func (s *DiscussionService) text(req dto.DiscussionTextRequest) (string, error) {
	req.Text = strings.TrimSpace(req.Text)
	if err := s.validator.Struct(req); err != nil {
		return "", validationError(err, "text must be between 1 and 1000 characters")
	}
	return req.Text, nil
}

// display prefers the stored profile and falls back to the token claims.
func (s *DiscussionService) display(ctx context.Context, actor *models.JWTClaims) (string, string) {
	if s.users != nil {
		user, err := s.users.FindByID(ctx, actor.UserID)
		if err == nil {
			return user.Name, user.ProfilePicture
		}
		s.logger.Debug("falling back to claim display fields", zap.String("user_id", actor.UserID), zap.Error(err))
	}
	return actor.Name, actor.ProfilePicture
}
