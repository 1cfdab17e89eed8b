package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/service"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
	"github.com/noah-isme/storyninja-api/pkg/response"
)

// DiscussionHandler exposes likes, comments and replies on a story.
type DiscussionHandler struct {
	service *service.DiscussionService
}

// NewDiscussionHandler constructs a discussion handler.
func NewDiscussionHandler(svc *service.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{service: svc}
}

// target resolves the caller and the story id shared by every discussion route.
func (h *DiscussionHandler) target(c *gin.Context) (*models.JWTClaims, string, bool) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return nil, "", false
	}
	storyID, ok := pathID(c, "id")
	if !ok {
		return nil, "", false
	}
	return actor, storyID, true
}

func childParam(c *gin.Context, name string) (string, bool) {
	value := c.Param(name)
	if value == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" is required"))
		return "", false
	}
	return value, true
}

// ToggleStoryLike godoc
// @Summary Like or unlike a story
// @Tags Discussion
// @Produce json
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Success 200 {object} dto.LikeResponse
// @Router /stories/{id}/likes [post]
func (h *DiscussionHandler) ToggleStoryLike(c *gin.Context) {
	actor, storyID, ok := h.target(c)
	if !ok {
		return
	}
	res, err := h.service.ToggleStoryLike(c.Request.Context(), storyID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// AddComment godoc
// @Summary Comment on a story
// @Tags Discussion
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Param payload body dto.DiscussionTextRequest true "Comment"
// @Success 201 {object} models.Comment
// @Router /stories/{id}/comments [post]
func (h *DiscussionHandler) AddComment(c *gin.Context) {
	actor, storyID, ok := h.target(c)
	if !ok {
		return
	}
	var req dto.DiscussionTextRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.service.AddComment(c.Request.Context(), storyID, actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "comment", comment)
}

// DeleteComment godoc
// @Summary Delete a comment and its replies
// @Tags Discussion
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Param commentId path string true "Comment ID"
// @Success 204
// @Failure 403 {object} response.ErrorBody
// @Router /stories/{id}/comments/{commentId} [delete]
func (h *DiscussionHandler) DeleteComment(c *gin.Context) {
	actor, storyID, ok := h.target(c)
	if !ok {
		return
	}
	commentID, ok := childParam(c, "commentId")
	if !ok {
		return
	}
	if err := h.service.DeleteComment(c.Request.Context(), storyID, commentID, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ToggleCommentLike godoc
// @Summary Like or unlike a comment
// @Tags Discussion
// @Produce json
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Param commentId path string true "Comment ID"
// @Success 200 {object} dto.LikeResponse
// @Router /stories/{id}/comments/{commentId}/likes [post]
func (h *DiscussionHandler) ToggleCommentLike(c *gin.Context) {
	actor, storyID, ok := h.target(c)
	if !ok {
		return
	}
	commentID, ok := childParam(c, "commentId")
	if !ok {
		return
	}
	res, err := h.service.ToggleCommentLike(c.Request.Context(), storyID, commentID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// AddReply godoc
// @Summary Reply to a comment
// @Tags Discussion
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Param commentId path string true "Comment ID"
// @Param payload body dto.DiscussionTextRequest true "Reply"
// @Success 201 {object} models.Reply
// @Router /stories/{id}/comments/{commentId}/replies [post]
func (h *DiscussionHandler) AddReply(c *gin.Context) {
	actor, storyID, ok := h.target(c)
	if !ok {
		return
	}
	commentID, ok := childParam(c, "commentId")
	if !ok {
		return
	}
	var req dto.DiscussionTextRequest
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.service.AddReply(c.Request.Context(), storyID, commentID, actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "reply", reply)
}

// DeleteReply godoc
// @Summary Delete a reply
// @Tags Discussion
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Param commentId path string true "Comment ID"
// @Param replyId path string true "Reply ID"
// @Success 204
// @Failure 403 {object} response.ErrorBody
// @Router /stories/{id}/comments/{commentId}/replies/{replyId} [delete]
func (h *DiscussionHandler) DeleteReply(c *gin.Context) {
	actor, storyID, ok := h.target(c)
	if !ok {
		return
	}
	commentID, ok := childParam(c, "commentId")
	if !ok {
		return
	}
	replyID, ok := childParam(c, "replyId")
	if !ok {
		return
	}
	if err := h.service.DeleteReply(c.Request.Context(), storyID, commentID, replyID, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ToggleReplyLike godoc
// @Summary Like or unlike a reply
// @Tags Discussion
// @Produce json
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Param commentId path string true "Comment ID"
// @Param replyId path string true "Reply ID"
// @Success 200 {object} dto.LikeResponse
// @Router /stories/{id}/comments/{commentId}/replies/{replyId}/likes [post]
func (h *DiscussionHandler) ToggleReplyLike(c *gin.Context) {
	actor, storyID, ok := h.target(c)
	if !ok {
		return
	}
	commentID, ok := childParam(c, "commentId")
	if !ok {
		return
	}
	replyID, ok := childParam(c, "replyId")
	if !ok {
		return
	}
	res, err := h.service.ToggleReplyLike(c.Request.Context(), storyID, commentID, replyID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}
