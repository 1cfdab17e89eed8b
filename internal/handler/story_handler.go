package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/middleware"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/service"
	"github.com/noah-isme/storyninja-api/pkg/response"
)

// StoryHandler exposes public, author and moderation story endpoints.
type StoryHandler struct {
	service *service.StoryService
}

// NewStoryHandler constructs a story handler.
func NewStoryHandler(svc *service.StoryService) *StoryHandler {
	return &StoryHandler{service: svc}
}

func storyFilter(c *gin.Context) models.StoryFilter {
	page, size := pageParams(c)
	return models.StoryFilter{
		AuthorID:  c.Query("authorId"),
		Search:    c.Query("search"),
		Page:      page,
		PageSize:  size,
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
}

// ListPublished godoc
// @Summary List published stories
// @Tags Stories
// @Produce json
// @Param search query string false "Title contains"
// @Param authorId query string false "Filter by author"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /stories [get]
func (h *StoryHandler) ListPublished(c *gin.Context) {
	stories, pagination, err := h.service.ListPublished(c.Request.Context(), storyFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "stories", stories, pagination)
}

// Get godoc
// @Summary Get story
// @Description Published stories are public; drafts are visible to their author and admins.
// @Tags Stories
// @Produce json
// @Param id path string true "Story ID"
// @Success 200 {object} models.Story
// @Failure 404 {object} response.ErrorBody
// @Router /stories/{id} [get]
func (h *StoryHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	story, err := h.service.Get(c.Request.Context(), id, middleware.CurrentClaims(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "story", story)
}

// Create godoc
// @Summary Create story
// @Tags Stories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateStoryRequest true "Story payload"
// @Success 201 {object} models.Story
// @Router /stories [post]
func (h *StoryHandler) Create(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateStoryRequest
	if !bindJSON(c, &req) {
		return
	}
	story, err := h.service.Create(c.Request.Context(), actor.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "story", story)
}

// Update godoc
// @Summary Update story metadata
// @Tags Stories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Param payload body dto.UpdateStoryRequest true "Story payload"
// @Success 200 {object} models.Story
// @Failure 403 {object} response.ErrorBody
// @Router /stories/{id} [put]
func (h *StoryHandler) Update(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateStoryRequest
	if !bindJSON(c, &req) {
		return
	}
	story, err := h.service.Update(c.Request.Context(), id, actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "story", story)
}

// Submit godoc
// @Summary Submit a draft for review
// @Tags Stories
// @Produce json
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Success 200 {object} models.Story
// @Failure 400 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /stories/{id}/submit [post]
func (h *StoryHandler) Submit(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	story, err := h.service.Submit(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "story", story)
}

// AdminList godoc
// @Summary List stories for moderation
// @Tags Stories
// @Produce json
// @Security BearerAuth
// @Param status query string false "draft, waiting_revision or published"
// @Param search query string false "Title contains"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /admin/stories [get]
func (h *StoryHandler) AdminList(c *gin.Context) {
	filter := storyFilter(c)
	if raw := c.Query("status"); raw != "" {
		status := models.StoryStatus(raw)
		filter.Status = &status
	}
	stories, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "stories", stories, pagination)
}

// SetStatus godoc
// @Summary Set moderation status
// @Description Publishing credits the author once per transition into published.
// @Tags Stories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Param payload body dto.StoryStatusRequest true "Status"
// @Success 200 {object} models.Story
// @Router /admin/stories/{id}/status [put]
func (h *StoryHandler) SetStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.StoryStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	story, err := h.service.SetStatus(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "story", story)
}

// Delete godoc
// @Summary Delete story
// @Description Also removes stored files, assignments and reading progress.
// @Tags Stories
// @Security BearerAuth
// @Param id path string true "Story ID"
// @Success 204
// @Router /admin/stories/{id} [delete]
func (h *StoryHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
