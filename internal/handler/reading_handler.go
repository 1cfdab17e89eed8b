package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/service"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
	"github.com/noah-isme/storyninja-api/pkg/response"
)

// ReadingHandler serves caller-scoped reading lists and progress.
type ReadingHandler struct {
	service *service.ReadingService
}

// NewReadingHandler constructs a reading handler.
func NewReadingHandler(svc *service.ReadingService) *ReadingHandler {
	return &ReadingHandler{service: svc}
}

// AssignedBooks godoc
// @Summary Books assigned to the caller
// @Tags Reading
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /student/assigned-books [get]
func (h *ReadingHandler) AssignedBooks(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	books, err := h.service.AssignedBooks(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "books", books, nil)
}

// Progress godoc
// @Summary Caller's progress on a story
// @Tags Reading
// @Produce json
// @Security BearerAuth
// @Param storyId query string true "Story ID"
// @Success 200 {object} models.ReadingProgress
// @Failure 404 {object} response.ErrorBody
// @Router /reading-progress [get]
func (h *ReadingHandler) Progress(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	storyID := c.Query("storyId")
	if _, err := uuid.Parse(storyID); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid storyId"))
		return
	}
	progress, err := h.service.Progress(c.Request.Context(), actor, storyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "progress", progress)
}

// SaveProgress godoc
// @Summary Record the caller's current page
// @Tags Reading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ProgressRequest true "Progress"
// @Success 200 {object} models.ReadingProgress
// @Router /reading-progress [put]
func (h *ReadingHandler) SaveProgress(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	var req dto.ProgressRequest
	if !bindJSON(c, &req) {
		return
	}
	progress, err := h.service.SaveProgress(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "progress", progress)
}
