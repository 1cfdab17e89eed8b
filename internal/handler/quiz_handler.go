package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/service"
	"github.com/noah-isme/storyninja-api/pkg/response"
)

// QuizHandler exposes teacher quiz management and quiz taking.
type QuizHandler struct {
	service *service.QuizService
}

// NewQuizHandler constructs a quiz handler.
func NewQuizHandler(svc *service.QuizService) *QuizHandler {
	return &QuizHandler{service: svc}
}

// List godoc
// @Summary Quizzes owned by the caller
// @Tags Quizzes
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /teacher/quizzes [get]
func (h *QuizHandler) List(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	page, size := pageParams(c)
	quizzes, pagination, err := h.service.List(c.Request.Context(), actor.UserID, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "quizzes", quizzes, pagination)
}

// Get godoc
// @Summary Get an owned quiz with answers
// @Tags Quizzes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Quiz ID"
// @Success 200 {object} models.Quiz
// @Failure 403 {object} response.ErrorBody
// @Router /teacher/quizzes/{id} [get]
func (h *QuizHandler) Get(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	quiz, err := h.service.Get(c.Request.Context(), actor.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "quiz", quiz)
}

// Create godoc
// @Summary Create quiz
// @Tags Quizzes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.QuizRequest true "Quiz"
// @Success 201 {object} models.Quiz
// @Failure 400 {object} response.ErrorBody
// @Router /teacher/quizzes [post]
func (h *QuizHandler) Create(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	var req dto.QuizRequest
	if !bindJSON(c, &req) {
		return
	}
	quiz, err := h.service.Create(c.Request.Context(), actor.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "quiz", quiz)
}

// Update godoc
// @Summary Replace quiz
// @Tags Quizzes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Quiz ID"
// @Param payload body dto.QuizRequest true "Quiz"
// @Success 200 {object} models.Quiz
// @Router /teacher/quizzes/{id} [put]
func (h *QuizHandler) Update(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.QuizRequest
	if !bindJSON(c, &req) {
		return
	}
	quiz, err := h.service.Update(c.Request.Context(), actor.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "quiz", quiz)
}

// Delete godoc
// @Summary Delete quiz
// @Tags Quizzes
// @Security BearerAuth
// @Param id path string true "Quiz ID"
// @Success 204
// @Router /teacher/quizzes/{id} [delete]
func (h *QuizHandler) Delete(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor.UserID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Public godoc
// @Summary Get quiz without answers
// @Tags Quizzes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Quiz ID"
// @Success 200 {object} models.Quiz
// @Router /quizzes/{id} [get]
func (h *QuizHandler) Public(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	quiz, err := h.service.Public(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "quiz", quiz)
}

// Attempt godoc
// @Summary Submit quiz answers
// @Tags Quizzes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Quiz ID"
// @Param payload body dto.QuizAttemptRequest true "Answers"
// @Success 201 {object} models.QuizAttempt
// @Router /quizzes/{id}/attempts [post]
func (h *QuizHandler) Attempt(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.QuizAttemptRequest
	if !bindJSON(c, &req) {
		return
	}
	attempt, err := h.service.Attempt(c.Request.Context(), actor.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "attempt", attempt)
}
