package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/service"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
	"github.com/noah-isme/storyninja-api/pkg/response"
)

// TeacherHandler serves the teacher workspace: classes, students, book
// assignments and class statistics.
type TeacherHandler struct {
	classes     *service.ClassService
	assignments *service.AssignmentService
	stats       *service.StatsService
}

// NewTeacherHandler constructs a teacher handler.
func NewTeacherHandler(classes *service.ClassService, assignments *service.AssignmentService, stats *service.StatsService) *TeacherHandler {
	return &TeacherHandler{classes: classes, assignments: assignments, stats: stats}
}

// Classes godoc
// @Summary Classes taught by the caller
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /teacher/classes [get]
func (h *TeacherHandler) Classes(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	classes, err := h.classes.ForTeacher(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "classes", classes, nil)
}

// Students godoc
// @Summary Students in the caller's classes
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Param classId query string false "Restrict to one of the caller's classes"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} response.ErrorBody
// @Router /teacher/students [get]
func (h *TeacherHandler) Students(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	classID := c.Query("classId")
	if classID != "" {
		if _, err := uuid.Parse(classID); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid classId"))
			return
		}
	}
	students, err := h.classes.StudentsForTeacher(c.Request.Context(), actor.UserID, classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "students", students, nil)
}

// AssignBook godoc
// @Summary Assign a published story to a class or student
// @Tags Teacher
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AssignBookRequest true "Assignment"
// @Success 201 {object} models.BookAssignment
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /teacher/assign-book [post]
func (h *TeacherHandler) AssignBook(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	var req dto.AssignBookRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.assignments.Create(c.Request.Context(), actor.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "assignment", assignment)
}

// Assignments godoc
// @Summary Book assignments made by the caller
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /teacher/assign-book [get]
func (h *TeacherHandler) Assignments(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	assignments, err := h.assignments.List(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "assignments", assignments, nil)
}

// Unassign godoc
// @Summary Remove a book assignment
// @Tags Teacher
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Success 204
// @Failure 403 {object} response.ErrorBody
// @Router /teacher/assign-book/{id} [delete]
func (h *TeacherHandler) Unassign(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.assignments.Delete(c.Request.Context(), actor.UserID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Reading statistics per class
// @Tags Teacher
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.TeacherStats
// @Router /teacher/stats [get]
func (h *TeacherHandler) Stats(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	stats, err := h.stats.Teacher(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "stats", stats)
}

// ExportStats godoc
// @Summary Download reading statistics
// @Tags Teacher
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Router /teacher/stats/export [get]
func (h *TeacherHandler) ExportStats(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	file, err := h.stats.Export(c.Request.Context(), actor.UserID, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
