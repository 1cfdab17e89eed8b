package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/service"
	"github.com/noah-isme/storyninja-api/pkg/response"
)

// ClassHandler exposes admin class endpoints and membership replacement.
type ClassHandler struct {
	service *service.ClassService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc *service.ClassService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param gradeId query string false "Filter by grade"
// @Param schoolId query string false "Filter by school"
// @Param search query string false "Name contains"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /admin/classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	classes, pagination, err := h.service.List(c.Request.Context(), models.ClassFilter{
		GradeID:  c.Query("gradeId"),
		SchoolID: c.Query("schoolId"),
		Search:   c.Query("search"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "classes", classes, pagination)
}

// Get godoc
// @Summary Get class with members
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} models.ClassDetail
// @Failure 404 {object} response.ErrorBody
// @Router /admin/classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	class, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "class", class)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ClassRequest true "Class payload"
// @Success 201 {object} models.Class
// @Failure 409 {object} response.ErrorBody
// @Router /admin/classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req dto.ClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "class", class)
}

// Update godoc
// @Summary Update class
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param payload body dto.ClassRequest true "Class payload"
// @Success 200 {object} models.Class
// @Failure 409 {object} response.ErrorBody
// @Router /admin/classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ClassRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "class", class)
}

// Delete godoc
// @Summary Delete class
// @Description Removes the class with its memberships and book assignments.
// @Tags Classes
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 204
// @Router /admin/classes/{id} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
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

// ReplaceTeachers godoc
// @Summary Replace class teachers
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param payload body dto.ClassTeachersRequest true "Teacher ids"
// @Success 200 {object} models.ClassDetail
// @Failure 400 {object} response.ErrorBody
// @Router /admin/classes/{id}/teachers [put]
func (h *ClassHandler) ReplaceTeachers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ClassTeachersRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.ReplaceTeachers(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "class", class)
}

// ReplaceStudents godoc
// @Summary Replace class students
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param payload body dto.ClassStudentsRequest true "Student ids"
// @Success 200 {object} models.ClassDetail
// @Failure 400 {object} response.ErrorBody
// @Router /admin/classes/{id}/students [put]
func (h *ClassHandler) ReplaceStudents(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ClassStudentsRequest
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.ReplaceStudents(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "class", class)
}
