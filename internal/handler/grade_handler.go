package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/service"
	"github.com/noah-isme/storyninja-api/pkg/response"
)

// GradeHandler exposes admin grade endpoints.
type GradeHandler struct {
	service *service.GradeService
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// List godoc
// @Summary List grades
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param schoolId query string false "Filter by school"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /admin/grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	grades, pagination, err := h.service.List(c.Request.Context(), models.GradeFilter{
		SchoolID: c.Query("schoolId"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "grades", grades, pagination)
}

// Get godoc
// @Summary Get grade with its school
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grade ID"
// @Success 200 {object} models.GradeDetail
// @Failure 404 {object} response.ErrorBody
// @Router /admin/grades/{id} [get]
func (h *GradeHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	grade, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "grade", grade)
}

// Create godoc
// @Summary Create grade
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GradeRequest true "Grade payload"
// @Success 201 {object} models.Grade
// @Failure 404 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /admin/grades [post]
func (h *GradeHandler) Create(c *gin.Context) {
	var req dto.GradeRequest
	if !bindJSON(c, &req) {
		return
	}
	grade, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "grade", grade)
}

// Update godoc
// @Summary Update grade
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grade ID"
// @Param payload body dto.GradeRequest true "Grade payload"
// @Success 200 {object} models.Grade
// @Failure 409 {object} response.ErrorBody
// @Router /admin/grades/{id} [put]
func (h *GradeHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.GradeRequest
	if !bindJSON(c, &req) {
		return
	}
	grade, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "grade", grade)
}

// Delete godoc
// @Summary Delete grade
// @Description Refused while classes reference the grade.
// @Tags Grades
// @Security BearerAuth
// @Param id path string true "Grade ID"
// @Success 204
// @Failure 409 {object} response.ErrorBody
// @Router /admin/grades/{id} [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
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
