package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/service"
	"github.com/noah-isme/storyninja-api/pkg/response"
)

// UserHandler handles admin user management.
type UserHandler struct {
	service *service.UserService
}

// NewUserHandler constructs a user handler.
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param role query string false "admin, teacher or student"
// @Param active query bool false "Filter by active flag"
// @Param schoolId query string false "Filter by school"
// @Param search query string false "Name, username or email contains"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.UserFilter{
		Active:    optionalBool(c, "active"),
		SchoolID:  c.Query("schoolId"),
		Search:    c.Query("search"),
		Page:      page,
		PageSize:  size,
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if role := models.UserRole(c.Query("role")); role.Valid() {
		filter.Role = &role
	}

	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, "users", users, pagination)
}

// Get godoc
// @Summary Get user with assigned classes
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} response.ErrorBody
// @Router /admin/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "user", user)
}

// Create godoc
// @Summary Create user
// @Description Unverified accounts receive a verification mail.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateUserRequest true "User payload"
// @Success 201 {object} models.User
// @Failure 409 {object} response.ErrorBody
// @Router /admin/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.Create(c.Request.Context(), req, actor.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "user", user)
}

// Update godoc
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param payload body dto.UpdateUserRequest true "User payload"
// @Success 200 {object} models.User
// @Router /admin/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.Update(c.Request.Context(), id, req, actor.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "user", user)
}

// Delete godoc
// @Summary Delete user
// @Description Hard delete with removal of memberships, session, progress, attempts and likes.
// @Tags Users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 400 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /admin/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, actor.UserID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ReplaceClasses godoc
// @Summary Replace user classes
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param payload body dto.UserClassesRequest true "Class ids"
// @Success 200 {object} models.User
// @Failure 400 {object} response.ErrorBody
// @Router /admin/users/{id}/classes [put]
func (h *UserHandler) ReplaceClasses(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UserClassesRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.service.ReplaceClasses(c.Request.Context(), id, req, actor.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Resource(c, http.StatusOK, "user", user)
}
